// Package services contains server-side business logic. This file implements
// UserService, the identity provider: registration, password sign-in,
// sign-out and issuing/refreshing sessions made of a JWT access token and a
// server-stored refresh token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/config"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/repomanager"
)

const tokenTypeBearer = "bearer"

// UserService provides authentication-related operations:
// - SignUp / SignIn: create or verify users and mint sessions
// - SignOut: revoke every refresh token of the caller
// - Refresh: rotate a refresh token and mint a new access token
// - VerifyAccessToken: used by the credential resolver on every request
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *auth.PasswordHasher
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		hasher:                       auth.NewPasswordHasher(cfg.BcryptCost),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// SignUp registers a new user and opens a session for it. The user row and
// its first refresh token are written in one transaction.
func (s *UserService) SignUp(ctx context.Context, in api.SignUpInput) (*api.AuthResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	var result *api.AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        normalizeEmail(in.Email),
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return fmt.Errorf("%w: user already registered", common.ErrorBadRequest)
			}
			return fmt.Errorf("%w: creating user: %v", common.ErrorInternal, err)
		}

		session, err := s.newSession(ctx, user, tx)
		if err != nil {
			return err
		}
		result = &api.AuthResult{User: user, Session: session}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SignIn verifies email and password. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *UserService) SignIn(ctx context.Context, in api.SignInInput) (*api.AuthResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("%w: loading user: %v", common.ErrorInternal, err)
	}
	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		return nil, errInvalidCredentials
	}

	session, err := s.newSession(ctx, user, s.db)
	if err != nil {
		return nil, err
	}
	return &api.AuthResult{User: user, Session: session}, nil
}

var errInvalidCredentials = fmt.Errorf("%w: invalid login credentials", common.ErrorUnauthorized)

// SignOut revokes every refresh token of the caller. Outstanding access
// tokens stay valid until they expire.
func (s *UserService) SignOut(ctx context.Context, uc auth.UserContext) (*api.SuccessResult, error) {
	if _, err := s.repomanager.RefreshTokens(s.db).RevokeAll(ctx, uc.UserID); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &api.SuccessResult{Success: true}, nil
}

// GetUser returns the caller's user record.
func (s *UserService) GetUser(ctx context.Context, uc auth.UserContext) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, uc.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("%w: loading user: %v", common.ErrorInternal, err)
	}
	return user, nil
}

// Refresh redeems a refresh token for a fresh session. The token is
// consumed in the same transaction that issues its successor, so a token can
// be redeemed once: concurrent refreshes with it get ErrorUnauthorized.
// An expired token is consumed too and yields ErrRefreshTokenExpired.
func (s *UserService) Refresh(ctx context.Context, in api.RefreshInput) (*api.AuthResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}

	var (
		result  *api.AuthResult
		expired bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, in.RefreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		if token.ExpiredAt(time.Now()) {
			expired = true
			return nil
		}

		user, err := s.repomanager.Users(tx).GetUserByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
			}
			return fmt.Errorf("%w: loading user: %v", common.ErrorInternal, err)
		}

		session, err := s.newSession(ctx, user, tx)
		if err != nil {
			return err
		}
		result = &api.AuthResult{User: user, Session: session}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}
	return result, nil
}

// VerifyAccessToken checks the signature and expiry of an access token and
// returns the user id it carries.
func (s *UserService) VerifyAccessToken(_ context.Context, token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

// --- helpers below ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) newSession(ctx context.Context, user *models.User, tx dbx.DBTX) (*models.Session, error) {
	access, expiresAt, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: signing access token: %v", common.ErrorInternal, err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: generating refresh token: %v", common.ErrorInternal, err)
	}
	if err := s.repomanager.RefreshTokens(tx).Issue(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("%w: storing refresh token: %v", common.ErrorInternal, err)
	}

	return &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.accessTokenValidityDuration / time.Second),
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}
