// Package rpctest provides in-memory implementations of the rpc service
// interfaces for transport tests.
package rpctest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/google/uuid"
)

// Token is the only access token the fake verifier accepts; it maps to UserID.
const (
	Token    = "good-token"
	UserID   = "11111111-1111-1111-1111-111111111111"
	Email    = "alice@example.com"
	Password = "secret1"
)

// Base is the timestamp of the first stored row.
var Base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Services implements rpc.Users, rpc.Catalog, rpc.Chat and
// auth.TokenVerifier over in-memory state.
type Services struct {
	mu       sync.Mutex
	messages []models.Message
	tick     int

	// FailChat makes every chat call fail with common.ErrorInternal.
	FailChat     bool
	// PanicHistory makes History panic.
	PanicHistory bool

	Models []models.Model
}

func New() *Services {
	desc := "OpenAI small model"
	return &Services{
		Models: []models.Model{
			{ID: "m1", Tag: "gpt-4o-mini", Name: "GPT-4o mini", Description: &desc, CreatedAt: Base},
			{ID: "m2", Tag: "echo", Name: "Echo", CreatedAt: Base.Add(time.Second)},
		},
	}
}

func (s *Services) VerifyAccessToken(_ context.Context, token string) (string, error) {
	if token != Token {
		return "", common.ErrInvalidToken
	}
	return UserID, nil
}

func (s *Services) user() *models.User {
	return &models.User{ID: UserID, Email: Email, CreatedAt: Base}
}

func (s *Services) session() *models.Session {
	return &models.Session{
		AccessToken:  Token,
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    Base.Add(time.Hour),
		User:         s.user(),
	}
}

func (s *Services) SignUp(_ context.Context, in api.SignUpInput) (*api.AuthResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	if in.Email == Email {
		return nil, fmt.Errorf("%w: user already registered", common.ErrorBadRequest)
	}
	u := &models.User{ID: uuid.NewString(), Email: in.Email, CreatedAt: Base}
	sess := s.session()
	sess.User = u
	return &api.AuthResult{User: u, Session: sess}, nil
}

func (s *Services) SignIn(_ context.Context, in api.SignInInput) (*api.AuthResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	if in.Email != Email || in.Password != Password {
		return nil, fmt.Errorf("%w: invalid login credentials", common.ErrorUnauthorized)
	}
	return &api.AuthResult{User: s.user(), Session: s.session()}, nil
}

func (s *Services) SignOut(context.Context, auth.UserContext) (*api.SuccessResult, error) {
	return &api.SuccessResult{Success: true}, nil
}

func (s *Services) GetUser(_ context.Context, uc auth.UserContext) (*models.User, error) {
	if uc.UserID != UserID {
		return nil, fmt.Errorf("%w: user not found", common.ErrorNotFound)
	}
	return s.user(), nil
}

func (s *Services) Refresh(_ context.Context, in api.RefreshInput) (*api.AuthResult, error) {
	if in.RefreshToken != "refresh-1" {
		return nil, fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
	}
	return &api.AuthResult{User: s.user(), Session: s.session()}, nil
}

func (s *Services) GetAvailable(context.Context, auth.UserContext) ([]models.Model, error) {
	return s.Models, nil
}

func (s *Services) Send(_ context.Context, uc auth.UserContext, in api.SendInput) (*api.SendResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailChat {
		return nil, fmt.Errorf("%w: storing user message: db down", common.ErrorInternal)
	}
	user := s.store(uc.UserID, *in.ModelTag, models.RoleUser, *in.Prompt)
	assistant := s.store(uc.UserID, *in.ModelTag, models.RoleAssistant, `You said: "`+*in.Prompt+`"`)
	return &api.SendResult{UserMessage: &user, AssistantMessage: &assistant}, nil
}

func (s *Services) store(userID, tag string, role models.Role, content string) models.Message {
	s.tick++
	m := models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		ModelTag:  tag,
		Role:      role,
		Content:   content,
		CreatedAt: Base.Add(time.Duration(s.tick) * time.Millisecond),
	}
	s.messages = append(s.messages, m)
	return m
}

func (s *Services) History(_ context.Context, uc auth.UserContext) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PanicHistory {
		panic("history exploded")
	}
	if s.FailChat {
		return nil, fmt.Errorf("%w: listing messages: db down", common.ErrorInternal)
	}
	out := []models.Message{}
	for _, m := range s.messages {
		if m.UserID == uc.UserID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Services) DeleteMessage(_ context.Context, uc auth.UserContext, in api.DeleteMessageInput) (*api.SuccessResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailChat {
		return nil, fmt.Errorf("%w: deleting message: db down", common.ErrorInternal)
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ID == *in.MessageID && m.UserID == uc.UserID {
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return &api.SuccessResult{Success: true}, nil
}
