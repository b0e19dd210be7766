package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/logging"
)

// TokenVerifier validates an access token against the identity service and
// returns the user id it belongs to.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}

// Identity is the optional caller identity of one request. An empty UserID
// means the request is anonymous.
type Identity struct {
	UserID string
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

// UserContext is an Identity that passed the gate; UserID is never empty.
type UserContext struct {
	UserID string
}

// Resolver turns an authorization header into an Identity. It keeps no
// state between requests.
type Resolver struct {
	verifier TokenVerifier
	logger   logging.Logger
}

func NewResolver(v TokenVerifier, l logging.Logger) *Resolver {
	return &Resolver{verifier: v, logger: l.With("module", "credentials")}
}

// Resolve never fails: a missing header or a token the verifier rejects
// both produce an anonymous Identity.
func (r *Resolver) Resolve(ctx context.Context, authorization string) Identity {
	token := BearerToken(authorization)
	if token == "" {
		return Identity{}
	}

	userID, err := r.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		r.logger.Debug(ctx, "access token rejected", "error", err.Error())
		return Identity{}
	}

	return Identity{UserID: userID}
}

// BearerToken strips an optional "Bearer " prefix (any case) from an
// authorization value.
func BearerToken(authorization string) string {
	v := strings.TrimSpace(authorization)
	if len(v) >= len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		v = v[len(common.BearerPrefix):]
	}
	return strings.TrimSpace(v)
}

// Require is the gate: it narrows an Identity to a UserContext or fails
// with common.ErrorUnauthorized.
func Require(id Identity) (UserContext, error) {
	if !id.Authenticated() {
		return UserContext{}, common.ErrorUnauthorized
	}
	return UserContext{UserID: id.UserID}, nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx for transports that resolve once per
// request and dispatch to several procedures.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

// RequireContext applies the gate to the Identity stored in ctx.
func RequireContext(ctx context.Context) (UserContext, error) {
	return Require(IdentityFromContext(ctx))
}
