// Package refreshtokens stores the single-use refresh tokens behind
// auth.refresh and auth.signOut.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type Repository interface {
	// Issue stores token for userID, redeemable for ttl.
	Issue(ctx context.Context, userID string, token string, ttl time.Duration) error

	// Consume atomically removes token and returns what it was issued for.
	// Of several concurrent consumers only one gets the row; the others see
	// common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// RevokeAll drops every token of userID and reports how many there were.
	RevokeAll(ctx context.Context, userID string) (int64, error)
}
