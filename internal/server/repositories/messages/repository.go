// Package messages stores the per-user chat log.
package messages

import (
	"context"

	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type Repository interface {
	// Create inserts msg and fills in the store-assigned ID and CreatedAt.
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)

	// ListByUser returns the full log of userID ordered by CreatedAt ascending.
	ListByUser(ctx context.Context, userID string) ([]models.Message, error)

	// Delete removes the message only when it belongs to userID. Missing or
	// foreign ids are not an error.
	Delete(ctx context.Context, id string, userID string) error
}
