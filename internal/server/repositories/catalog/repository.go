// Package catalog reads the model catalog. Rows are managed by migrations
// and out-of-band configuration; the server never writes them.
package catalog

import (
	"context"

	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type Repository interface {
	// List returns every model ordered by creation time, oldest first.
	List(ctx context.Context) ([]models.Model, error)
}
