// Package users declares and implements persistent storage of identities.
package users

import (
	"context"

	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
