// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
)

// Repository defines persistence operations on user accounts.
type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. A duplicate
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the account including its password hash, or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the account without its password hash, or
	// common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetPasswordHash returns the stored hash and deactivation flag.
	GetPasswordHash(ctx context.Context, id int64) (hash string, deactivated bool, err error)

	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// Deactivate marks the account deactivated and clears its password hash.
	Deactivate(ctx context.Context, id int64) error
}
