// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh
// tokens. Tokens are addressed by the hex SHA-256 of their raw value.
type Repository interface {
	// Create stores a new refresh token hash for userID.
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error

	// Find looks up a refresh token by hash. Returns common.ErrorNotFound when absent.
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Delete removes a refresh token by hash. Returns common.ErrorNotFound when
	// no row was removed, so concurrent rotations of one token have a single winner.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser removes every refresh token of userID.
	DeleteByUser(ctx context.Context, userID int64) error
}
