// Package desktopcodes stores one-time desktop authorization codes. Only the
// SHA-256 hex digest of a code is persisted.
package desktopcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
)

type Repository interface {
	// Create persists a freshly issued code.
	Create(ctx context.Context, code *models.DesktopAuthCode) error

	// FindByHash returns the code row regardless of its state, or
	// common.ErrorNotFound.
	FindByHash(ctx context.Context, codeHash string) (*models.DesktopAuthCode, error)

	// Consume atomically marks the code used at now, provided it is unused
	// and not expired at now. Returns common.ErrorNotFound otherwise.
	Consume(ctx context.Context, codeHash string, now time.Time) (*models.DesktopAuthCode, error)

	// DeleteExpired removes codes that expired before now and returns how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
