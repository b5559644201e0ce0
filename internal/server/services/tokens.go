// Package services contains server-side business logic: account management,
// token issuance and rotation, and the desktop authorization code flow.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/cryptox"
	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"github.com/dmitrijs2005/lingokeeper/internal/server/config"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/repomanager"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// ExpiresAt is the access token expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// txRunner runs fn inside a transaction.
type txRunner func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

func sqlTxRunner(db *sql.DB) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}
}

// tokenIssuer mints access tokens and stores refresh token hashes.
type tokenIssuer struct {
	repomanager repomanager.RepositoryManager
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	clock       func() time.Time
}

func newTokenIssuer(m repomanager.RepositoryManager, cfg *config.Config, clock func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		repomanager: m,
		secret:      []byte(cfg.SecretKey),
		accessTTL:   cfg.AccessTokenValidityDuration,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
		clock:       clock,
	}
}

// issue mints a token pair for userID, persisting the refresh token hash
// through db.
func (t *tokenIssuer) issue(ctx context.Context, db dbx.DBTX, userID int64) (*TokenPair, error) {
	now := t.clock()

	access, err := auth.IssueAccessToken(userID, t.secret, t.accessTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := cryptox.RandomURLString(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := t.repomanager.RefreshTokens(db)
	if err := repo.Create(ctx, userID, auth.HashCode(refresh), now.Add(t.refreshTTL)); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: now.Add(t.accessTTL)}, nil
}

// collapse reduces err to the service error taxonomy. Anything that is not
// already a client-facing sentinel is logged and reported as ErrorInternal.
func collapse(ctx context.Context, logger logging.Logger, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrorBadRequest),
		errors.Is(err, common.ErrorAlreadyExists):
		return err
	case errors.Is(err, common.ErrInvalidToken):
		return common.ErrorUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		logger.Error(ctx, "operation failed", "op", op, "error", err)
		return common.ErrorInternal
	}
}
