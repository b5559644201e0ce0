package services

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"github.com/dmitrijs2005/lingokeeper/internal/server/config"
	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/desktopcodes"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MaxStateLength bounds the opaque state echoed back to the desktop client.
const MaxStateLength = 512

// DesktopCode is what the browser side of the desktop login receives. Code is
// the raw one-time code; only its hash is stored.
type DesktopCode struct {
	Code        string
	RedirectURL string
	State       string
	ExpiresAt   time.Time
}

// DesktopAuthService implements the desktop login handoff: an authenticated
// browser session obtains a short-lived one-time code, which the desktop
// client exchanges for a token pair exactly once.
type DesktopAuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *tokenIssuer
	codeTTL     time.Duration
	logger      logging.Logger
	clock       func() time.Time
	runTx       txRunner
	newID       func() string
}

func NewDesktopAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *DesktopAuthService {
	return &DesktopAuthService{
		db:          db,
		repomanager: m,
		tokens:      newTokenIssuer(m, cfg, time.Now),
		codeTTL:     cfg.DesktopCodeValidityDuration,
		logger:      logger.With("module", "desktop_auth"),
		clock:       time.Now,
		runTx:       sqlTxRunner(db),
		newID:       uuid.NewString,
	}
}

// IssueCode creates a one-time code for userID. redirectURI must be an
// absolute URL without a fragment; the returned RedirectURL is redirectURI
// with code and state added to its query.
func (s *DesktopAuthService) IssueCode(ctx context.Context, userID int64, redirectURI, state string) (*DesktopCode, error) {
	target, err := url.Parse(redirectURI)
	if err != nil || !target.IsAbs() || target.Fragment != "" {
		return nil, common.ErrorBadRequest
	}
	if len(state) > MaxStateLength {
		return nil, common.ErrorBadRequest
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, collapse(ctx, s.logger, "issue_code", notFoundAsUnauthorized(err))
	}
	if user.Deactivated {
		return nil, common.ErrorUnauthorized
	}

	raw, err := auth.RandomCode()
	if err != nil {
		return nil, collapse(ctx, s.logger, "issue_code", err)
	}

	code := &models.DesktopAuthCode{
		ID:          s.newID(),
		UserID:      userID,
		CodeHash:    auth.HashCode(raw),
		RedirectURI: redirectURI,
		State:       state,
		ExpiresAt:   s.clock().Add(s.codeTTL),
	}
	if err := s.repomanager.DesktopCodes(s.db).Create(ctx, code); err != nil {
		return nil, collapse(ctx, s.logger, "issue_code", err)
	}

	q := target.Query()
	q.Set("code", raw)
	if state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()

	s.logger.Info(ctx, "desktop code issued", "user_id", userID, "code_id", code.ID)
	return &DesktopCode{
		Code:        raw,
		RedirectURL: target.String(),
		State:       state,
		ExpiresAt:   code.ExpiresAt,
	}, nil
}

// ExchangeCode consumes rawCode and returns a token pair for its owner. The
// code is marked used and the tokens are stored in one transaction, so of
// several concurrent exchanges of the same code exactly one succeeds. Unknown,
// expired and already-used codes are indistinguishable to the caller.
func (s *DesktopAuthService) ExchangeCode(ctx context.Context, rawCode string) (*TokenPair, error) {
	if rawCode == "" {
		return nil, common.ErrorUnauthorized
	}
	hash := auth.HashCode(rawCode)

	var pair *TokenPair
	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.clock()
		codes := s.repomanager.DesktopCodes(tx)

		code, err := codes.Consume(ctx, hash, now)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				if logging.DebugEnabled(ctx, s.logger) {
					s.logger.Debug(ctx, "desktop code rejected", "reason", s.rejectReason(ctx, codes, hash, now))
				}
				return common.ErrorUnauthorized
			}
			return err
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, code.UserID)
		if err != nil {
			return notFoundAsUnauthorized(err)
		}
		if user.Deactivated {
			return common.ErrorUnauthorized
		}

		pair, err = s.tokens.issue(ctx, tx, code.UserID)
		return err
	})
	if err != nil {
		return nil, collapse(ctx, s.logger, "exchange_code", err)
	}

	s.logger.Info(ctx, "desktop code exchanged")
	return pair, nil
}

// PurgeExpired deletes codes that can no longer be exchanged.
func (s *DesktopAuthService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.DesktopCodes(s.db).DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, collapse(ctx, s.logger, "purge_codes", err)
	}
	return n, nil
}

// rejectReason is for server logs only and never reaches the client.
func (s *DesktopAuthService) rejectReason(ctx context.Context, codes desktopcodes.Repository, hash string, now time.Time) string {
	code, err := codes.FindByHash(ctx, hash)
	switch {
	case err != nil, code.Usable(now):
		return "unknown"
	case code.UsedAt != nil:
		return "used"
	default:
		return "expired"
	}
}
