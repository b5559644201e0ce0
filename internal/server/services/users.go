package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"github.com/dmitrijs2005/lingokeeper/internal/server/config"
	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/repomanager"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes bounds the input fed to Argon2id.
	MaxPasswordBytes  = 1024
	MaxUsernameLength = 64
)

// UserService provides account operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Authenticate: resolve an access token to a user ID
// - Me, ChangePassword, Deactivate: self-service on the caller's account
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	tokens      *tokenIssuer
	jwtSecret   []byte
	logger      logging.Logger
	clock       func() time.Time
	runTx       txRunner

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      newTokenIssuer(m, cfg, time.Now),
		jwtSecret:   []byte(cfg.SecretKey),
		logger:      logger.With("module", "users"),
		clock:       time.Now,
		runTx:       sqlTxRunner(db),
	}
}

// Register validates the input, hashes the password and creates the account.
// Emails are compared case-insensitively.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, common.ErrorBadRequest
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, collapse(ctx, s.logger, "register", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, collapse(ctx, s.logger, "register", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	user.PasswordHash = ""
	return user, nil
}

// Login verifies the password for email and, on success, returns a new
// TokenPair. Unknown emails still pay for one Argon2id evaluation so that
// response timing does not reveal whether an account exists.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if len(password) > MaxPasswordBytes {
		return nil, common.ErrorUnauthorized
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.hasher.Verify(ctx, password, s.dummy(), false)
			return nil, common.ErrorUnauthorized
		}
		return nil, collapse(ctx, s.logger, "login", err)
	}

	if err := s.hasher.Verify(ctx, password, user.PasswordHash, user.Deactivated); err != nil {
		s.logger.Debug(ctx, "login rejected", "user_id", user.ID)
		return nil, collapse(ctx, s.logger, "login", err)
	}

	pair, err := s.tokens.issue(ctx, s.db, user.ID)
	if err != nil {
		return nil, collapse(ctx, s.logger, "login", err)
	}
	return pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Unknown, expired and already-rotated tokens, as
// well as tokens of deactivated users, all yield ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}
	hash := auth.HashCode(refreshToken)

	var pair *TokenPair
	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		token, err := repo.Find(ctx, hash)
		if err != nil {
			return notFoundAsUnauthorized(err)
		}
		if !s.clock().Before(token.ExpiresAt) {
			return common.ErrorUnauthorized
		}
		// Delete reports NotFound to every caller but one when the same token
		// is rotated concurrently.
		if err := repo.Delete(ctx, hash); err != nil {
			return notFoundAsUnauthorized(err)
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return notFoundAsUnauthorized(err)
		}
		if user.Deactivated {
			return common.ErrorUnauthorized
		}

		pair, err = s.tokens.issue(ctx, tx, token.UserID)
		return err
	})
	if err != nil {
		return nil, collapse(ctx, s.logger, "refresh", err)
	}
	return pair, nil
}

// Authenticate resolves an access token to the user ID it was issued for.
// Access tokens are stateless: the store is not consulted.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (int64, error) {
	claims, err := auth.DecodeAccessToken(accessToken, s.jwtSecret)
	if err != nil {
		return 0, common.ErrorUnauthorized
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, common.ErrorUnauthorized
	}
	return id, nil
}

// Me returns the caller's profile.
func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, collapse(ctx, s.logger, "me", notFoundAsUnauthorized(err))
	}
	if user.Deactivated {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the current
// one and signs the account out of every session.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	if err := s.verifyOwner(ctx, userID, current); err != nil {
		return collapse(ctx, s.logger, "change_password", err)
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return collapse(ctx, s.logger, "change_password", err)
	}

	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, userID, hash); err != nil {
			return notFoundAsUnauthorized(err)
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID)
	})
	if err != nil {
		return collapse(ctx, s.logger, "change_password", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// Deactivate disables the caller's account after password confirmation.
// The stored hash is cleared and every refresh token is revoked; access
// tokens already issued stay valid until they expire.
func (s *UserService) Deactivate(ctx context.Context, userID int64, password string) error {
	if err := s.verifyOwner(ctx, userID, password); err != nil {
		return collapse(ctx, s.logger, "deactivate", err)
	}

	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Deactivate(ctx, userID); err != nil {
			return notFoundAsUnauthorized(err)
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID)
	})
	if err != nil {
		return collapse(ctx, s.logger, "deactivate", err)
	}

	s.logger.Info(ctx, "user deactivated", "user_id", userID)
	return nil
}

// --- helpers below ---

func (s *UserService) verifyOwner(ctx context.Context, userID int64, password string) error {
	if len(password) > MaxPasswordBytes {
		return common.ErrorUnauthorized
	}
	hash, deactivated, err := s.repomanager.Users(s.db).GetPasswordHash(ctx, userID)
	if err != nil {
		return notFoundAsUnauthorized(err)
	}
	return s.hasher.Verify(ctx, password, hash, deactivated)
}

// dummy returns a valid hash of a throwaway password, computed once.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := auth.HashPassword("lingokeeper-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func notFoundAsUnauthorized(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorUnauthorized
	}
	return err
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.ErrorBadRequest
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return common.ErrorBadRequest
	}
	return nil
}
