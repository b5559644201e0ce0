package desktopcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
)

const columns = `id, user_id, code_hash, redirect_uri, state, expires_at, used_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.DesktopAuthCode) error {
	query := `
		INSERT INTO desktop_auth_codes (id, user_id, code_hash, redirect_uri, state, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		code.ID, code.UserID, code.CodeHash, code.RedirectURI, code.State, code.ExpiresAt).Scan(&code.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, codeHash string) (*models.DesktopAuthCode, error) {
	query := `SELECT ` + columns + `
		FROM desktop_auth_codes
		WHERE code_hash = $1
	`
	return scanCode(r.db.QueryRowContext(ctx, query, codeHash))
}

func (r *PostgresRepository) Consume(ctx context.Context, codeHash string, now time.Time) (*models.DesktopAuthCode, error) {
	query := `
		UPDATE desktop_auth_codes
		SET used_at = $2
		WHERE code_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING ` + columns
	return scanCode(r.db.QueryRowContext(ctx, query, codeHash, now))
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM desktop_auth_codes
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanCode(row *sql.Row) (*models.DesktopAuthCode, error) {
	c := &models.DesktopAuthCode{}
	var usedAt sql.NullTime
	err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.RedirectURI, &c.State, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return c, nil
}
