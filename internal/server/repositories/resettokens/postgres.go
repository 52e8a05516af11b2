package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/dbx"
	"github.com/dstepanov2008/shopauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new reset token row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.UserID, token.Token, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the token row regardless of its state. It exists so the
// service can log why a redemption failed; authorization decisions never
// rely on it.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, consumed_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`
	row := &models.PasswordResetToken{}
	var consumedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&row.ID, &row.UserID, &row.Token, &row.ExpiresAt, &consumedAt, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		row.ConsumedAt = &t
	}
	return row, nil
}

// Consume marks the token consumed and returns the owning user id. The
// conditional UPDATE is the serialization point: of two concurrent calls
// with the same token, exactly one matches the unconsumed row. Missing,
// expired and already-consumed tokens all come back as
// common.ErrorNotFound.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	query := `
		UPDATE password_reset_tokens
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING user_id
	`
	var userID string
	if err := r.db.QueryRowContext(ctx, query, token, now).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return userID, nil
}
