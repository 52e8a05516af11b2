package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/dbx"
	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/models"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/repomanager"
)

// resetTokenBytes is the entropy of a reset token: 32 random bytes,
// hex-encoded to 64 characters. Far beyond brute-force reach within the
// short validity window.
const resetTokenBytes = 32

// ResetTokenManager owns the password-reset token lifecycle: it is the only
// component that creates tokens or flips their consumed state.
type ResetTokenManager struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	ttl    time.Duration
	logger logging.Logger
	now    func() time.Time
}

func NewResetTokenManager(db *sql.DB, rm repomanager.RepositoryManager, ttl time.Duration, logger logging.Logger) *ResetTokenManager {
	return &ResetTokenManager{
		db:     db,
		rm:     rm,
		ttl:    ttl,
		logger: logger.With("module", "reset_tokens"),
		now:    time.Now,
	}
}

// Generate mints a fresh single-use token for the user and stores it with
// expiry now+ttl.
func (m *ResetTokenManager) Generate(ctx context.Context, userID string) (string, time.Time, error) {
	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", time.Time{}, common.ErrorInternal
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	repo := m.rm.ResetTokens(m.db)
	err = repo.Create(ctx, &models.PasswordResetToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error storing reset token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateAndConsume atomically redeems the token and returns the owning
// user id. It runs against the provided handle so callers can bundle the
// redemption with follow-up writes in one transaction; a rollback restores
// the token.
//
// Missing, expired and already-consumed tokens are indistinguishable to the
// caller (common.ErrResetTokenInvalid); the actual reason is only logged.
func (m *ResetTokenManager) ValidateAndConsume(ctx context.Context, db dbx.DBTX, token string) (string, error) {
	userID, err := m.rm.ResetTokens(db).Consume(ctx, token, m.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			m.logger.Warn(ctx, "reset token rejected", "reason", m.rejectionReason(ctx, db, token))
			return "", common.ErrResetTokenInvalid
		}
		return "", fmt.Errorf("error consuming reset token: %w", err)
	}
	return userID, nil
}

// rejectionReason classifies a failed redemption for the logs.
func (m *ResetTokenManager) rejectionReason(ctx context.Context, db dbx.DBTX, token string) string {
	t, err := m.rm.ResetTokens(db).Find(ctx, token)
	if err != nil {
		return "not_found"
	}
	switch {
	case t.ConsumedAt != nil:
		return "already_consumed"
	case !t.ExpiresAt.After(m.now()):
		return "expired"
	default:
		return "unknown"
	}
}
