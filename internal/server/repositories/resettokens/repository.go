// Package resettokens defines the password-reset-token repository boundary
// and its PostgreSQL implementation.
package resettokens

import (
	"context"
	"time"

	"github.com/dstepanov2008/shopauth/internal/server/models"
)

// Repository is the persistence boundary for password reset tokens.
//
// Consume is the only way a token's consumed state changes, and it must be
// atomic with respect to concurrent redemptions of the same token string:
// exactly one caller observes success.
type Repository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	Find(ctx context.Context, token string) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, token string, now time.Time) (userID string, err error)
}
