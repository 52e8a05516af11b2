package models

import "time"

// PasswordResetToken is a single-use, time-bounded token. ConsumedAt is nil
// until the token is redeemed; redemption is an atomic conditional update at
// the persistence layer, so two concurrent attempts cannot both win.
type PasswordResetToken struct {
	ID         int64
	UserID     string
	Token      string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
