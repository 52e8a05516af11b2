package notify

import (
	"context"
	"time"

	"github.com/dstepanov2008/shopauth/internal/logging"
)

// LogPublisher writes the reset token to the log instead of queueing it.
// Used when no broker is configured; only suitable for local development,
// since the log becomes a channel for live reset tokens.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("module", "notify")}
}

func (p *LogPublisher) SendResetMail(ctx context.Context, email, token string, expiresAt time.Time) error {
	p.logger.Warn(ctx, "no broker configured, logging reset token instead of mailing it",
		"email", email, "token", token, "expires_at", expiresAt)
	return nil
}
