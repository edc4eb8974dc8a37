package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers verification mail. Delivery is fire-and-forget from the
// registration flow's perspective: a send failure is logged, never surfaced
// to the registering user.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// LogMailer writes the verification token to the log instead of sending
// mail. Used in development and wherever no mail transport is configured.
type LogMailer struct {
	logger *zap.Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.L()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(_ context.Context, email, token string) error {
	m.logger.Info("verification mail",
		zap.String("email", email),
		zap.String("token", token),
	)
	return nil
}
