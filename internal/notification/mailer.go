package notification

import (
	"context"

	"hrm-server/internal/events"

	"go.uber.org/zap"
)

// Mailer delivers an email taken off the notification topic.
type Mailer interface {
	Deliver(ctx context.Context, email events.NotificationEmail) error
}

// LogMailer stands in for an SMTP or provider integration.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger ...*zap.Logger) *LogMailer {
	l := zap.L().Named("notification.mailer")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.mailer")
	}
	return &LogMailer{logger: l}
}

func (m *LogMailer) Deliver(ctx context.Context, email events.NotificationEmail) error {
	m.logger.Info("email delivered",
		zap.String("event", email.Event),
		zap.String("application_id", email.ApplicationID),
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return nil
}
