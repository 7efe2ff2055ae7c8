package consumer

import (
	"context"
	"encoding/json"

	"hrm-server/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumers need.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Mailer matches notification.Mailer without importing it.
type Mailer interface {
	Deliver(ctx context.Context, email events.NotificationEmail) error
}

func ConsumeNotificationEmails(
	ctx context.Context,
	reader MessageReader,
	mailer Mailer,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.notification_email")
	log.Info("notification email consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("notification email consumer stopped")
				return
			}
			log.Error("fetch notification email message failed", zap.Error(err))
			continue
		}

		var email events.NotificationEmail
		if err := json.Unmarshal(msg.Value, &email); err != nil {
			log.Error("decode notification email failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		// Delivery is best effort; a failed send is logged and committed so one
		// bad address cannot stall the partition.
		if err := mailer.Deliver(ctx, email); err != nil {
			log.Error("deliver notification email failed",
				zap.String("event", email.Event),
				zap.String("application_id", email.ApplicationID),
				zap.String("to", email.To),
				zap.Error(err),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit notification email message failed", zap.Error(err))
			continue
		}
	}
}
