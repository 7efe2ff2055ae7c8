package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hrm-server/internal/employee"
	"hrm-server/internal/events"
	"hrm-server/internal/messaging/kafka/producer"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Channel delivers a rendered message to one recipient.
type Channel interface {
	Send(ctx context.Context, to employee.Contact, msg Message) error
}

// LogChannel writes notifications to the log only. It is the development
// default.
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger ...*zap.Logger) *LogChannel {
	l := zap.L().Named("notification.log_channel")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.log_channel")
	}
	return &LogChannel{logger: l}
}

func (c *LogChannel) Send(ctx context.Context, to employee.Contact, msg Message) error {
	c.logger.Info("notification",
		zap.String("event", msg.Event),
		zap.String("application_id", msg.ApplicationID),
		zap.String("to", to.Email),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// KafkaChannel publishes rendered emails for the mailer consumer.
type KafkaChannel struct {
	writer producer.MessageWriter
	topic  string
	now    func() time.Time
}

func NewKafkaChannel(writer producer.MessageWriter, topic string) *KafkaChannel {
	if topic == "" {
		topic = events.NotificationEmailTopic
	}
	return &KafkaChannel{writer: writer, topic: topic, now: time.Now}
}

func (c *KafkaChannel) Send(ctx context.Context, to employee.Contact, msg Message) error {
	payload, err := json.Marshal(events.NotificationEmail{
		Event:         msg.Event,
		ApplicationID: msg.ApplicationID,
		To:            to.Email,
		ToName:        to.Name,
		Subject:       msg.Subject,
		HTML:          msg.HTML,
		Text:          msg.Text,
		OccurredAt:    c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification email: %w", err)
	}

	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: c.topic,
		Key:   []byte(to.ID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(msg.Event)},
		},
	})
}
