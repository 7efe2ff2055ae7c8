package consumer_test

import (
	"context"
	"errors"
	"testing"

	"hrm-server/internal/events"
	"hrm-server/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeReader serves its messages once and then blocks until ctx is cancelled.
type fakeReader struct {
	messages  []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

type fakeMailer struct {
	delivered []events.NotificationEmail
	deliverFn func(email events.NotificationEmail) error
}

func (f *fakeMailer) Deliver(ctx context.Context, email events.NotificationEmail) error {
	if f.deliverFn != nil {
		if err := f.deliverFn(email); err != nil {
			return err
		}
	}
	f.delivered = append(f.delivered, email)
	return nil
}

func TestConsumeNotificationEmails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		messages: []kafkago.Message{
			{Offset: 1, Value: []byte(`{"event":"application.approved","application_id":"app-1","to":"rina@example.com","subject":"Application approved"}`)},
			{Offset: 2, Value: []byte(`not-json`)},
			{Offset: 3, Value: []byte(`{"event":"application.rejected","application_id":"app-2","to":"bounce@example.com"}`)},
		},
	}
	mailer := &fakeMailer{
		deliverFn: func(email events.NotificationEmail) error {
			if email.To == "bounce@example.com" {
				return errors.New("mailbox unavailable")
			}
			return nil
		},
	}

	consumer.ConsumeNotificationEmails(ctx, reader, mailer, zap.NewNop())

	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	if assert.Len(t, mailer.delivered, 1) {
		assert.Equal(t, "app-1", mailer.delivered[0].ApplicationID)
		assert.Equal(t, "rina@example.com", mailer.delivered[0].To)
	}
}
