package notification

import (
	"context"
	"sync"
	"time"

	"hrm-server/internal/employee"
	"hrm-server/internal/events"
	"hrm-server/internal/shared/metrics"

	"go.uber.org/zap"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
	DefaultTimeout   = 5 * time.Second
)

// ContactResolver looks up where a notification should go.
type ContactResolver interface {
	Contact(ctx context.Context, id string) (employee.Contact, error)
}

type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Dispatcher is a bounded worker pool for post-commit notifications.
// Delivery is at most once: full queues drop, failures are logged and counted.
type Dispatcher struct {
	contacts ContactResolver
	channel  Channel
	queue    chan events.ApplicationNotification
	workers  int
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(contacts ContactResolver, channel Channel, opts Options, logger ...*zap.Logger) *Dispatcher {
	l := zap.L().Named("notification.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.dispatcher")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Dispatcher{
		contacts: contacts,
		channel:  channel,
		queue:    make(chan events.ApplicationNotification, opts.QueueSize),
		workers:  opts.Workers,
		timeout:  opts.Timeout,
		logger:   l,
	}
}

// Notify enqueues without blocking. It reports false when the job was dropped.
func (d *Dispatcher) Notify(n events.ApplicationNotification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.RecordNotification(n.Event, "dropped")
		d.logger.Warn("notification dropped after stop",
			zap.String("event", n.Event),
			zap.String("application_id", n.ApplicationID),
		)
		return false
	}

	select {
	case d.queue <- n:
		metrics.SetNotificationQueueDepth(len(d.queue))
		return true
	default:
		metrics.RecordNotification(n.Event, "dropped")
		d.logger.Warn("notification queue full, dropping",
			zap.String("event", n.Event),
			zap.String("application_id", n.ApplicationID),
			zap.String("recipient_id", n.RecipientID),
			zap.Int("capacity", cap(d.queue)),
		)
		return false
	}
}

// Start launches the workers. Jobs keep their own timeout and are not
// cancelled with ctx, so Stop can drain what is queued.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(base)
	}
	d.logger.Info("notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.Duration("timeout", d.timeout),
	)
}

// Stop refuses new jobs, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for n := range d.queue {
			metrics.RecordNotification(n.Event, "dropped")
		}
		return
	}
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		metrics.SetNotificationQueueDepth(len(d.queue))
		d.deliver(ctx, n)
	}
}

func (d *Dispatcher) deliver(parent context.Context, n events.ApplicationNotification) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	log := d.logger.With(
		zap.String("event", n.Event),
		zap.String("application_id", n.ApplicationID),
		zap.String("recipient_id", n.RecipientID),
	)

	to, err := d.contacts.Contact(ctx, n.RecipientID)
	if err != nil {
		metrics.RecordNotification(n.Event, "failed")
		log.Error("resolve notification recipient failed", zap.Error(err))
		return
	}
	if to.Email == "" {
		metrics.RecordNotification(n.Event, "skipped")
		log.Warn("notification recipient has no email")
		return
	}

	msg, err := Compose(n, to)
	if err != nil {
		metrics.RecordNotification(n.Event, "failed")
		log.Error("compose notification failed", zap.Error(err))
		return
	}

	if err := d.channel.Send(ctx, to, msg); err != nil {
		metrics.RecordNotification(n.Event, "failed")
		log.Error("send notification failed", zap.Error(err))
		return
	}
	metrics.RecordNotification(n.Event, "sent")
	log.Debug("notification sent")
}
