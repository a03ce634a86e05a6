package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/mail"
)

const (
	DefaultBatchSize = 50
	DefaultWorkers   = 2
	DefaultInterval  = 5 * time.Second
)

var dispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "uzeed_outbox_dispatch_total",
	Help: "Outbox events handled by the dispatcher, by topic and result.",
}, []string{"topic", "result"})

// Dispatcher drains undelivered outbox rows: notification events become
// Notification rows, email events are handed to the mail sender. A failed
// delivery increments the attempt counter; rows stop being retried after
// models.OutboxMaxAttempts.
type Dispatcher struct {
	outbox        repository.OutboxRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        mail.Sender

	batchSize int
	workers   int
	interval  time.Duration
	now       func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type Option func(*Dispatcher)

func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(repos *repository.Repositories, mailer mail.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		outbox:        repos.Outbox,
		notifications: repos.Notification,
		users:         repos.User,
		mailer:        mailer,
		batchSize:     DefaultBatchSize,
		workers:       DefaultWorkers,
		interval:      DefaultInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start polls the outbox every interval until Stop is called.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.stopCh = make(chan struct{})
	d.running = true

	d.wg.Add(1)
	go d.loop()
	log.Infof("[Outbox] Dispatcher started (workers=%d, interval=%s)", d.workers, d.interval)
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	close(d.stopCh)
	d.running = false
	d.wg.Wait()
	log.Info("[Outbox] Dispatcher stopped")
}

func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stopCh
		cancel()
	}()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				log.Errorf("[Outbox] Dispatch error: %v", err)
			}
		}
	}
}

// DispatchOnce handles one batch of pending events and returns how many were
// delivered. Per-event failures are recorded on the row, not returned.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.outbox.ListPending(d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var (
		mu        sync.Mutex
		delivered int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range events {
		event := events[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if d.handle(&event) {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return delivered, nil
}

func (d *Dispatcher) handle(event *models.OutboxEvent) bool {
	err := d.deliver(event)
	if err != nil {
		dispatched.WithLabelValues(event.Topic, "failed").Inc()
		log.Warnf("[Outbox] Event %d (%s) attempt %d failed: %v", event.ID, event.Topic, event.Attempts+1, err)
		if markErr := d.outbox.MarkAttemptFailed(event.ID, err.Error()); markErr != nil {
			log.Errorf("[Outbox] Failed to record attempt for event %d: %v", event.ID, markErr)
		}
		if event.Attempts+1 >= models.OutboxMaxAttempts {
			log.Errorf("[Outbox] Event %d gave up after %d attempts", event.ID, models.OutboxMaxAttempts)
		}
		return false
	}

	if err := d.outbox.MarkDispatched(event.ID, d.now()); err != nil {
		// delivered but not marked: the event will be delivered again
		log.Errorf("[Outbox] Failed to mark event %d dispatched: %v", event.ID, err)
		return false
	}
	dispatched.WithLabelValues(event.Topic, "ok").Inc()
	return true
}

func (d *Dispatcher) deliver(event *models.OutboxEvent) error {
	switch event.Topic {
	case models.OutboxTopicNotification:
		var payload models.NotificationPayload
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
			return fmt.Errorf("decode notification payload: %w", err)
		}
		n, err := models.NewNotification(event.UserID, payload.Type, payload.Data)
		if err != nil {
			return err
		}
		return d.notifications.Create(n)
	case models.OutboxTopicEmail:
		var payload models.EmailPayload
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		if d.mailer == nil {
			return mail.ErrNotConfigured
		}
		user, err := d.users.GetByID(event.UserID)
		if err != nil {
			return fmt.Errorf("load recipient %d: %w", event.UserID, err)
		}
		return d.mailer.Send(user.Email, payload.Subject, payload.Body)
	default:
		return fmt.Errorf("unknown outbox topic %q", event.Topic)
	}
}
