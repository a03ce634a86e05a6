package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
)

type subKey struct {
	subscriber uint
	profile    uint
}

// memoryRepository is an in-memory Repository. Transactions are serialized and
// rolled back on error by restoring a snapshot.
type memoryRepository struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID uint

	intents       map[uint]*models.PaymentIntent
	users         map[uint]*models.User
	subscriptions map[subKey]*models.ProfileSubscription
	outbox        []*models.OutboxEvent
	webhookEvents map[string]*models.BillingWebhookEvent

	failOutbox bool
	boundCtx   context.Context
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		intents:       map[uint]*models.PaymentIntent{},
		users:         map[uint]*models.User{},
		subscriptions: map[subKey]*models.ProfileSubscription{},
		webhookEvents: map[string]*models.BillingWebhookEvent{},
	}
}

func (r *memoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memoryRepository) addUser(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		u.ID = r.id()
	}
	r.users[u.ID] = &u
	return &u
}

func (r *memoryRepository) WithContext(ctx context.Context) Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boundCtx = ctx
	return r
}

func (r *memoryRepository) CreateIntent(intent *models.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent.ID = r.id()
	cp := *intent
	r.intents[intent.ID] = &cp
	return nil
}

func (r *memoryRepository) AttachProviderPayment(intentID uint, providerPaymentID, paymentURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[intentID]
	if !ok {
		return ErrIntentNotFound
	}
	pid := providerPaymentID
	intent.ProviderPaymentID = &pid
	intent.PaymentURL = paymentURL
	return nil
}

func (r *memoryRepository) FindIntentByID(id uint) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

func (r *memoryRepository) FindIntentByProviderPaymentID(providerPaymentID string) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, intent := range r.intents {
		if intent.ProviderPaymentID != nil && *intent.ProviderPaymentID == providerPaymentID {
			cp := *intent
			return &cp, nil
		}
	}
	return nil, ErrIntentNotFound
}

func (r *memoryRepository) MarkIntentFailed(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[id]
	if !ok || intent.Status != models.PaymentStatusPending {
		return false, nil
	}
	intent.Status = models.PaymentStatusFailed
	return true, nil
}

func (r *memoryRepository) FindUserByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := r.webhookEvents[key]; ok {
		return false, stored, nil
	}
	event.ID = r.id()
	r.webhookEvents[key] = event
	return true, event, nil
}

func (r *memoryRepository) MarkWebhookProcessed(id uint, result, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range r.webhookEvents {
		if e.ID == id {
			e.Result = result
			e.ProcessingError = processingError
			e.ProcessedAt = &now
		}
	}
	return nil
}

func (r *memoryRepository) Transaction(fn func(tx TxRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snap := r.snapshot()
	if err := fn(&memoryTx{r: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	intents       map[uint]models.PaymentIntent
	users         map[uint]models.User
	subscriptions map[subKey]models.ProfileSubscription
	outboxLen     int
}

func (r *memoryRepository) snapshot() memorySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := memorySnapshot{
		intents:       map[uint]models.PaymentIntent{},
		users:         map[uint]models.User{},
		subscriptions: map[subKey]models.ProfileSubscription{},
		outboxLen:     len(r.outbox),
	}
	for k, v := range r.intents {
		s.intents[k] = *v
	}
	for k, v := range r.users {
		s.users[k] = *v
	}
	for k, v := range r.subscriptions {
		s.subscriptions[k] = *v
	}
	return s
}

func (r *memoryRepository) restore(s memorySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = map[uint]*models.PaymentIntent{}
	for k, v := range s.intents {
		v := v
		r.intents[k] = &v
	}
	r.users = map[uint]*models.User{}
	for k, v := range s.users {
		v := v
		r.users[k] = &v
	}
	r.subscriptions = map[subKey]*models.ProfileSubscription{}
	for k, v := range s.subscriptions {
		v := v
		r.subscriptions[k] = &v
	}
	r.outbox = r.outbox[:s.outboxLen]
}

func (r *memoryRepository) intent(id uint) models.PaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.intents[id]
}

func (r *memoryRepository) user(id uint) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

func (r *memoryRepository) subscription(subscriber, profile uint) *models.ProfileSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subscriptions[subKey{subscriber, profile}]
	if !ok {
		return nil
	}
	cp := *sub
	return &cp
}

func (r *memoryRepository) webhookEventList() []models.BillingWebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.BillingWebhookEvent, 0, len(r.webhookEvents))
	for _, e := range r.webhookEvents {
		out = append(out, *e)
	}
	return out
}

func (r *memoryRepository) outboxEvents() []*models.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.OutboxEvent(nil), r.outbox...)
}

type memoryTx struct {
	r *memoryRepository
}

func (t *memoryTx) MarkIntentPaid(id uint, paidAt time.Time) (bool, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	intent, ok := t.r.intents[id]
	if !ok || intent.Status != models.PaymentStatusPending {
		return false, nil
	}
	intent.Status = models.PaymentStatusPaid
	at := paidAt
	intent.PaidAt = &at
	return true, nil
}

func (t *memoryTx) LockUser(id uint) (*models.User, error) {
	return t.r.FindUserByID(id)
}

func (t *memoryTx) SetMembershipExpiry(userID uint, expiresAt time.Time) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	u, ok := t.r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	at := expiresAt
	u.MembershipExpiresAt = &at
	return nil
}

func (t *memoryTx) LockSubscription(subscriberID, profileID uint) (*models.ProfileSubscription, error) {
	return t.r.subscription(subscriberID, profileID), nil
}

func (t *memoryTx) UpsertSubscription(sub *models.ProfileSubscription) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	key := subKey{sub.SubscriberID, sub.ProfileID}
	if existing, ok := t.r.subscriptions[key]; ok {
		existing.Status = sub.Status
		existing.ExpiresAt = sub.ExpiresAt
		existing.Price = sub.Price
		return nil
	}
	cp := *sub
	cp.ID = t.r.id()
	t.r.subscriptions[key] = &cp
	return nil
}

func (t *memoryTx) CreateOutboxEvents(events []*models.OutboxEvent) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if t.r.failOutbox {
		return errors.New("outbox insert failed")
	}
	t.r.outbox = append(t.r.outbox, events...)
	return nil
}

// fakeProvider records Khipu calls and answers with canned payments.
type fakeProvider struct {
	mu       sync.Mutex
	requests []KhipuPaymentRequest
	payment  *KhipuPayment
	status   string
	err      error
}

func (p *fakeProvider) CreatePayment(ctx context.Context, req KhipuPaymentRequest) (*KhipuPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if p.payment != nil {
		return p.payment, nil
	}
	return &KhipuPayment{
		PaymentID:  "pay-" + req.TransactionID,
		PaymentURL: "https://khipu.test/pay/" + req.TransactionID,
	}, nil
}

func (p *fakeProvider) GetPayment(ctx context.Context, paymentID string) (*KhipuPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &KhipuPayment{PaymentID: paymentID, Status: p.status}, nil
}
