package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/config"
	"github.com/uzeed/uzeed/internal/pkg/entitlements"
)

// Service opens payment intents with Khipu and reconciles provider callbacks
// into entitlements.
type Service struct {
	repo     Repository
	provider PaymentProvider
	settings Settings
	now      func() time.Time
}

// NewService creates a billing service from an injected repository and provider.
func NewService(repo Repository, provider PaymentProvider, settings Settings) *Service {
	if settings.SignatureTolerance <= 0 {
		settings.SignatureTolerance = DefaultSignatureTolerance
	}
	if settings.ProviderTimeout <= 0 {
		settings.ProviderTimeout = 10 * time.Second
	}
	if settings.MembershipDays <= 0 {
		settings.MembershipDays = entitlements.DefaultPeriodDays
	}
	if settings.SubscriptionDays <= 0 {
		settings.SubscriptionDays = entitlements.DefaultPeriodDays
	}
	return &Service{
		repo:     repo,
		provider: provider,
		settings: settings,
		now:      time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle and the app config.
func NewServiceFromDB(db *gorm.DB, cfg *config.Config) *Service {
	return NewService(NewRepository(db), NewKhipuClient(cfg.Khipu), SettingsFromConfig(cfg))
}

// SettingsFromConfig maps the environment configuration onto service settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		WebhookSecret:       cfg.Khipu.WebhookSecret,
		SignatureTolerance:  cfg.Billing.WebhookTimestampSkew,
		ProviderTimeout:     cfg.Khipu.Timeout,
		ReturnURL:           cfg.Khipu.ReturnURL,
		CancelURL:           cfg.Khipu.CancelURL,
		NotifyURL:           cfg.Khipu.NotifyURL,
		MembershipDays:      cfg.Billing.MembershipDays,
		SubscriptionDays:    cfg.Billing.SubscriptionDays,
		MembershipPriceCLP:  cfg.Billing.MembershipPriceCLP,
		ShopMonthlyPriceCLP: cfg.Billing.ShopMonthlyPriceCLP,
		DefaultCreatorPrice: cfg.Billing.DefaultCreatorPrice,
		MinCreatorPrice:     cfg.Billing.MinCreatorPrice,
		MaxCreatorPrice:     cfg.Billing.MaxCreatorPrice,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SignatureCheckDisabled is true when no webhook secret is configured and
// callbacks are accepted unsigned.
func (s *Service) SignatureCheckDisabled() bool {
	return strings.TrimSpace(s.settings.WebhookSecret) == ""
}

// CreateIntent persists a PENDING intent and opens the matching Khipu payment.
// A provider failure leaves the intent PENDING without a provider id.
func (s *Service) CreateIntent(ctx context.Context, in StartIntentInput) (*models.PaymentIntent, error) {
	if in.SubscriberID == 0 {
		return nil, errors.New("subscriber id is required")
	}
	purpose, ok := normalizePurpose(in.Purpose)
	if !ok {
		return nil, ErrInvalidPurpose
	}
	if purpose == models.PaymentPurposeCreatorSubscription && (in.ProfileID == nil || *in.ProfileID == 0) {
		return nil, ErrProfileRequired
	}
	amount, err := s.settings.resolveAmount(purpose, in.Amount)
	if err != nil {
		return nil, err
	}

	intent := &models.PaymentIntent{
		SubscriberID: in.SubscriberID,
		ProfileID:    in.ProfileID,
		Purpose:      purpose,
		Amount:       amount,
		Currency:     models.CurrencyCLP,
		Status:       models.PaymentStatusPending,
	}
	repo := s.repo.WithContext(ctx)
	if err := repo.CreateIntent(intent); err != nil {
		return nil, err
	}

	subject := in.Subject
	if subject == "" {
		subject = "Pago UZEED"
	}
	pctx, cancel := context.WithTimeout(ctx, s.settings.ProviderTimeout)
	defer cancel()
	payment, err := s.provider.CreatePayment(pctx, KhipuPaymentRequest{
		Amount:        amount,
		Currency:      models.CurrencyCLP,
		Subject:       subject,
		Body:          in.Description,
		TransactionID: strconv.FormatUint(uint64(intent.ID), 10),
		ReturnURL:     s.settings.ReturnURL,
		CancelURL:     s.settings.CancelURL,
		NotifyURL:     s.settings.NotifyURL,
	})
	if err != nil {
		intentsStarted.WithLabelValues(purpose, "upstream_error").Inc()
		log.Errorf("[Billing] create payment failed intent=%d purpose=%s: %v", intent.ID, purpose, err)
		if !errors.Is(err, ErrUpstreamProvider) {
			err = fmt.Errorf("%w: %v", ErrUpstreamProvider, err)
		}
		return nil, err
	}
	if payment == nil || strings.TrimSpace(payment.PaymentID) == "" || strings.TrimSpace(payment.PaymentURL) == "" {
		intentsStarted.WithLabelValues(purpose, "invalid_response").Inc()
		log.Errorf("[Billing] khipu returned no payment id or url intent=%d", intent.ID)
		return nil, ErrInvalidProviderResponse
	}

	if err := repo.AttachProviderPayment(intent.ID, payment.PaymentID, payment.PaymentURL); err != nil {
		return nil, err
	}
	pid := payment.PaymentID
	intent.ProviderPaymentID = &pid
	intent.PaymentURL = payment.PaymentURL
	intentsStarted.WithLabelValues(purpose, "created").Inc()
	log.Infof("[Billing] intent=%d purpose=%s amount=%d opened payment=%s", intent.ID, purpose, amount, pid)
	return intent, nil
}

// StartCreatorSubscription opens a subscription payment to a creator profile.
func (s *Service) StartCreatorSubscription(ctx context.Context, subscriberID, profileID uint) (*StartResult, error) {
	if profileID == 0 {
		return nil, ErrProfileRequired
	}
	profile, err := s.repo.WithContext(ctx).FindUserByID(profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if profile.ProfileType != models.ProfileTypeCreator {
		return nil, ErrNotSubscribable
	}
	if profile.ID == subscriberID {
		return nil, ErrSelfSubscribe
	}

	price := 0
	if profile.SubscriptionPrice != nil {
		price = *profile.SubscriptionPrice
	}
	pid := profile.ID
	intent, err := s.CreateIntent(ctx, StartIntentInput{
		SubscriberID: subscriberID,
		Purpose:      models.PaymentPurposeCreatorSubscription,
		Amount:       price,
		ProfileID:    &pid,
		Subject:      "Suscripción a " + profile.Username,
		Description:  "Suscripción mensual UZEED para " + profile.Username,
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{IntentID: intent.ID, PaymentURL: intent.PaymentURL}, nil
}

// StartShopPlan opens the monthly business plan payment. Only SHOP profiles may buy it.
func (s *Service) StartShopPlan(ctx context.Context, userID uint) (*StartResult, error) {
	user, err := s.repo.WithContext(ctx).FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.ProfileType != models.ProfileTypeShop {
		return nil, ErrNotAllowed
	}
	intent, err := s.CreateIntent(ctx, StartIntentInput{
		SubscriberID: user.ID,
		Purpose:      models.PaymentPurposeShopPlan,
		Subject:      "Plan negocio UZEED",
		Description:  "Plan mensual negocio - " + user.Username,
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{IntentID: intent.ID, PaymentURL: intent.PaymentURL}, nil
}

// StartMembership opens the monthly platform membership payment.
func (s *Service) StartMembership(ctx context.Context, userID uint) (*StartResult, error) {
	user, err := s.repo.WithContext(ctx).FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	intent, err := s.CreateIntent(ctx, StartIntentInput{
		SubscriberID: user.ID,
		Purpose:      models.PaymentPurposeMembership,
		Subject:      "Suscripción mensual UZEED",
		Description:  "Membresía mensual - " + user.Username,
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{IntentID: intent.ID, PaymentURL: intent.PaymentURL}, nil
}

// FindByProviderPaymentID resolves the intent behind a Khipu payment id.
// A blank id is reported as ErrIntentNotFound.
func (s *Service) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.PaymentIntent, error) {
	id := strings.TrimSpace(providerPaymentID)
	if id == "" {
		return nil, ErrIntentNotFound
	}
	return s.repo.WithContext(ctx).FindIntentByProviderPaymentID(id)
}

// GetIntentForSubscriber returns an intent only to the user who opened it.
func (s *Service) GetIntentForSubscriber(ctx context.Context, intentID, subscriberID uint) (*models.PaymentIntent, error) {
	intent, err := s.repo.WithContext(ctx).FindIntentByID(intentID)
	if err != nil {
		return nil, err
	}
	if intent.SubscriberID != subscriberID {
		return nil, ErrIntentNotFound
	}
	return intent, nil
}

// RefreshIntent asks Khipu for the current payment status and applies it when
// the payment succeeded. Used when a callback never arrived. Non-final statuses
// such as "pending" or "verifying" leave the intent PENDING so a later
// callback can still settle it.
func (s *Service) RefreshIntent(ctx context.Context, intentID, subscriberID uint) (*models.PaymentIntent, error) {
	intent, err := s.GetIntentForSubscriber(ctx, intentID, subscriberID)
	if err != nil {
		return nil, err
	}
	if !intent.IsPending() || intent.ProviderPaymentID == nil {
		return intent, nil
	}

	pctx, cancel := context.WithTimeout(ctx, s.settings.ProviderTimeout)
	defer cancel()
	payment, err := s.provider.GetPayment(pctx, *intent.ProviderPaymentID)
	if err != nil {
		return nil, err
	}
	if !isSuccessStatus(payment.Status) {
		return intent, nil
	}
	repo := s.repo.WithContext(ctx)
	if _, err := s.reconcile(repo, intent, payment.Status); err != nil {
		return nil, err
	}
	return repo.FindIntentByID(intent.ID)
}

// HandleCallback verifies, records and reconciles one Khipu payment callback.
// Deliveries are idempotent: only the first success for an intent applies
// entitlements and notifications.
func (s *Service) HandleCallback(ctx context.Context, rawBody []byte, signatureHeader string) (*CallbackResult, error) {
	repo := s.repo.WithContext(ctx)
	signatureValid := true
	if !s.SignatureCheckDisabled() {
		signatureValid = VerifyKhipuSignature(rawBody, signatureHeader, s.settings.WebhookSecret, s.now(), s.settings.SignatureTolerance)
	}

	var payload callbackPayload
	_ = json.Unmarshal(rawBody, &payload)

	eventID, created := s.recordDelivery(repo, rawBody, payload, signatureValid)

	result, err := s.handleCallback(ctx, repo, rawBody, signatureValid)
	label := callbackResultLabel(result, err)
	webhookDeliveries.WithLabelValues(label).Inc()

	if created {
		errText := ""
		if err != nil {
			errText = err.Error()
		}
		if markErr := repo.MarkWebhookProcessed(eventID, label, errText); markErr != nil {
			log.Warnf("[Billing] mark webhook event %d processed failed: %v", eventID, markErr)
		}
	}
	return result, err
}

func (s *Service) handleCallback(ctx context.Context, repo Repository, rawBody []byte, signatureValid bool) (*CallbackResult, error) {
	if !signatureValid {
		return nil, ErrInvalidSignature
	}

	var payload callbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	paymentID := strings.TrimSpace(payload.paymentID())
	if paymentID == "" || strings.TrimSpace(payload.Status) == "" {
		return nil, ErrInvalidPayload
	}

	intent, err := s.FindByProviderPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(repo, intent, payload.Status)
}

func (s *Service) reconcile(repo Repository, intent *models.PaymentIntent, providerStatus string) (*CallbackResult, error) {
	res := &CallbackResult{IntentID: intent.ID, Status: intent.Status}
	if intent.IsPaid() {
		return res, nil
	}

	if !isSuccessStatus(providerStatus) {
		if !intent.IsPending() {
			return res, nil
		}
		changed, err := repo.MarkIntentFailed(intent.ID)
		if err != nil {
			return nil, err
		}
		if changed {
			log.Infof("[Billing] intent=%d marked FAILED provider_status=%s", intent.ID, providerStatus)
			res.Status = models.PaymentStatusFailed
			return res, nil
		}
		return currentStatus(repo, intent.ID)
	}

	if intent.Status == models.PaymentStatusFailed {
		log.Warnf("[Billing] intent=%d is FAILED, ignoring success status %q", intent.ID, providerStatus)
		return res, nil
	}

	now := s.now().UTC()
	applied := false
	err := repo.Transaction(func(tx TxRepository) error {
		won, err := tx.MarkIntentPaid(intent.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		applied = true
		events, err := s.applyEntitlement(tx, intent, now)
		if err != nil {
			return err
		}
		return tx.CreateOutboxEvents(events)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return currentStatus(repo, intent.ID)
	}

	log.Infof("[Billing] intent=%d purpose=%s marked PAID", intent.ID, intent.Purpose)
	return &CallbackResult{IntentID: intent.ID, Status: models.PaymentStatusPaid, Applied: true}, nil
}

func currentStatus(repo Repository, intentID uint) (*CallbackResult, error) {
	latest, err := repo.FindIntentByID(intentID)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{IntentID: latest.ID, Status: latest.Status}, nil
}

// applyEntitlement extends the paid entitlement and returns the outbox rows
// to write in the same transaction.
func (s *Service) applyEntitlement(tx TxRepository, intent *models.PaymentIntent, now time.Time) ([]*models.OutboxEvent, error) {
	switch intent.Purpose {
	case models.PaymentPurposeCreatorSubscription:
		if intent.ProfileID == nil || *intent.ProfileID == 0 {
			log.Warnf("[Billing] intent=%d creator subscription without profile, no entitlement applied", intent.ID)
			return nil, nil
		}
		return s.extendSubscription(tx, intent, *intent.ProfileID, now)
	case models.PaymentPurposeMembership, models.PaymentPurposeShopPlan:
		return s.extendMembership(tx, intent, now)
	default:
		log.Warnf("[Billing] intent=%d has unknown purpose %q", intent.ID, intent.Purpose)
		return nil, nil
	}
}

func (s *Service) extendSubscription(tx TxRepository, intent *models.PaymentIntent, profileID uint, now time.Time) ([]*models.OutboxEvent, error) {
	existing, err := tx.LockSubscription(intent.SubscriberID, profileID)
	if err != nil {
		return nil, err
	}
	var current *time.Time
	if existing != nil {
		current = &existing.ExpiresAt
	}
	expiresAt := entitlements.Extend(current, s.settings.periodDays(intent.Purpose), now)

	sub := &models.ProfileSubscription{
		SubscriberID: intent.SubscriberID,
		ProfileID:    profileID,
		Status:       models.SubscriptionStatusActive,
		ExpiresAt:    expiresAt,
		Price:        intent.Amount,
	}
	if err := tx.UpsertSubscription(sub); err != nil {
		return nil, err
	}

	expires := expiresAt.Format(time.RFC3339)
	toCreator, err := models.NewNotificationEvent(profileID, models.NotificationSubscriptionStarted, map[string]interface{}{
		"subscriberId": intent.SubscriberID,
		"expiresAt":    expires,
	})
	if err != nil {
		return nil, err
	}
	toSubscriber, err := models.NewNotificationEvent(intent.SubscriberID, models.NotificationSubscriptionStarted, map[string]interface{}{
		"profileId": profileID,
		"expiresAt": expires,
	})
	if err != nil {
		return nil, err
	}
	email, err := models.NewEmailEvent(intent.SubscriberID,
		"Tu suscripción está activa",
		fmt.Sprintf("Tu suscripción quedó activa hasta el %s.", expiresAt.Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	return []*models.OutboxEvent{toCreator, toSubscriber, email}, nil
}

func (s *Service) extendMembership(tx TxRepository, intent *models.PaymentIntent, now time.Time) ([]*models.OutboxEvent, error) {
	user, err := tx.LockUser(intent.SubscriberID)
	if err != nil {
		return nil, err
	}
	expiresAt := entitlements.Extend(user.MembershipExpiresAt, s.settings.periodDays(intent.Purpose), now)
	if err := tx.SetMembershipExpiry(user.ID, expiresAt); err != nil {
		return nil, err
	}

	notificationType := models.NotificationMembershipExtended
	if intent.Purpose == models.PaymentPurposeShopPlan {
		notificationType = models.NotificationSubscriptionStarted
	}
	event, err := models.NewNotificationEvent(user.ID, notificationType, map[string]interface{}{
		"purpose":   intent.Purpose,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return []*models.OutboxEvent{event}, nil
}

// recordDelivery stores the audit row for a callback. Rejected deliveries keep
// only the body hash and reported status, never the body. Failures are logged
// and never block reconciliation.
func (s *Service) recordDelivery(repo Repository, rawBody []byte, payload callbackPayload, signatureValid bool) (uint, bool) {
	sum := sha256.Sum256(rawBody)
	event := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderKhipu,
		ProviderEventID: "hash:" + hex.EncodeToString(sum[:]),
		ReportedStatus:  truncate(strings.TrimSpace(payload.Status), 32),
		SignatureValid:  signatureValid,
	}
	if signatureValid {
		event.ProviderPaymentID = truncate(strings.TrimSpace(payload.paymentID()), 191)
		event.PayloadJSON = string(rawBody)
	} else {
		event.ProviderEventID = "rejected:" + hex.EncodeToString(sum[:])
	}
	created, stored, err := repo.CreateWebhookEventIfNotExists(event)
	if err != nil {
		log.Warnf("[Billing] record webhook event failed: %v", err)
		return 0, false
	}
	return stored.ID, created
}

func callbackResultLabel(res *CallbackResult, err error) string {
	switch {
	case err == nil && res != nil && res.Applied:
		return WebhookResultPaid
	case err == nil && res != nil && res.Status == models.PaymentStatusFailed:
		return WebhookResultFailed
	case err == nil:
		return WebhookResultReplay
	case errors.Is(err, ErrInvalidSignature):
		return WebhookResultInvalidSignature
	case errors.Is(err, ErrInvalidPayload):
		return WebhookResultInvalidPayload
	case errors.Is(err, ErrIntentNotFound):
		return WebhookResultNotFound
	default:
		return WebhookResultError
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
