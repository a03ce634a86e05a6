package billing

import (
	"context"
	"errors"
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// WithContext returns a repository whose queries are bound to ctx.
	WithContext(ctx context.Context) Repository
	CreateIntent(intent *models.PaymentIntent) error
	AttachProviderPayment(intentID uint, providerPaymentID, paymentURL string) error
	FindIntentByID(id uint) (*models.PaymentIntent, error)
	FindIntentByProviderPaymentID(providerPaymentID string) (*models.PaymentIntent, error)
	// MarkIntentFailed moves a PENDING intent to FAILED. It reports false when
	// the intent was no longer PENDING.
	MarkIntentFailed(id uint) (bool, error)
	FindUserByID(id uint) (*models.User, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, result, processingError string) error

	// Transaction runs fn against a repository bound to one DB transaction.
	Transaction(fn func(tx TxRepository) error) error
}

// TxRepository holds the writes of the PAID transition. All of them commit
// together or not at all.
type TxRepository interface {
	// MarkIntentPaid moves a PENDING intent to PAID. It reports false when a
	// concurrent delivery already settled the intent.
	MarkIntentPaid(id uint, paidAt time.Time) (bool, error)
	LockUser(id uint) (*models.User, error)
	SetMembershipExpiry(userID uint, expiresAt time.Time) error
	// LockSubscription returns nil without error when no row exists yet.
	LockSubscription(subscriberID, profileID uint) (*models.ProfileSubscription, error)
	UpsertSubscription(sub *models.ProfileSubscription) error
	CreateOutboxEvents(events []*models.OutboxEvent) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return &gormRepository{db: r.db.WithContext(ctx)}
}

func (r *gormRepository) CreateIntent(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

func (r *gormRepository) AttachProviderPayment(intentID uint, providerPaymentID, paymentURL string) error {
	return r.db.Model(&models.PaymentIntent{}).
		Where("id = ?", intentID).
		Updates(map[string]interface{}{
			"provider_payment_id": providerPaymentID,
			"payment_url":         paymentURL,
		}).Error
}

func (r *gormRepository) FindIntentByID(id uint) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.First(&intent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

func (r *gormRepository) FindIntentByProviderPaymentID(providerPaymentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("provider_payment_id = ?", providerPaymentID).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

func (r *gormRepository) MarkIntentFailed(id uint) (bool, error) {
	tx := r.db.Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, result, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"result":           result,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) Transaction(fn func(tx TxRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepository{db: tx})
	})
}

type gormTxRepository struct {
	db *gorm.DB
}

func (r *gormTxRepository) MarkIntentPaid(id uint, paidAt time.Time) (bool, error) {
	tx := r.db.Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":  models.PaymentStatusPaid,
			"paid_at": paidAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormTxRepository) LockUser(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormTxRepository) SetMembershipExpiry(userID uint, expiresAt time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("membership_expires_at", expiresAt).Error
}

func (r *gormTxRepository) LockSubscription(subscriberID, profileID uint) (*models.ProfileSubscription, error) {
	var sub models.ProfileSubscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subscriber_id = ? AND profile_id = ?", subscriberID, profileID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormTxRepository) UpsertSubscription(sub *models.ProfileSubscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subscriber_id"},
			{Name: "profile_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"expires_at",
			"price",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *gormTxRepository) CreateOutboxEvents(events []*models.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(events).Error
}
