package repository

import (
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new outbox repository instance
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

// ListPending returns undelivered events that still have attempts left, oldest first
func (r *outboxRepository) ListPending(limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	q := r.db.Where("dispatched_at IS NULL AND attempts < ?", models.OutboxMaxAttempts).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func (r *outboxRepository) MarkDispatched(id uint, at time.Time) error {
	return r.db.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"dispatched_at": at,
		"last_error":    "",
	}).Error
}

func (r *outboxRepository) MarkAttemptFailed(id uint, lastError string) error {
	if len(lastError) > 1000 {
		lastError = lastError[:1000]
	}
	return r.db.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastError,
	}).Error
}
