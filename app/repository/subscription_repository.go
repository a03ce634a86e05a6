package repository

import (
	"errors"
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) active(now time.Time) *gorm.DB {
	return r.db.Model(&models.ProfileSubscription{}).
		Where("status = ? AND expires_at > ?", models.SubscriptionStatusActive, now)
}

func (r *subscriptionRepository) Get(subscriberID, profileID uint) (*models.ProfileSubscription, error) {
	var sub models.ProfileSubscription
	err := r.db.Where("subscriber_id = ? AND profile_id = ?", subscriberID, profileID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) IsActive(subscriberID, profileID uint, now time.Time) (bool, error) {
	var count int64
	err := r.active(now).
		Where("subscriber_id = ? AND profile_id = ?", subscriberID, profileID).
		Count(&count).Error
	return count > 0, err
}

// ActiveProfileIDs lists the profiles subscriberID currently follows
func (r *subscriptionRepository) ActiveProfileIDs(subscriberID uint, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.active(now).Where("subscriber_id = ?", subscriberID).Pluck("profile_id", &ids).Error
	return ids, err
}

func (r *subscriptionRepository) ActiveAmong(subscriberID uint, profileIDs []uint, now time.Time) (map[uint]bool, error) {
	out := make(map[uint]bool, len(profileIDs))
	if subscriberID == 0 || len(profileIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.active(now).
		Where("subscriber_id = ? AND profile_id IN ?", subscriberID, profileIDs).
		Pluck("profile_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *subscriptionRepository) ActiveSubscriberIDs(profileID uint, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.active(now).Where("profile_id = ?", profileID).Pluck("subscriber_id", &ids).Error
	return ids, err
}
