package models

import "time"

const (
	SubscriptionStatusActive   = "ACTIVE"
	SubscriptionStatusCanceled = "CANCELED"
	SubscriptionStatusExpired  = "EXPIRED"
)

// ProfileSubscription grants a subscriber access to a creator's paywalled
// posts until ExpiresAt. One row per (subscriber, profile).
type ProfileSubscription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubscriberID uint      `gorm:"not null;index:ux_profile_subscriptions_subscriber_profile,unique,priority:1" json:"subscriberId"`
	ProfileID    uint      `gorm:"not null;index:ux_profile_subscriptions_subscriber_profile,unique,priority:2;index" json:"profileId"`
	Status       string    `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	ExpiresAt    time.Time `gorm:"type:timestamp;not null;index" json:"expiresAt"`
	Price        int       `gorm:"not null;default:0" json:"price"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsActiveAt reports whether the subscription grants access at now.
func (s *ProfileSubscription) IsActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt.After(now)
}
