package models

import "time"

// ServiceItem is a priced offering listed on a professional or shop profile.
type ServiceItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"ownerId"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(120)" json:"category"`
	Price       *int      `json:"price"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ServiceRating holds one rating per (profile, rater).
type ServiceRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProfileID uint      `gorm:"not null;index:ux_service_ratings_profile_rater,unique,priority:1" json:"profileId"`
	RaterID   uint      `gorm:"not null;index:ux_service_ratings_profile_rater,unique,priority:2" json:"raterId"`
	Rating    int       `gorm:"not null" json:"rating" validate:"min=1,max=5"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
