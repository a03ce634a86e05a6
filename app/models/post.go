package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MediaTypeImage = "IMAGE"
	MediaTypeVideo = "VIDEO"
)

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Body      string    `gorm:"type:text" json:"body" validate:"max=20000"`
	IsPublic  bool      `gorm:"default:false;index" json:"isPublic"`
	Price     int       `gorm:"not null;default:0" json:"price" validate:"min=0"`
	Type      string    `gorm:"type:varchar(8);not null;default:'IMAGE';index" json:"type"`
	Media     []Media   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"media"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Post) Validate() error {
	return validator.New().Struct(p)
}

type Media struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"postId"`
	Type       string    `gorm:"type:varchar(8);not null" json:"type"`
	URL        string    `gorm:"type:varchar(512);not null" json:"url"`
	StorageKey string    `gorm:"type:varchar(512)" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Media) TableName() string {
	return "media"
}
