package models

import "time"

type Message struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	FromID        uint       `gorm:"not null;index:idx_messages_pair,priority:1" json:"fromId"`
	ToID          uint       `gorm:"not null;index:idx_messages_pair,priority:2;index" json:"toId"`
	Body          string     `gorm:"type:text;not null" json:"body"`
	AttachmentURL string     `gorm:"type:varchar(512)" json:"attachmentUrl,omitempty"`
	ReadAt        *time.Time `gorm:"type:timestamp;default:null" json:"readAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
}
