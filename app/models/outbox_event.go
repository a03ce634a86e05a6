package models

import (
	"encoding/json"
	"time"
)

const (
	OutboxTopicNotification = "notification"
	OutboxTopicEmail        = "email"
)

const OutboxMaxAttempts = 5

// OutboxEvent is a side effect recorded inside a business transaction and
// delivered later by the outbox dispatcher.
type OutboxEvent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Topic        string     `gorm:"type:varchar(40);not null;index:idx_outbox_events_pending,priority:2" json:"topic"`
	UserID       uint       `gorm:"not null;index" json:"userId"`
	PayloadJSON  string     `gorm:"type:text;not null" json:"payloadJson"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"lastError,omitempty"`
	DispatchedAt *time.Time `gorm:"type:timestamp;default:null;index:idx_outbox_events_pending,priority:1" json:"dispatchedAt,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// NotificationPayload is the body of an OutboxTopicNotification event.
type NotificationPayload struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// EmailPayload is the body of an OutboxTopicEmail event.
type EmailPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func NewNotificationEvent(userID uint, notificationType string, data map[string]interface{}) (*OutboxEvent, error) {
	raw, err := json.Marshal(NotificationPayload{Type: notificationType, Data: data})
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{Topic: OutboxTopicNotification, UserID: userID, PayloadJSON: string(raw)}, nil
}

func NewEmailEvent(userID uint, subject, body string) (*OutboxEvent, error) {
	raw, err := json.Marshal(EmailPayload{Subject: subject, Body: body})
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{Topic: OutboxTopicEmail, UserID: userID, PayloadJSON: string(raw)}, nil
}

func (e *OutboxEvent) IsExhausted() bool {
	return e.Attempts >= OutboxMaxAttempts
}
