package models

import (
	"encoding/json"
	"time"
)

const (
	NotificationSubscriptionStarted = "SUBSCRIPTION_STARTED"
	NotificationMembershipExtended  = "MEMBERSHIP_EXTENDED"
	NotificationMessageReceived     = "MESSAGE_RECEIVED"
	NotificationPostPublished       = "POST_PUBLISHED"
)

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"userId"`
	Type      string     `gorm:"type:varchar(40);not null" json:"type" validate:"oneof=SUBSCRIPTION_STARTED MEMBERSHIP_EXTENDED MESSAGE_RECEIVED POST_PUBLISHED"`
	DataJSON  string     `gorm:"type:text" json:"-"`
	ReadAt    *time.Time `gorm:"type:timestamp;default:null" json:"readAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
}

// Data decodes the stored payload for API responses.
func (n *Notification) Data() map[string]interface{} {
	out := map[string]interface{}{}
	if n.DataJSON == "" {
		return out
	}
	_ = json.Unmarshal([]byte(n.DataJSON), &out)
	return out
}

func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	return json.Marshal(struct {
		alias
		Data map[string]interface{} `json:"data"`
	}{alias: alias(n), Data: n.Data()})
}

// NewNotification builds an unsaved notification with a JSON data payload.
func NewNotification(userID uint, notificationType string, data map[string]interface{}) (*Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Notification{
		UserID:   userID,
		Type:     notificationType,
		DataJSON: string(raw),
	}, nil
}
