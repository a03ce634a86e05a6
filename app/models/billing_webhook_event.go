package models

import "time"

const BillingProviderKhipu = "khipu"

// BillingWebhookEvent is the audit trail of every provider callback delivery.
// Replays of the same body share a ProviderEventID and are stored once.
type BillingWebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID   string     `gorm:"type:varchar(191);not null;index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"providerEventId"`
	ProviderPaymentID string     `gorm:"type:varchar(191);index" json:"providerPaymentId"`
	ReportedStatus    string     `gorm:"type:varchar(32)" json:"reportedStatus"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payloadJson"`
	SignatureValid    bool       `gorm:"default:false" json:"signatureValid"`
	Result            string     `gorm:"type:varchar(32);index" json:"result"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processedAt,omitempty"`
	ProcessingError   string     `gorm:"type:text" json:"processingError"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
