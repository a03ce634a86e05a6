package models

import "time"

const (
	PaymentPurposeMembership          = "MEMBERSHIP"
	PaymentPurposeCreatorSubscription = "CREATOR_SUBSCRIPTION"
	PaymentPurposeShopPlan            = "SHOP_PLAN"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

const CurrencyCLP = "CLP"

// PaymentIntent is a pending charge a user initiated. It moves from PENDING to
// PAID or FAILED exactly once and is never reopened.
type PaymentIntent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SubscriberID      uint       `gorm:"not null;index" json:"subscriberId"`
	ProfileID         *uint      `gorm:"index" json:"profileId,omitempty"`
	Purpose           string     `gorm:"type:varchar(32);not null" json:"purpose" validate:"oneof=MEMBERSHIP CREATOR_SUBSCRIPTION SHOP_PLAN"`
	Amount            int        `gorm:"not null" json:"amount"`
	Currency          string     `gorm:"type:varchar(8);not null;default:'CLP'" json:"currency"`
	Status            string     `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	ProviderPaymentID *string    `gorm:"type:varchar(191);uniqueIndex:ux_payment_intents_provider_payment_id" json:"providerPaymentId,omitempty"`
	PaymentURL        string     `gorm:"type:varchar(512)" json:"paymentUrl,omitempty"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paidAt,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *PaymentIntent) IsPending() bool {
	return p.Status == PaymentStatusPending
}

func (p *PaymentIntent) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// IsTerminal reports whether the intent already left PENDING.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusFailed
}
