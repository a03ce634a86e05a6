package billing

import (
	"context"
	"time"
)

// PaymentProvider is the subset of the Khipu API the service needs.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, req KhipuPaymentRequest) (*KhipuPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*KhipuPayment, error)
}

// Settings carries prices, periods and provider URLs into the service.
type Settings struct {
	WebhookSecret      string
	SignatureTolerance time.Duration
	ProviderTimeout    time.Duration

	ReturnURL string
	CancelURL string
	NotifyURL string

	MembershipDays      int
	SubscriptionDays    int
	MembershipPriceCLP  int
	ShopMonthlyPriceCLP int
	DefaultCreatorPrice int
	MinCreatorPrice     int
	MaxCreatorPrice     int
}

// StartIntentInput is what a paid action needs to open a PaymentIntent.
type StartIntentInput struct {
	SubscriberID uint
	Purpose      string
	Amount       int
	ProfileID    *uint
	Subject      string
	Description  string
}

// StartResult is returned to the client to redirect into the provider checkout.
type StartResult struct {
	IntentID   uint   `json:"intentId"`
	PaymentURL string `json:"paymentUrl"`
}

// CallbackResult is the acknowledgement for a provider callback.
type CallbackResult struct {
	IntentID uint   `json:"-"`
	Status   string `json:"status"`
	// Applied is true only for the delivery that moved the intent to PAID.
	Applied bool `json:"-"`
}

// callbackPayload accepts both snake and camel case payment ids.
type callbackPayload struct {
	PaymentID      string `json:"payment_id"`
	PaymentIDCamel string `json:"paymentId"`
	Status         string `json:"status"`
}

func (p callbackPayload) paymentID() string {
	if p.PaymentID != "" {
		return p.PaymentID
	}
	return p.PaymentIDCamel
}
