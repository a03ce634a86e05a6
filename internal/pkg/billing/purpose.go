package billing

import (
	"strings"

	"github.com/uzeed/uzeed/app/models"
)

func normalizePurpose(purpose string) (string, bool) {
	switch p := strings.ToUpper(strings.TrimSpace(purpose)); p {
	case models.PaymentPurposeMembership, models.PaymentPurposeCreatorSubscription, models.PaymentPurposeShopPlan:
		return p, true
	default:
		return "", false
	}
}

// resolveAmount applies the price rules of each purpose. Creator prices come
// from the profile and are clamped; plans use the configured price.
func (s Settings) resolveAmount(purpose string, requested int) (int, error) {
	switch purpose {
	case models.PaymentPurposeCreatorSubscription:
		amount := requested
		if amount <= 0 {
			amount = s.DefaultCreatorPrice
		}
		if amount < s.MinCreatorPrice {
			amount = s.MinCreatorPrice
		}
		if s.MaxCreatorPrice > 0 && amount > s.MaxCreatorPrice {
			amount = s.MaxCreatorPrice
		}
		if amount <= 0 {
			return 0, ErrInvalidAmount
		}
		return amount, nil
	case models.PaymentPurposeMembership:
		if s.MembershipPriceCLP <= 0 {
			return 0, ErrInvalidAmount
		}
		return s.MembershipPriceCLP, nil
	case models.PaymentPurposeShopPlan:
		if s.ShopMonthlyPriceCLP <= 0 {
			return 0, ErrInvalidAmount
		}
		return s.ShopMonthlyPriceCLP, nil
	default:
		return 0, ErrInvalidPurpose
	}
}

// periodDays is the entitlement length bought by one payment of purpose.
func (s Settings) periodDays(purpose string) int {
	if purpose == models.PaymentPurposeCreatorSubscription {
		return s.SubscriptionDays
	}
	return s.MembershipDays
}

// isSuccessStatus reports whether a provider status means the money arrived.
func isSuccessStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "done", "enabled":
		return true
	default:
		return false
	}
}
