package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/billing"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// KhipuSignatureHeader carries the "t=<ts>,s=<hex>" callback signature.
const KhipuSignatureHeader = "x-khipu-signature"

// BillingService is the part of billing.Service the HTTP layer uses.
type BillingService interface {
	StartCreatorSubscription(ctx context.Context, subscriberID, profileID uint) (*billing.StartResult, error)
	StartShopPlan(ctx context.Context, userID uint) (*billing.StartResult, error)
	StartMembership(ctx context.Context, userID uint) (*billing.StartResult, error)
	GetIntentForSubscriber(ctx context.Context, intentID, subscriberID uint) (*models.PaymentIntent, error)
	RefreshIntent(ctx context.Context, intentID, subscriberID uint) (*models.PaymentIntent, error)
	HandleCallback(ctx context.Context, rawBody []byte, signatureHeader string) (*billing.CallbackResult, error)
}

// BillingController handles payment starts and Khipu callbacks
type BillingController struct {
	billing BillingService
}

func NewBillingController(svc BillingService) *BillingController {
	return &BillingController{billing: svc}
}

type startSubscriptionRequest struct {
	ProfileID uint `json:"profileId"`
}

// HandleStartCreatorSubscription opens a payment for a creator subscription.
func (bc *BillingController) HandleStartCreatorSubscription(c *fiber.Ctx) error {
	var req startSubscriptionRequest
	if err := c.BodyParser(&req); err != nil || req.ProfileID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "PROFILE_REQUIRED")
	}
	res, err := bc.billing.StartCreatorSubscription(c.UserContext(), usercontext.GetUserID(c), req.ProfileID)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(res)
}

func (bc *BillingController) HandleStartShopPlan(c *fiber.Ctx) error {
	res, err := bc.billing.StartShopPlan(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(res)
}

func (bc *BillingController) HandleStartMembership(c *fiber.Ctx) error {
	res, err := bc.billing.StartMembership(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(res)
}

// HandleGetIntent returns one of the caller's payment intents.
func (bc *BillingController) HandleGetIntent(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "INTENT_NOT_FOUND")
	}
	intent, err := bc.billing.GetIntentForSubscriber(c.UserContext(), id, usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"intent": intent})
}

// HandleRefreshIntent polls Khipu for an intent whose callback never arrived.
func (bc *BillingController) HandleRefreshIntent(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "INTENT_NOT_FOUND")
	}
	intent, err := bc.billing.RefreshIntent(c.UserContext(), id, usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"intent": intent})
}

// HandleKhipuWebhook reconciles a Khipu payment callback. The signature is
// computed over the raw body, so the body must not be re-encoded before this.
func (bc *BillingController) HandleKhipuWebhook(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)
	res, err := bc.billing.HandleCallback(c.UserContext(), raw, c.Get(KhipuSignatureHeader))
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "status": res.Status})
}

// billingError maps billing errors to status codes and error codes. Unknown
// errors go to the app ErrorHandler.
func billingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrProfileRequired):
		return errorJSON(c, fiber.StatusBadRequest, "PROFILE_REQUIRED")
	case errors.Is(err, billing.ErrProfileNotFound):
		return errorJSON(c, fiber.StatusNotFound, "PROFILE_NOT_FOUND")
	case errors.Is(err, billing.ErrNotSubscribable):
		return errorJSON(c, fiber.StatusBadRequest, "NOT_SUBSCRIBABLE")
	case errors.Is(err, billing.ErrSelfSubscribe):
		return errorJSON(c, fiber.StatusBadRequest, "SELF_SUBSCRIBE")
	case errors.Is(err, billing.ErrNotAllowed):
		return errorJSON(c, fiber.StatusBadRequest, "NOT_ALLOWED")
	case errors.Is(err, billing.ErrInvalidAmount), errors.Is(err, billing.ErrInvalidPurpose):
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_AMOUNT")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorJSON(c, fiber.StatusNotFound, "USER_NOT_FOUND")
	// ErrInvalidProviderResponse wraps ErrUpstreamProvider, so it goes first.
	case errors.Is(err, billing.ErrInvalidProviderResponse):
		return errorJSON(c, fiber.StatusBadGateway, "KHIPU_INVALID_RESPONSE")
	case errors.Is(err, billing.ErrUpstreamProvider):
		return errorJSON(c, fiber.StatusBadGateway, "UPSTREAM_PAYMENT_ERROR")
	case errors.Is(err, billing.ErrIntentNotFound):
		return errorJSON(c, fiber.StatusNotFound, "INTENT_NOT_FOUND")
	case errors.Is(err, billing.ErrInvalidSignature):
		log.Warnf("[Billing] rejected callback from %s: invalid signature", GetClientIP(c))
		return errorJSON(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE")
	case errors.Is(err, billing.ErrInvalidPayload):
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_PAYLOAD")
	}
	return err
}
