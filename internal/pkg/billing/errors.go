package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature means the callback signature was missing, malformed,
	// stale or did not match the configured secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload means the callback body lacked a payment id or status.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrIntentNotFound means no local intent matches the provider payment id.
	ErrIntentNotFound = errors.New("payment intent not found")

	ErrUpstreamProvider        = errors.New("payment provider error")
	ErrInvalidProviderResponse = fmt.Errorf("%w: response lacks payment id or url", ErrUpstreamProvider)

	ErrInvalidPurpose  = errors.New("invalid payment purpose")
	ErrInvalidAmount   = errors.New("invalid payment amount")
	ErrProfileRequired = errors.New("profile id is required")
	ErrProfileNotFound = errors.New("profile not found")
	ErrNotSubscribable = errors.New("profile does not accept subscriptions")
	ErrSelfSubscribe   = errors.New("cannot subscribe to own profile")
	ErrNotAllowed      = errors.New("profile type does not allow this plan")
)

// KhipuError is a non-2xx answer from the Khipu API.
type KhipuError struct {
	Status  int
	Path    string
	Message string
}

func (e *KhipuError) Error() string {
	return fmt.Sprintf("khipu %s failed: status=%d body=%s", e.Path, e.Status, e.Message)
}

// Is lets callers match any KhipuError with errors.Is(err, ErrUpstreamProvider).
func (e *KhipuError) Is(target error) bool {
	return target == ErrUpstreamProvider
}
