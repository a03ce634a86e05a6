// Package access decides who may see paid content and who may start a
// conversation with whom. Everything here is side-effect free; data comes in
// as arguments or through a Lookup.
package access

import (
	"context"
	"time"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/entitlements"
)

// PreviewRunes is how much of a paywalled body stays visible.
const PreviewRunes = 220

const ellipsis = "…"

// IsBusinessPlanActive reports whether a profile may be listed. Only SHOP
// profiles need a paid plan or a running trial; every other type is active.
func IsBusinessPlanActive(u *models.User, now time.Time) bool {
	if u == nil || u.ProfileType != models.ProfileTypeShop {
		return true
	}
	return entitlements.IsActive(u.MembershipExpiresAt, now) || entitlements.IsActive(u.ShopTrialEndsAt, now)
}

// HasActiveSubscription reports whether sub grants viewerID access to authorID at now.
func HasActiveSubscription(sub *models.ProfileSubscription, viewerID, authorID uint, now time.Time) bool {
	if sub == nil || viewerID == 0 {
		return false
	}
	return sub.SubscriberID == viewerID && sub.ProfileID == authorID && sub.IsActiveAt(now)
}

// IsContentPaywalled reports whether post must be redacted for viewerID.
// Authors always see their own posts. A zero viewerID is an anonymous visitor.
func IsContentPaywalled(post *models.Post, viewerID uint, sub *models.ProfileSubscription, now time.Time) bool {
	return IsPaywalledFor(post, viewerID, HasActiveSubscription(sub, viewerID, post.AuthorID, now))
}

// IsPaywalledFor is IsContentPaywalled for callers that already resolved the
// viewer's subscription to the author.
func IsPaywalledFor(post *models.Post, viewerID uint, subscribed bool) bool {
	if post.IsPublic {
		return false
	}
	if viewerID != 0 && viewerID == post.AuthorID {
		return false
	}
	return !subscribed || viewerID == 0
}

// Redact cuts body to the preview length and always appends an ellipsis.
func Redact(body string) string {
	runes := []rune(body)
	if len(runes) > PreviewRunes {
		runes = runes[:PreviewRunes]
	}
	return string(runes) + ellipsis
}

// Lookup loads what CanMessage needs. FindUser returns nil without error for
// unknown ids.
type Lookup interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	HasActiveSubscription(ctx context.Context, subscriberID, profileID uint, now time.Time) (bool, error)
	HasConversation(ctx context.Context, a, b uint) (bool, error)
}

// CanMessage reports whether viewerID may send a message to targetID.
// Rules apply in order: self, business profiles, creators that allow free
// messages or have the viewer subscribed, and finally any existing thread.
func CanMessage(ctx context.Context, lookup Lookup, viewerID, targetID uint, now time.Time) (bool, error) {
	if viewerID == 0 || targetID == 0 {
		return false, nil
	}
	if viewerID == targetID {
		return true, nil
	}

	target, err := lookup.FindUser(ctx, targetID)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}

	switch target.ProfileType {
	case models.ProfileTypeShop, models.ProfileTypeProfessional:
		return true, nil
	case models.ProfileTypeCreator:
		if target.AllowFreeMessages {
			return true, nil
		}
		return lookup.HasActiveSubscription(ctx, viewerID, targetID, now)
	}

	return lookup.HasConversation(ctx, viewerID, targetID)
}
