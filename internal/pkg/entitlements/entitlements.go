package entitlements

import "time"

// DefaultPeriodDays is the length of one paid period when nothing else is configured.
const DefaultPeriodDays = 30

// Extend returns the new expiry after granting days on top of current.
// Time still left on an active entitlement is preserved: the period is added
// to current when it lies in the future, otherwise to now. Arithmetic is done
// in UTC calendar days so subscription rows and user columns agree.
func Extend(current *time.Time, days int, now time.Time) time.Time {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	base := now.UTC()
	if current != nil && current.After(now) {
		base = current.UTC()
	}
	return base.AddDate(0, 0, days)
}

// IsActive reports whether an optional expiry is still in the future.
func IsActive(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.After(now)
}

// TrialEnd is the end of a free trial of days starting at now.
func TrialEnd(now time.Time, days int) time.Time {
	return Extend(nil, days, now)
}

// DaysRemaining rounds the time left up to whole days; expired entitlements return 0.
func DaysRemaining(expiresAt *time.Time, now time.Time) int {
	if !IsActive(expiresAt, now) {
		return 0
	}
	left := expiresAt.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}
