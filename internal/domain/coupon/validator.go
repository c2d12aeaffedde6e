package coupon

import (
	"strings"
	"time"
)

// Validate checks the coupon's date window and usage limits against the
// current tallies. It never mutates usage. An empty email skips the per-user
// check.
func Validate(c *Coupon, usage []UsageRecord, email string, now time.Time) Reason {
	if c.HasDateWindow && (now.Before(c.StartsAt) || now.After(c.EndsAt)) {
		return ReasonExpired
	}
	if c.UsageLimitEnabled && totalUses(usage) >= c.UsageLimit {
		return ReasonGlobalLimit
	}
	email = normalizeEmail(email)
	if c.PerUserLimitEnabled && email != "" && usesBy(usage, email) >= c.PerUserLimit {
		return ReasonPerUserLimit
	}
	return ReasonNone
}

func totalUses(usage []UsageRecord) int {
	n := 0
	for _, u := range usage {
		n += u.Count
	}
	return n
}

func usesBy(usage []UsageRecord, email string) int {
	n := 0
	for _, u := range usage {
		if u.Email != "" && normalizeEmail(u.Email) == email {
			n += u.Count
		}
	}
	return n
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
