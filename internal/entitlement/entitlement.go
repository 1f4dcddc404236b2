// Package entitlement computes the access tier a user currently holds.
// The engine is pure: it reads a profile and a point in time and
// performs no I/O.
package entitlement

import (
	"time"

	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

// Level is the computed access tier.
type Level string

const (
	// Full means an active paid subscription.
	Full Level = "FULL"
	// Trial means the free window since registration is still open.
	Trial Level = "TRIAL"
	// Locked means neither a subscription nor trial days remain.
	Locked Level = "LOCKED"
)

// Engine derives access levels from profiles.
type Engine struct {
	// FreeDays is the trial window length in elapsed days.
	FreeDays int
	// SubscriptionDays is how many days one paid month adds.
	SubscriptionDays int
}

// NewEngine builds an engine with the configured trial window.
func NewEngine(freeDays int) *Engine {
	return &Engine{FreeDays: freeDays, SubscriptionDays: 30}
}

// DaysSince counts whole elapsed days from t to now, clamped at zero
// so clock skew can never produce a negative age.
func DaysSince(t, now time.Time) int {
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// AccessLevel reports the tier rec holds at the given instant.
func (e *Engine) AccessLevel(rec *users.Record, now time.Time) Level {
	if rec == nil {
		return Locked
	}
	if rec.SubscriptionEnd != nil && rec.SubscriptionEnd.After(now) {
		return Full
	}
	if DaysSince(rec.RegisteredAt, now) < e.FreeDays {
		return Trial
	}
	return Locked
}

// TrialDaysLeft reports how many free days remain, floored at zero.
func (e *Engine) TrialDaysLeft(rec *users.Record, now time.Time) int {
	left := e.FreeDays - DaysSince(rec.RegisteredAt, now)
	if left < 0 {
		return 0
	}
	return left
}

// Extend applies a paid period to rec in place and returns the new
// expiry. The base is the later of now and the current expiry, so a
// renewal never shortens an active subscription.
func (e *Engine) Extend(rec *users.Record, now time.Time, months int) time.Time {
	if months <= 0 {
		months = 1
	}
	base := now
	if rec.SubscriptionEnd != nil && rec.SubscriptionEnd.After(base) {
		base = *rec.SubscriptionEnd
	}
	days := e.SubscriptionDays
	if days <= 0 {
		days = 30
	}
	end := base.AddDate(0, 0, days*months)
	rec.SubscriptionEnd = &end
	return end
}
