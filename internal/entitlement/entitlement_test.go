package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

var msk = time.FixedZone("MSK", 3*60*60)

func TestAccessLevelTrialWindow(t *testing.T) {
	for _, freeDays := range []int{3, 5} {
		engine := NewEngine(freeDays)
		reg := time.Date(2024, 3, 1, 12, 0, 0, 0, msk)
		rec := &users.Record{ID: 1, RegisteredAt: reg}

		// Day 2 is always inside the window.
		now := reg.AddDate(0, 0, 2)
		assert.Equal(t, Trial, engine.AccessLevel(rec, now), "free_days=%d", freeDays)

		// One day past the window locks the account.
		now = reg.AddDate(0, 0, freeDays)
		assert.Equal(t, Locked, engine.AccessLevel(rec, now), "free_days=%d", freeDays)
	}
}

func TestAccessLevelFullOverridesTrial(t *testing.T) {
	engine := NewEngine(3)
	reg := time.Date(2024, 1, 1, 0, 0, 0, 0, msk)
	end := reg.AddDate(0, 0, 60)
	rec := &users.Record{ID: 1, RegisteredAt: reg, SubscriptionEnd: &end}

	now := reg.AddDate(0, 0, 30)
	assert.Equal(t, Full, engine.AccessLevel(rec, now))

	// Expired subscription falls through to the trial/locked logic.
	now = end.Add(time.Minute)
	assert.Equal(t, Locked, engine.AccessLevel(rec, now))
}

func TestDaysSinceClampsNegative(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, msk)
	future := now.AddDate(0, 0, 5)
	assert.Equal(t, 0, DaysSince(future, now))
}

func TestExtendNeverShortens(t *testing.T) {
	engine := NewEngine(3)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, msk)
	rec := &users.Record{ID: 1, RegisteredAt: now.AddDate(0, 0, -10)}

	first := engine.Extend(rec, now, 1)
	assert.Equal(t, now.AddDate(0, 0, 30), first)

	// A second activation stacks on top of the first, not on now.
	second := engine.Extend(rec, now, 1)
	assert.Equal(t, first.AddDate(0, 0, 30), second)
	require.NotNil(t, rec.SubscriptionEnd)
	assert.Equal(t, second, *rec.SubscriptionEnd)
}

func TestExtendFromExpiredUsesNow(t *testing.T) {
	engine := NewEngine(3)
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, msk)
	old := now.AddDate(0, 0, -5)
	rec := &users.Record{ID: 1, RegisteredAt: now.AddDate(0, 0, -90), SubscriptionEnd: &old}

	end := engine.Extend(rec, now, 2)
	assert.Equal(t, now.AddDate(0, 0, 60), end)
}

func TestTrialDaysLeft(t *testing.T) {
	engine := NewEngine(3)
	reg := time.Date(2024, 3, 1, 9, 0, 0, 0, msk)
	rec := &users.Record{ID: 1, RegisteredAt: reg}

	assert.Equal(t, 3, engine.TrialDaysLeft(rec, reg))
	assert.Equal(t, 1, engine.TrialDaysLeft(rec, reg.AddDate(0, 0, 2)))
	assert.Equal(t, 0, engine.TrialDaysLeft(rec, reg.AddDate(0, 0, 7)))
}
