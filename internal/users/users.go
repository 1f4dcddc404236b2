// Package users stores per-user profiles on top of the key-value store.
package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prostoMif/UnTT-v1.0/internal/storage"
)

const profileKeyPrefix = "user:"
const profileKeySuffix = ":profile"

// Record is the persisted profile of a single user.
type Record struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`

	// RegisteredAt is set on first /start and never changes.
	RegisteredAt time.Time `json:"registered_at"`

	// SubscriptionEnd is nil for users who never paid.
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`

	TrialStarted bool `json:"trial_started"`

	// UpsellShown guards the trial-boundary payment screen so it is
	// rendered at most once.
	UpsellShown bool `json:"upsell_shown"`

	// PendingChargeID carries the last created payment between the
	// "pay" and "check payment" steps.
	PendingChargeID string `json:"pending_charge_id,omitempty"`

	// LastExpiryReminder is the date the renewal reminder was last
	// sent, so the daily scan nudges at most once per day.
	LastExpiryReminder string `json:"last_expiry_reminder,omitempty"`
}

// ProfileKey builds the storage key for a user id.
func ProfileKey(userID int64) string {
	return profileKeyPrefix + strconv.FormatInt(userID, 10) + profileKeySuffix
}

// UserIDFromProfileKey extracts the user id from a profile key.
func UserIDFromProfileKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, profileKeyPrefix) || !strings.HasSuffix(key, profileKeySuffix) {
		return 0, false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(key, profileKeyPrefix), profileKeySuffix)
	id, err := strconv.ParseInt(mid, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Repo reads and writes profiles.
type Repo struct {
	store storage.Store
}

// NewRepo wraps a store.
func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

// Get loads a profile. Returns storage.ErrNotFound for unknown users.
func (r *Repo) Get(ctx context.Context, userID int64) (*Record, error) {
	var rec Record
	if err := r.store.Get(ctx, ProfileKey(userID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save persists a profile.
func (r *Repo) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("users: nil record")
	}
	return r.store.Set(ctx, ProfileKey(rec.ID), rec)
}

// Ensure returns the existing profile or registers a new one with the
// given identity and registration time. The registration timestamp of
// an existing profile is never touched.
func (r *Repo) Ensure(ctx context.Context, userID int64, username, firstName string, now time.Time) (*Record, bool, error) {
	rec, err := r.Get(ctx, userID)
	if err == nil {
		changed := false
		if username != "" && rec.Username != username {
			rec.Username = username
			changed = true
		}
		if firstName != "" && rec.FirstName != firstName {
			rec.FirstName = firstName
			changed = true
		}
		if changed {
			if err := r.Save(ctx, rec); err != nil {
				return nil, false, err
			}
		}
		return rec, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	rec = &Record{
		ID:           userID,
		Username:     username,
		FirstName:    firstName,
		RegisteredAt: now,
	}
	if err := r.Save(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ListIDs returns ids of all registered users.
func (r *Repo) ListIDs(ctx context.Context) ([]int64, error) {
	keys, err := r.store.ListKeys(ctx, profileKeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		if id, ok := UserIDFromProfileKey(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
