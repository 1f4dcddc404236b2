package remind

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

var msk = time.FixedZone("MSK", 3*60*60)

type captureNotifier struct {
	mu   sync.Mutex
	sent map[int64]int
}

func (n *captureNotifier) Notify(userID int64, _ flow.Reply) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[int64]int)
	}
	n.sent[userID]++
}

func (n *captureNotifier) count(id int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[id]
}

func setup(t *testing.T) (*Scheduler, *clock.Fixed, *users.Repo, *captureNotifier) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, 3, 10, 9, 0, 0, 0, msk))
	repo := users.NewRepo(storage.NewMemory())
	notifier := &captureNotifier{}
	return New(clk, repo, notifier, 2, time.Hour), clk, repo, notifier
}

func addUser(t *testing.T, repo *users.Repo, id int64, now time.Time, endIn time.Duration) {
	t.Helper()
	rec := &users.Record{ID: id, RegisteredAt: now.AddDate(0, -1, 0)}
	if endIn != 0 {
		end := now.Add(endIn)
		rec.SubscriptionEnd = &end
	}
	require.NoError(t, repo.Save(context.Background(), rec))
}

func TestScanRemindsExpiringOnly(t *testing.T) {
	s, clk, repo, notifier := setup(t)
	now := clk.Now()

	addUser(t, repo, 1, now, 36*time.Hour)    // inside the window
	addUser(t, repo, 2, now, 10*24*time.Hour) // far away
	addUser(t, repo, 3, now, 0)               // never subscribed
	addUser(t, repo, 4, now, -time.Hour)      // already expired

	s.Scan(context.Background())

	assert.Equal(t, 1, notifier.count(1))
	assert.Equal(t, 0, notifier.count(2))
	assert.Equal(t, 0, notifier.count(3))
	assert.Equal(t, 0, notifier.count(4))
}

func TestScanRemindsOncePerDay(t *testing.T) {
	s, clk, repo, notifier := setup(t)
	addUser(t, repo, 1, clk.Now(), 36*time.Hour)
	ctx := context.Background()

	s.Scan(ctx)
	s.Scan(ctx)
	assert.Equal(t, 1, notifier.count(1), "same-day rescans must not repeat the nudge")

	clk.Advance(24 * time.Hour)
	s.Scan(ctx)
	assert.Equal(t, 2, notifier.count(1), "the next day nudges again while still expiring")
}
