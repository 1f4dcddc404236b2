package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
)

var msk = time.FixedZone("MSK", 3*60*60)

func newRecorder(t *testing.T, start time.Time) (*Recorder, *clock.Fixed, *storage.MemoryStore) {
	t.Helper()
	clk := clock.NewFixed(start)
	store := storage.NewMemory()
	return NewRecorder(store, clk, 7), clk, store
}

func TestSlipCounterDayBoundary(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 10, 23, 0, 0, 0, msk))

	require.NoError(t, rec.Record(ctx, 1, EventSlip))
	n, err := rec.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 06:30 next calendar day is still the same counting day.
	clk.Current = time.Date(2024, 3, 11, 6, 30, 0, 0, msk)
	require.NoError(t, rec.Record(ctx, 1, EventSlip))
	n, err = rec.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Past the 07:00 boundary the counter starts over.
	clk.Current = time.Date(2024, 3, 11, 7, 1, 0, 0, msk)
	require.NoError(t, rec.Record(ctx, 1, EventSlip))
	n, err = rec.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSlipsTodayZeroAfterQuietDay(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 10, 12, 0, 0, 0, msk))

	require.NoError(t, rec.Record(ctx, 1, EventSlip))
	clk.Advance(48 * time.Hour)

	n, err := rec.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAggregatePeriods(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 1, 12, 0, 0, 0, msk))

	require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	require.NoError(t, rec.Record(ctx, 1, EventAttempt))

	clk.Current = time.Date(2024, 3, 20, 12, 0, 0, 0, msk)
	require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))

	clk.Current = time.Date(2024, 3, 25, 9, 0, 0, 0, msk)
	require.NoError(t, rec.Record(ctx, 1, EventSosUsed))

	today, err := rec.Aggregate(ctx, 1, PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, map[EventType]int{EventSosUsed: 1}, today)

	week, err := rec.Aggregate(ctx, 1, PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, week[EventConsciousStop])
	assert.Equal(t, 1, week[EventSosUsed])
	assert.Equal(t, 0, week[EventAttempt])

	month, err := rec.Aggregate(ctx, 1, PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 2, month[EventConsciousStop])

	total, err := rec.Aggregate(ctx, 1, PeriodTotal)
	require.NoError(t, err)
	assert.Equal(t, 2, total[EventConsciousStop])
	assert.Equal(t, 1, total[EventAttempt])

	_, err = rec.Aggregate(ctx, 1, Period("year"))
	assert.Error(t, err)
}

func TestStreakConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 10, 10, 0, 0, 0, msk))

	for day := 0; day < 3; day++ {
		clk.Current = time.Date(2024, 3, 10+day, 10, 0, 0, 0, msk)
		require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	}

	current, best, err := rec.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, best)
}

func TestStreakSameDayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rec, _, _ := newRecorder(t, time.Date(2024, 3, 10, 10, 0, 0, 0, msk))

	require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))

	current, best, err := rec.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, best)
}

func TestStreakGapResets(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 1, 10, 0, 0, 0, msk))

	// Three-day run, then a gap, then a two-day run ending today.
	for _, day := range []int{1, 2, 3, 7, 8} {
		clk.Current = time.Date(2024, 3, day, 10, 0, 0, 0, msk)
		require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	}
	clk.Current = time.Date(2024, 3, 8, 22, 0, 0, 0, msk)

	current, best, err := rec.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, current)
	assert.Equal(t, 3, best)
}

func TestStreakSurvivesDSTTransition(t *testing.T) {
	ctx := context.Background()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// March 31, 2024 is the 23-hour spring-forward day in Berlin;
	// consecutive local midnights around it are not 24h apart.
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 30, 10, 0, 0, 0, berlin))
	for _, at := range []time.Time{
		time.Date(2024, 3, 30, 10, 0, 0, 0, berlin),
		time.Date(2024, 3, 31, 10, 0, 0, 0, berlin),
		time.Date(2024, 4, 1, 10, 0, 0, 0, berlin),
	} {
		clk.Current = at
		require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	}

	current, best, err := rec.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, best)
}

func TestStreakZeroWhenStale(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 1, 10, 0, 0, 0, msk))

	require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	clk.Current = time.Date(2024, 3, 10, 10, 0, 0, 0, msk)

	current, best, err := rec.Streak(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, current)
	assert.Equal(t, 1, best)
}

func TestConsciousDays(t *testing.T) {
	ctx := context.Background()
	rec, clk, _ := newRecorder(t, time.Date(2024, 3, 1, 10, 0, 0, 0, msk))

	for _, day := range []int{1, 1, 2, 5} {
		clk.Current = time.Date(2024, 3, day, 10, 0, 0, 0, msk)
		require.NoError(t, rec.Record(ctx, 1, EventConsciousStop))
	}

	n, err := rec.ConsciousDays(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordSurfacesStoreFailure(t *testing.T) {
	ctx := context.Background()
	rec, _, store := newRecorder(t, time.Date(2024, 3, 1, 10, 0, 0, 0, msk))

	store.FailNext = assert.AnError
	err := rec.Record(ctx, 1, EventAttempt)
	assert.Error(t, err)

	// The failed append must not have half-written anything.
	total, err := rec.TotalEvents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
