// Package stats is the append-only event recorder with period
// aggregates, the conscious-day streak, and the daily slip counter.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
)

// EventType classifies a recorded user action.
type EventType string

const (
	// EventAttempt marks an intercepted intent to open the app.
	EventAttempt EventType = "tiktok_attempt"
	// EventConsciousStop marks a voluntary stop at or before the plan.
	EventConsciousStop EventType = "conscious_stop"
	// EventSosUsed marks an SOS flow invocation.
	EventSosUsed EventType = "sos_used"
	// EventSlip marks a decision to continue despite the prompt.
	EventSlip EventType = "slip"
)

// Period selects the aggregation window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// Event is one immutable log entry.
type Event struct {
	Type EventType `json:"type"`
	At   time.Time `json:"at"`
}

type slipCounter struct {
	CountToday  int    `json:"count_today"`
	LastSlipDay string `json:"last_slip_day"`
}

func eventsKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":events"
}

func slipsKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":slips"
}

// Recorder appends events and derives aggregates from them.
type Recorder struct {
	store storage.Store
	clk   clock.Clock

	// boundaryHour shifts the slip-counting day. The streak keeps
	// using plain calendar days; the two rules stay separate.
	boundaryHour int
}

// NewRecorder builds a recorder with the configured day boundary.
func NewRecorder(store storage.Store, clk clock.Clock, boundaryHour int) *Recorder {
	return &Recorder{store: store, clk: clk, boundaryHour: boundaryHour}
}

// Record appends one event. A slip additionally bumps the daily slip
// counter, resetting it first when the counting day has rolled over.
func (r *Recorder) Record(ctx context.Context, userID int64, t EventType) error {
	now := r.clk.Now()

	events, err := r.load(ctx, userID)
	if err != nil {
		return err
	}
	events = append(events, Event{Type: t, At: now})
	if err := r.store.Set(ctx, eventsKey(userID), events); err != nil {
		return fmt.Errorf("stats: append %s: %w", t, err)
	}

	if t == EventSlip {
		if err := r.bumpSlipCounter(ctx, userID, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) load(ctx context.Context, userID int64) ([]Event, error) {
	var events []Event
	err := r.store.Get(ctx, eventsKey(userID), &events)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stats: load events: %w", err)
	}
	return events, nil
}

// countingDay maps an instant to its slip-counting date: hours before
// the boundary still belong to the previous day.
func (r *Recorder) countingDay(t time.Time) string {
	return t.Add(-time.Duration(r.boundaryHour) * time.Hour).Format("2006-01-02")
}

func (r *Recorder) bumpSlipCounter(ctx context.Context, userID int64, now time.Time) error {
	var counter slipCounter
	err := r.store.Get(ctx, slipsKey(userID), &counter)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("stats: load slip counter: %w", err)
	}

	day := r.countingDay(now)
	if counter.LastSlipDay != day {
		counter.CountToday = 0
	}
	counter.CountToday++
	counter.LastSlipDay = day

	if err := r.store.Set(ctx, slipsKey(userID), counter); err != nil {
		return fmt.Errorf("stats: save slip counter: %w", err)
	}
	return nil
}

// SlipsToday reports the slip count for the current counting day.
func (r *Recorder) SlipsToday(ctx context.Context, userID int64) (int, error) {
	var counter slipCounter
	err := r.store.Get(ctx, slipsKey(userID), &counter)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stats: load slip counter: %w", err)
	}
	if counter.LastSlipDay != r.countingDay(r.clk.Now()) {
		return 0, nil
	}
	return counter.CountToday, nil
}

// Aggregate counts events per type whose date falls inside the period.
func (r *Recorder) Aggregate(ctx context.Context, userID int64, p Period) (map[EventType]int, error) {
	events, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := r.clk.Now()
	var cutoff time.Time
	switch p {
	case PeriodToday:
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		cutoff = now.AddDate(0, 0, -7)
	case PeriodMonth:
		cutoff = now.AddDate(0, 0, -30)
	case PeriodTotal:
	default:
		return nil, fmt.Errorf("stats: unknown period %q", p)
	}

	counts := make(map[EventType]int)
	for _, e := range events {
		if !cutoff.IsZero() && e.At.Before(cutoff) {
			continue
		}
		counts[e.Type]++
	}
	return counts, nil
}

// consciousDaysDesc returns distinct calendar days with at least one
// conscious stop, newest first.
func (r *Recorder) consciousDaysDesc(events []Event) []time.Time {
	seen := make(map[string]time.Time)
	for _, e := range events {
		if e.Type != EventConsciousStop {
			continue
		}
		at := e.At.In(r.clk.Location())
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
		seen[day.Format("2006-01-02")] = day
	}
	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// Streak reports the current and best runs of consecutive calendar
// days containing a conscious stop. The current run must include
// today or yesterday, otherwise it is zero.
func (r *Recorder) Streak(ctx context.Context, userID int64) (current, best int, err error) {
	events, err := r.load(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	days := r.consciousDaysDesc(events)
	if len(days) == 0 {
		return 0, 0, nil
	}

	// Adjacency is a date relation, not a duration one: DST days are
	// 23 or 25 hours long in zones that observe it.
	runs := []int{1}
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			runs[len(runs)-1]++
		} else {
			runs = append(runs, 1)
		}
	}
	for _, n := range runs {
		if n > best {
			best = n
		}
	}

	now := r.clk.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if today.Equal(days[0]) || today.AddDate(0, 0, -1).Equal(days[0]) {
		current = runs[0]
	}
	return current, best, nil
}

// ConsciousDays counts distinct days with a conscious stop, the input
// to tree-growth stages.
func (r *Recorder) ConsciousDays(ctx context.Context, userID int64) (int, error) {
	events, err := r.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(r.consciousDaysDesc(events)), nil
}

// TotalEvents counts all events ever recorded for the user.
func (r *Recorder) TotalEvents(ctx context.Context, userID int64) (int, error) {
	events, err := r.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}
