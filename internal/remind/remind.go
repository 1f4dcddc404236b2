// Package remind runs the background subscription-expiry scan: users
// whose subscription ends within the configured window get a renewal
// prompt with a pay button, at most once per day.
package remind

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

const logComponent = "service.remind"

// Scheduler owns the periodic scan.
type Scheduler struct {
	clk      clock.Clock
	users    *users.Repo
	notify   flow.Notifier
	window   time.Duration
	interval time.Duration
}

// New builds a scheduler that reminds expiryDays ahead every interval.
func New(clk clock.Clock, repo *users.Repo, notify flow.Notifier, expiryDays int, interval time.Duration) *Scheduler {
	if expiryDays <= 0 {
		expiryDays = 2
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		clk:      clk,
		users:    repo,
		notify:   notify,
		window:   time.Duration(expiryDays) * 24 * time.Hour,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled. Scan failures are logged, never
// retried mid-cycle.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx, logComponent, "scheduler.started",
		slog.Int("interval_mins", int(s.interval.Minutes())),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, logComponent, "scheduler.stopped")
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan walks all profiles once and nudges the expiring ones.
func (s *Scheduler) Scan(ctx context.Context) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		logger.Error(ctx, logComponent, "scan.list_failed",
			slog.String("err", err.Error()),
		)
		return
	}

	now := s.clk.Now()
	today := now.Format("2006-01-02")
	var sent int
	for _, id := range ids {
		rec, err := s.users.Get(ctx, id)
		if err != nil {
			logger.Warn(ctx, logComponent, "scan.load_failed",
				slog.Int64("user_id", id),
				slog.String("err", err.Error()),
			)
			continue
		}
		if !s.expiringSoon(rec, now) || rec.LastExpiryReminder == today {
			continue
		}

		days := int(rec.SubscriptionEnd.Sub(now).Hours()/24) + 1
		s.notify.Notify(id, flow.Reply{
			Text: fmt.Sprintf("Подписка закончится через %d дн. Продли, чтобы не потерять статистику и SOS.", days),
			Menu: flow.MenuPaywall,
		})
		sent++

		rec.LastExpiryReminder = today
		if err := s.users.Save(ctx, rec); err != nil {
			logger.Warn(ctx, logComponent, "scan.save_failed",
				slog.Int64("user_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
	logger.Info(ctx, logComponent, "scan.done",
		slog.Int("count", len(ids)),
		slog.Int("messages", sent),
	)
}

// expiringSoon reports whether the subscription is active and ends
// inside the reminder window.
func (s *Scheduler) expiringSoon(rec *users.Record, now time.Time) bool {
	if rec.SubscriptionEnd == nil {
		return false
	}
	end := *rec.SubscriptionEnd
	return end.After(now) && end.Sub(now) <= s.window
}
