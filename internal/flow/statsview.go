package flow

import (
	"context"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
)

// StatsView renders usage numbers. Paid users get the full breakdown;
// everyone else sees today only.
func (s *Service) StatsView(ctx context.Context, userID int64) Reply {
	level, _, err := s.accessLevel(ctx, userID)
	if err != nil {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	today, err := s.stats.Aggregate(ctx, userID, stats.PeriodToday)
	if err != nil {
		logger.Warn(ctx, logComponent, "stats.aggregate_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}
	todayStops := today[stats.EventConsciousStop]
	saved := todayStops * s.cfg.SavedMinutesPerStop

	if level != entitlement.Full {
		slips, err := s.stats.SlipsToday(ctx, userID)
		if err != nil {
			logger.Warn(ctx, logComponent, "stats.slips_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			slips = 0
		}
		return Reply{Text: textStatsFree(todayStops, saved, slips), Menu: MenuStats}
	}

	week, err := s.stats.Aggregate(ctx, userID, stats.PeriodWeek)
	if err != nil {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}
	month, err := s.stats.Aggregate(ctx, userID, stats.PeriodMonth)
	if err != nil {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}
	streak, best, err := s.stats.Streak(ctx, userID)
	if err != nil {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	text := textStatsPremium(
		todayStops, saved,
		week[stats.EventConsciousStop], month[stats.EventConsciousStop],
		streak, best,
		s.treeLine(ctx, userID),
	)
	return Reply{Text: text, Menu: MenuStats}
}
