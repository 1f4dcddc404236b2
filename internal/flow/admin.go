package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
)

// Grant extends the target's subscription by the given months.
func (s *Service) Grant(ctx context.Context, targetID int64, months int) Reply {
	rec, err := s.users.Get(ctx, targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return Reply{Text: fmt.Sprintf("Пользователь %d не найден.", targetID)}
	}
	if err != nil {
		return Reply{Text: textRetryLater}
	}

	end := s.ent.Extend(rec, s.clk.Now(), months)
	if err := s.users.Save(ctx, rec); err != nil {
		logger.Error(ctx, logComponent, "grant.save_failed",
			slog.Int64("user_id", targetID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater}
	}
	logger.Info(ctx, logComponent, "subscription.granted",
		slog.Int64("user_id", targetID),
		slog.String("expires_at", end.Format("2006-01-02")),
	)
	return Reply{Text: fmt.Sprintf("Подписка пользователя %d активна до %s.", targetID, end.Format("02.01.2006"))}
}

// GrantUntil sets the target's expiry to an explicit date.
func (s *Service) GrantUntil(ctx context.Context, targetID int64, until time.Time) Reply {
	rec, err := s.users.Get(ctx, targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return Reply{Text: fmt.Sprintf("Пользователь %d не найден.", targetID)}
	}
	if err != nil {
		return Reply{Text: textRetryLater}
	}

	rec.SubscriptionEnd = &until
	if err := s.users.Save(ctx, rec); err != nil {
		return Reply{Text: textRetryLater}
	}
	logger.Info(ctx, logComponent, "subscription.granted",
		slog.Int64("user_id", targetID),
		slog.String("expires_at", until.Format("2006-01-02")),
	)
	return Reply{Text: fmt.Sprintf("Подписка пользователя %d активна до %s.", targetID, until.Format("02.01.2006"))}
}

// Revoke drops the target's subscription entirely.
func (s *Service) Revoke(ctx context.Context, targetID int64) Reply {
	rec, err := s.users.Get(ctx, targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return Reply{Text: fmt.Sprintf("Пользователь %d не найден.", targetID)}
	}
	if err != nil {
		return Reply{Text: textRetryLater}
	}

	rec.SubscriptionEnd = nil
	if err := s.users.Save(ctx, rec); err != nil {
		return Reply{Text: textRetryLater}
	}
	logger.Info(ctx, logComponent, "subscription.revoked",
		slog.Int64("user_id", targetID),
	)
	return Reply{Text: fmt.Sprintf("Подписка пользователя %d отключена.", targetID)}
}

// Report summarizes the user base for the admin.
func (s *Service) Report(ctx context.Context) Reply {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		logger.Error(ctx, logComponent, "report.list_failed",
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater}
	}

	now := s.clk.Now()
	var paid, events int
	for _, id := range ids {
		rec, err := s.users.Get(ctx, id)
		if err != nil {
			continue
		}
		if rec.SubscriptionEnd != nil && rec.SubscriptionEnd.After(now) {
			paid++
		}
		if n, err := s.stats.TotalEvents(ctx, id); err == nil {
			events += n
		}
	}
	return Reply{Text: fmt.Sprintf("Пользователей: %d\nС подпиской: %d\nСобытий всего: %d", len(ids), paid, events)}
}
