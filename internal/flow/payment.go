package flow

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/payment"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

// paywall renders the upsell. The full screen is shown exactly once
// per user; later denials get the short variant.
func (s *Service) paywall(ctx context.Context, userID int64, rec *users.Record) Reply {
	if rec != nil && !rec.UpsellShown {
		rec.UpsellShown = true
		if err := s.users.Save(ctx, rec); err != nil {
			logger.Warn(ctx, logComponent, "paywall.save_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		used := entitlement.DaysSince(rec.RegisteredAt, s.clk.Now())
		return Reply{Text: textUpsell(used, s.cfg.PaymentAmountRub), Menu: MenuPaywall}
	}
	return Reply{Text: textPaywallLimited, Menu: MenuPaywall}
}

// Subscribe creates a charge and hands back the confirmation link.
func (s *Service) Subscribe(ctx context.Context, userID int64) Reply {
	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logComponent, "subscribe.load_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	charge, err := s.pay.CreateCharge(ctx, userID, s.cfg.PaymentAmountRub, s.cfg.PaymentReturnURL)
	if err != nil {
		logger.Error(ctx, logComponent, "subscribe.create_failed",
			slog.Int64("user_id", userID),
			slog.String("amount", s.cfg.PaymentAmountRub),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textPaymentFailed, Menu: MenuMain}
	}

	rec.PendingChargeID = charge.ID
	if err := s.users.Save(ctx, rec); err != nil {
		logger.Error(ctx, logComponent, "subscribe.save_failed",
			slog.Int64("user_id", userID),
			slog.String("charge_id", charge.ID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	logger.Info(ctx, logComponent, "subscribe.created",
		slog.Int64("user_id", userID),
		slog.String("charge_id", charge.ID),
		slog.String("amount", s.cfg.PaymentAmountRub),
	)
	return Reply{
		Text: textPaymentCreated(s.cfg.PaymentAmountRub),
		Menu: MenuPayment,
		URL:  charge.ConfirmationURL,
	}
}

// CheckPayment polls the pending charge. Only a succeeded status
// touches the subscription; everything else leaves it unchanged.
func (s *Service) CheckPayment(ctx context.Context, userID int64) Reply {
	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logComponent, "check.load_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}
	if rec.PendingChargeID == "" {
		return Reply{Text: textPaymentNoCharge, Menu: MenuMain}
	}

	status, err := s.pay.QueryCharge(ctx, rec.PendingChargeID)
	if err != nil {
		logger.Error(ctx, logComponent, "check.query_failed",
			slog.Int64("user_id", userID),
			slog.String("charge_id", rec.PendingChargeID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	switch status {
	case payment.StatusSucceeded:
		end := s.ent.Extend(rec, s.clk.Now(), s.cfg.PaymentMonths)
		rec.PendingChargeID = ""
		if err := s.users.Save(ctx, rec); err != nil {
			logger.Error(ctx, logComponent, "check.save_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return Reply{Text: textRetryLater, Menu: MenuMain}
		}
		logger.Info(ctx, logComponent, "subscription.activated",
			slog.Int64("user_id", userID),
			slog.String("expires_at", end.Format("2006-01-02")),
		)
		return Reply{Text: fmt.Sprintf(textPaymentSucceeded, end.Format("02.01.2006")), Menu: MenuMain}
	case payment.StatusCanceled:
		rec.PendingChargeID = ""
		if err := s.users.Save(ctx, rec); err != nil {
			logger.Warn(ctx, logComponent, "check.save_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return Reply{Text: textPaymentCanceled, Menu: MenuMain}
	default:
		return Reply{Text: textPaymentPending, Menu: MenuPayment}
	}
}
