package flow

import (
	"context"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
)

// Sos starts the emergency flow. When gating is on and the user is
// locked, the paywall renders instead and no state transition happens.
func (s *Service) Sos(ctx context.Context, userID int64) Reply {
	if s.cfg.SosRequiresPremium {
		level, rec, err := s.accessLevel(ctx, userID)
		if err != nil {
			return Reply{Text: textRetryLater, Menu: MenuMain}
		}
		if level == entitlement.Locked {
			logger.Info(ctx, logComponent, "sos.denied",
				slog.Int64("user_id", userID),
				slog.String("access", string(level)),
			)
			return s.paywall(ctx, userID, rec)
		}
	}

	s.resetDialog(ctx, userID)
	s.recordOutcome(ctx, userID, stats.EventSosUsed)

	s.sessions.Put(ctx, userID, session.Session{Step: session.StepAwaitingSosPriority})
	return Reply{Text: textSosPriority, Menu: MenuSosPriorities}
}

// SosPriority stores the chosen priority and asks for the decision.
func (s *Service) SosPriority(ctx context.Context, userID int64, priority string) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Step != session.StepAwaitingSosPriority {
		return s.forceRecover(ctx, userID, sess.Step, "sos_priority")
	}
	sess.SosPriority = priority
	sess.Step = session.StepAwaitingSosConfirmation
	s.sessions.Put(ctx, userID, sess)
	return Reply{Text: textSosConfirm(priority), Menu: MenuSosConfirm}
}

// SosClose ends the SOS flow with a conscious stop.
func (s *Service) SosClose(ctx context.Context, userID int64) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Idle() {
		return s.mainMenu(ctx, userID)
	}

	s.sessions.Clear(ctx, userID)
	if !s.recordOutcome(ctx, userID, stats.EventConsciousStop) {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	text := textDone
	if s.markTrialStarted(ctx, userID) {
		text += "\n\n" + textTrialOnboarding
	}
	if line := s.treeLine(ctx, userID); line != "" {
		text += "\n\n" + line
	}

	logger.Info(ctx, logComponent, "sos.closed",
		slog.Int64("user_id", userID),
		slog.String("priority", sess.SosPriority),
	)
	return Reply{Text: text, Menu: MenuMain}
}

// SosOpen ends the SOS flow with a slip.
func (s *Service) SosOpen(ctx context.Context, userID int64) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Idle() {
		return s.mainMenu(ctx, userID)
	}

	s.sessions.Clear(ctx, userID)
	if !s.recordOutcome(ctx, userID, stats.EventSlip) {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	logger.Info(ctx, logComponent, "sos.opened",
		slog.Int64("user_id", userID),
		slog.String("priority", sess.SosPriority),
	)
	return Reply{Text: textSosOpened, Menu: MenuMain}
}
