package flow

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
	"github.com/prostoMif/UnTT-v1.0/internal/textparse"
	"github.com/prostoMif/UnTT-v1.0/internal/tree"
)

// BeginPause starts the quick-pause flow. It is never gated: the core
// intervention stays available even for locked users. A flow already
// in progress is discarded first.
func (s *Service) BeginPause(ctx context.Context, userID int64) Reply {
	s.resetDialog(ctx, userID)
	s.recordOutcome(ctx, userID, stats.EventAttempt)

	s.sessions.Put(ctx, userID, session.Session{Step: session.StepAwaitingReason})
	return Reply{Text: textReason, Menu: MenuReasons}
}

// ChooseReason stores the reason and advances to the duration step.
func (s *Service) ChooseReason(ctx context.Context, userID int64, reason string) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Step != session.StepAwaitingReason {
		return s.forceRecover(ctx, userID, sess.Step, "choose_reason")
	}
	sess.Reason = reason
	sess.Step = session.StepAwaitingDuration
	s.sessions.Put(ctx, userID, sess)
	return Reply{Text: textDuration, Menu: MenuDurations}
}

// ChooseDuration parses the planned pause length from a preset button
// or free text and arms the timer. Unparseable input re-prompts
// without a state change.
func (s *Service) ChooseDuration(ctx context.Context, userID int64, input string) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Step != session.StepAwaitingDuration {
		return s.forceRecover(ctx, userID, sess.Step, "choose_duration")
	}

	minutes, err := textparse.Minutes(input)
	if err != nil {
		return Reply{Text: textDurationRetry, Menu: MenuDurations}
	}

	now := s.clk.Now()
	sess.PlannedMinutes = minutes
	sess.StartTime = now
	sess.Step = session.StepAwaitingConfirmation
	s.sessions.Put(ctx, userID, sess)

	s.timers.Schedule(ctx, userID, time.Duration(minutes)*time.Minute, func() {
		s.timerFired(userID)
	})

	logger.Info(ctx, logComponent, "pause.started",
		slog.Int64("user_id", userID),
		slog.Int("planned_minutes", minutes),
	)
	return Reply{Text: textTimerStarted(minutes), Menu: MenuPause}
}

// timerFired runs on the timer goroutine after the handle has been
// deregistered. It prompts for the outcome and leaves the session in
// its pre-fire step so the elapsed computation still works whenever
// the user answers.
func (s *Service) timerFired(userID int64) {
	ctx := context.Background()
	sess := s.sessions.Get(ctx, userID)
	if sess.Step != session.StepAwaitingConfirmation {
		// The user already answered or cancelled; the late prompt
		// would only confuse.
		return
	}
	logger.Info(ctx, logComponent, "pause.timer_fired",
		slog.Int64("user_id", userID),
		slog.Int("planned_minutes", sess.PlannedMinutes),
	)
	if s.notify != nil {
		s.notify.Notify(userID, Reply{Text: textTimeIsUp, Menu: MenuPause})
	}
}

// Finished handles the "I closed it" answer. The session clears as
// part of the same logical unit as the recording, and a duplicate tap
// observes an idle session and degrades to the plain menu.
func (s *Service) Finished(ctx context.Context, userID int64) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Idle() {
		return s.mainMenu(ctx, userID)
	}

	now := s.clk.Now()
	planned := sess.PlannedMinutes
	var elapsed int
	if !sess.StartTime.IsZero() {
		elapsed = minutesBetween(sess.StartTime, now)
	}

	s.timers.Cancel(userID)
	s.sessions.Clear(ctx, userID)

	if !s.recordOutcome(ctx, userID, stats.EventConsciousStop) {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	text := s.savingsText(planned, elapsed)
	if s.markTrialStarted(ctx, userID) {
		text += "\n\n" + textTrialOnboarding
	}
	if line := s.treeLine(ctx, userID); line != "" {
		text += "\n\n" + line
	}

	logger.Info(ctx, logComponent, "pause.finished",
		slog.Int64("user_id", userID),
		slog.Int("planned_minutes", planned),
		slog.Int("saved_minutes", planned-elapsed),
	)
	return Reply{Text: text, Menu: MenuMain}
}

// savingsText picks the phrasing from the raw, possibly negative,
// savings value. Without a stored plan there is no arithmetic claim.
func (s *Service) savingsText(planned, elapsed int) string {
	if planned <= 0 {
		return textDone
	}
	saved := planned - elapsed
	switch {
	case saved > 0:
		return textStoppedEarly(saved)
	case saved < 0:
		return textOverrun(-saved)
	default:
		return textExactPlan
	}
}

// Staying handles the "I'm staying" answer: the slip is counted, no
// conscious stop is recorded, and the session clears.
func (s *Service) Staying(ctx context.Context, userID int64) Reply {
	sess := s.sessions.Get(ctx, userID)
	if sess.Idle() {
		return s.mainMenu(ctx, userID)
	}

	s.timers.Cancel(userID)
	s.sessions.Clear(ctx, userID)

	if !s.recordOutcome(ctx, userID, stats.EventSlip) {
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}

	logger.Info(ctx, logComponent, "pause.slip",
		slog.Int64("user_id", userID),
		slog.Int("planned_minutes", sess.PlannedMinutes),
	)
	return Reply{Text: textStayed, Menu: MenuMain}
}

// treeLine renders the current growth stage, empty when nothing grew
// yet or stats are unavailable.
func (s *Service) treeLine(ctx context.Context, userID int64) string {
	days, err := s.stats.ConsciousDays(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logComponent, "tree.stats_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return ""
	}
	stage, ok := tree.StageFor(days)
	if !ok {
		return ""
	}
	line := stage.Emoji + " " + stage.Name
	if next, left, ok := tree.Next(days); ok {
		line += "\n" + fmt.Sprintf("До стадии «%s»: %d дн.", next.Name, left)
	}
	return line
}
