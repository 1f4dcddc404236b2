// Package flow is the dialog dispatcher: it routes user actions
// through the session state machine, consults entitlement for gated
// steps, drives the pause timers, and records outcomes. It knows
// nothing about Telegram; handlers render its Reply values.
package flow

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/payment"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
	"github.com/prostoMif/UnTT-v1.0/internal/timers"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

const logComponent = "service.flow"

// Menu tells the adapter which keyboard to attach to a reply.
type Menu string

const (
	MenuNone          Menu = ""
	MenuMain          Menu = "main"
	MenuReasons       Menu = "reasons"
	MenuDurations     Menu = "durations"
	MenuPause         Menu = "pause"
	MenuSosPriorities Menu = "sos_priorities"
	MenuSosConfirm    Menu = "sos_confirm"
	MenuPaywall       Menu = "paywall"
	MenuPayment       Menu = "payment"
	MenuStats         Menu = "stats"
)

// Reply is one outbound response. URL is set only for payment links.
type Reply struct {
	Text string
	Menu Menu
	URL  string
}

// Notifier delivers timer-fired prompts outside a user interaction.
type Notifier interface {
	Notify(userID int64, reply Reply)
}

// Config carries the product knobs the dispatcher needs.
type Config struct {
	// SosRequiresPremium gates the SOS flow behind FULL/TRIAL access.
	SosRequiresPremium bool

	PaymentAmountRub string
	PaymentReturnURL string
	PaymentMonths    int

	// SavedMinutesPerStop is the per-moment estimate shown in menus.
	SavedMinutesPerStop int
}

// Service wires the collaborators together. One instance serves all
// users; per-user state lives in the session manager and the store.
type Service struct {
	cfg      Config
	clk      clock.Clock
	users    *users.Repo
	ent      *entitlement.Engine
	sessions session.Manager
	timers   *timers.Manager
	stats    *stats.Recorder
	pay      payment.Gateway
	notify   Notifier
}

// New builds the dispatcher.
func New(cfg Config, clk clock.Clock, repo *users.Repo, ent *entitlement.Engine, sessions session.Manager, tm *timers.Manager, recorder *stats.Recorder, gateway payment.Gateway, notify Notifier) *Service {
	if cfg.PaymentMonths <= 0 {
		cfg.PaymentMonths = 1
	}
	if cfg.SavedMinutesPerStop <= 0 {
		cfg.SavedMinutesPerStop = 15
	}
	return &Service{
		cfg:      cfg,
		clk:      clk,
		users:    repo,
		ent:      ent,
		sessions: sessions,
		timers:   tm,
		stats:    recorder,
		pay:      gateway,
		notify:   notify,
	}
}

// Entitlement exposes the engine for the adapter layer.
func (s *Service) Entitlement() *entitlement.Engine {
	return s.ent
}

// Users exposes the profile repo for the adapter layer.
func (s *Service) Users() *users.Repo {
	return s.users
}

// Start registers the user on first contact and resets any dialog in
// progress. The registration timestamp of an existing profile is
// never touched.
func (s *Service) Start(ctx context.Context, userID int64, username, firstName string) Reply {
	_, created, err := s.users.Ensure(ctx, userID, username, firstName, s.clk.Now())
	if err != nil {
		logger.Error(ctx, logComponent, "start.ensure_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textRetryLater, Menu: MenuMain}
	}
	if created {
		logger.Info(ctx, logComponent, "user.registered",
			slog.Int64("user_id", userID),
		)
	}

	s.timers.Cancel(userID)
	s.sessions.Clear(ctx, userID)
	return Reply{Text: textStart, Menu: MenuMain}
}

// Cancel force-clears the session and any pending timer. It must work
// from every step so a user can never get stuck.
func (s *Service) Cancel(ctx context.Context, userID int64) Reply {
	s.timers.Cancel(userID)
	s.sessions.Clear(ctx, userID)
	return Reply{Text: textCancelled, Menu: MenuMain}
}

// Menu renders the main menu with today's numbers.
func (s *Service) Menu(ctx context.Context, userID int64) Reply {
	return s.mainMenu(ctx, userID)
}

func (s *Service) mainMenu(ctx context.Context, userID int64) Reply {
	counts, err := s.stats.Aggregate(ctx, userID, stats.PeriodToday)
	if err != nil {
		logger.Warn(ctx, logComponent, "menu.stats_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: textStart, Menu: MenuMain}
	}
	stops := counts[stats.EventConsciousStop]
	return Reply{
		Text: textMenu(stops, stops*s.cfg.SavedMinutesPerStop),
		Menu: MenuMain,
	}
}

// resetDialog clears transient dialog state before a new flow starts.
func (s *Service) resetDialog(ctx context.Context, userID int64) {
	s.timers.Cancel(userID)
	s.sessions.Clear(ctx, userID)
}

// forceRecover handles step/action mismatches: log, reset, fall back
// to the main menu.
func (s *Service) forceRecover(ctx context.Context, userID int64, got session.Step, action string) Reply {
	logger.Error(ctx, logComponent, "step.mismatch",
		slog.Int64("user_id", userID),
		slog.String("step", string(got)),
		slog.String("cause", action),
	)
	s.resetDialog(ctx, userID)
	return s.mainMenu(ctx, userID)
}

// recordOutcome appends the event after the session has already been
// cleared. A store failure downgrades the reply, never corrupts state.
func (s *Service) recordOutcome(ctx context.Context, userID int64, t stats.EventType) bool {
	if err := s.stats.Record(ctx, userID, t); err != nil {
		logger.Error(ctx, logComponent, "record.failed",
			slog.Int64("user_id", userID),
			slog.String("event_type", string(t)),
			slog.String("err", err.Error()),
		)
		return false
	}
	return true
}

// markTrialStarted flips the one-shot onboarding flag on the first
// conscious stop. Returns true when this call was the first.
func (s *Service) markTrialStarted(ctx context.Context, userID int64) bool {
	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logComponent, "trial.load_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	if rec.TrialStarted {
		return false
	}
	rec.TrialStarted = true
	if err := s.users.Save(ctx, rec); err != nil {
		logger.Warn(ctx, logComponent, "trial.save_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return true
}

// accessLevel loads the profile and classifies access. An unknown
// user is Locked; a failing store is an error so callers can answer
// "try later" instead of a paywall.
func (s *Service) accessLevel(ctx context.Context, userID int64) (entitlement.Level, *users.Record, error) {
	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entitlement.Locked, nil, nil
		}
		logger.Warn(ctx, logComponent, "access.load_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return entitlement.Locked, nil, err
	}
	return s.ent.AccessLevel(rec, s.clk.Now()), rec, nil
}

func minutesBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Minutes())
}
