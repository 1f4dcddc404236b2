// Package bot wires the dialog service to Telegram: commands,
// callback buttons, free-text routing, and the outbound notifier.
package bot

import (
	"context"

	tg "github.com/prostoMif/UnTT-v1.0/core/telegram"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/router"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"
	"github.com/prostoMif/UnTT-v1.0/internal/remind"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
)

// App assembles the Telegram-facing half of the bot.
type App struct {
	cfg      *AppConfig
	svc      *flow.Service
	sessions session.Manager
	notifier *Notifier
	reminder *remind.Scheduler
}

// NewApp builds the app. The reminder may be nil when the expiry scan
// is disabled.
func NewApp(cfg *AppConfig, svc *flow.Service, sessions session.Manager, notifier *Notifier, reminder *remind.Scheduler) *App {
	return &App{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		notifier: notifier,
		reminder: reminder,
	}
}

// TelegramRunOptions wires the registry, routes, and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.registerCommands(reg)
	a.registerCallbacks(reg)

	fb := &fallbacks{app: a}
	reg.SetCallbackNotFound(fb.UnknownCallback())

	fsm := &dialogFSM{sessions: a.sessions, svc: a.svc}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(fsm, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.notifier.Bind(rt.Bot, rt.Dispatcher)
			if a.reminder != nil {
				go a.reminder.Run(ctx)
			}
			return nil
		},
	}, nil
}
