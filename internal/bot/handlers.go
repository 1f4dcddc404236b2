package bot

import (
	"strconv"
	"strings"

	tg "github.com/prostoMif/UnTT-v1.0/core/telegram"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/callbacks"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/commands"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/helpers"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"

	tele "gopkg.in/telebot.v4"
)

const textAdminUsage = "Использование:\n/grant <user_id> [месяцев|дата]\n/revoke <user_id>\n/report"

// render delivers a dialog reply to the user. Callback taps edit the
// message they came from; plain messages get a fresh one.
func render(c tele.Context, reply flow.Reply) error {
	markup := markupFor(reply)
	if c.Callback() != nil {
		return helpers.EditOrSendMD(c, reply.Text, markup)
	}
	return helpers.SendMD(c, reply.Text, markup)
}

func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Description: "Начать",
		Handler: func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			sender := c.Sender()
			return render(c, a.svc.Start(ctx, sender.ID, sender.Username, sender.FirstName))
		},
	})
	reg.RegisterCommand("/menu", commands.Command{
		Description: "Главное меню",
		Handler: func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			return render(c, a.svc.Menu(ctx, c.Sender().ID))
		},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Description: "Отменить текущий диалог",
		Handler: func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			return render(c, a.svc.Cancel(ctx, c.Sender().ID))
		},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "Статистика",
		Handler: func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			return render(c, a.svc.StatsView(ctx, c.Sender().ID))
		},
	})

	reg.RegisterCommand("/grant", commands.Command{
		Description: "Выдать подписку",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleGrant,
	})
	reg.RegisterCommand("/revoke", commands.Command{
		Description: "Снять подписку",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleRevoke,
	})
	reg.RegisterCommand("/report", commands.Command{
		Description: "Сводка по боту",
		AdminOnly:   true,
		Hidden:      true,
		Handler: func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			return render(c, a.svc.Report(ctx))
		},
	})
}

// handleGrant accepts "/grant <user_id>", "/grant <user_id> <months>"
// and "/grant <user_id> <date>" where the date is any format
// ParseFlexibleDate understands.
func (a *App) handleGrant(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	args := strings.Fields(c.Message().Payload)
	if len(args) == 0 {
		return helpers.SendText(c, textAdminUsage)
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return helpers.SendText(c, textAdminUsage)
	}

	if len(args) >= 2 {
		if months, err := strconv.Atoi(args[1]); err == nil {
			return render(c, a.svc.Grant(ctx, targetID, months))
		}
		if until, ok := helpers.ParseFlexibleDate(args[1]); ok {
			return render(c, a.svc.GrantUntil(ctx, targetID, until))
		}
		return helpers.SendText(c, textAdminUsage)
	}
	return render(c, a.svc.Grant(ctx, targetID, 1))
}

func (a *App) handleRevoke(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	args := strings.Fields(c.Message().Payload)
	if len(args) != 1 {
		return helpers.SendText(c, textAdminUsage)
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return helpers.SendText(c, textAdminUsage)
	}
	return render(c, a.svc.Revoke(ctx, targetID))
}

func (a *App) registerCallbacks(reg *tg.Registry) {
	type cbFunc func(c tele.Context) flow.Reply

	handle := func(fn cbFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			return render(c, fn(c))
		}
	}

	uid := func(c tele.Context) int64 { return c.Sender().ID }

	_ = reg.RegisterCallback(cbGoTikTok, handle(func(c tele.Context) flow.Reply {
		return a.svc.BeginPause(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbReason, handle(func(c tele.Context) flow.Reply {
		return a.svc.ChooseReason(helpers.BuildContext(c), uid(c), callbacks.CallbackPayload(c))
	}))
	_ = reg.RegisterCallback(cbDuration, handle(func(c tele.Context) flow.Reply {
		return a.svc.ChooseDuration(helpers.BuildContext(c), uid(c), callbacks.CallbackPayload(c))
	}))
	_ = reg.RegisterCallback(cbFinish, handle(func(c tele.Context) flow.Reply {
		return a.svc.Finished(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbStay, handle(func(c tele.Context) flow.Reply {
		return a.svc.Staying(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbSos, handle(func(c tele.Context) flow.Reply {
		return a.svc.Sos(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbSosPriority, handle(func(c tele.Context) flow.Reply {
		return a.svc.SosPriority(helpers.BuildContext(c), uid(c), callbacks.CallbackPayload(c))
	}))
	_ = reg.RegisterCallback(cbSosClose, handle(func(c tele.Context) flow.Reply {
		return a.svc.SosClose(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbSosOpen, handle(func(c tele.Context) flow.Reply {
		return a.svc.SosOpen(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbStats, handle(func(c tele.Context) flow.Reply {
		return a.svc.StatsView(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbMenu, handle(func(c tele.Context) flow.Reply {
		return a.svc.Menu(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbSubscribe, handle(func(c tele.Context) flow.Reply {
		return a.svc.Subscribe(helpers.BuildContext(c), uid(c))
	}))
	_ = reg.RegisterCallback(cbCheckPayment, handle(func(c tele.Context) flow.Reply {
		return a.svc.CheckPayment(helpers.BuildContext(c), uid(c))
	}))
}
