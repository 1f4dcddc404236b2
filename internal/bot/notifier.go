package bot

import (
	"context"
	"errors"
	"sync/atomic"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/sender"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// Notifier pushes dialog replies to a user outside an incoming
// update, which timer prompts and expiry reminders need. The bot and
// dispatcher are bound on startup; notifications arriving before that
// (or after shutdown) are dropped with a warning.
type Notifier struct {
	bot  atomic.Pointer[tele.Bot]
	disp atomic.Pointer[sender.Dispatcher]
}

// NewNotifier creates an unbound Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Bind attaches the live bot and its outbound dispatcher.
func (n *Notifier) Bind(bot *tele.Bot, disp *sender.Dispatcher) {
	n.bot.Store(bot)
	n.disp.Store(disp)
}

// Notify implements flow.Notifier. Delivery errors are logged, not
// returned: the dialog state has already moved on.
func (n *Notifier) Notify(userID int64, reply flow.Reply) {
	bot := n.bot.Load()
	if bot == nil {
		logger.Warn(context.Background(), "tg.sender", "notify.unbound",
			slog.Int64("user_id", userID),
		)
		return
	}

	run := func() error {
		recipient := &tele.User{ID: userID}
		_, err := bot.Send(recipient, reply.Text, &tele.SendOptions{
			ParseMode:   tele.ModeMarkdown,
			ReplyMarkup: markupFor(reply),
		})
		if err != nil {
			logger.Warn(context.Background(), "tg.sender", "notify.send_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return err
	}

	disp := n.disp.Load()
	if disp == nil {
		_ = run()
		return
	}
	if err := disp.Enqueue(context.Background(), "send.text", "sendMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			_ = run()
			return
		}
		logger.Warn(context.Background(), "tg.sender", "notify.enqueue_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}
