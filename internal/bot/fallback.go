package bot

import (
	"github.com/prostoMif/UnTT-v1.0/core/telegram/helpers"
	"github.com/prostoMif/UnTT-v1.0/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// fallbacks answers updates that match no command, callback, or
// dialog step. Unknown text outside a dialog just re-shows the menu.
type fallbacks struct {
	app *App
}

var _ ui.FallbackProvider = (*fallbacks)(nil)

func (f *fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.BuildContext(c)
		return render(c, f.app.svc.Menu(ctx, c.Sender().ID))
	}
}

func (f *fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "Я работаю только с кнопками и текстом.")
	}
}

func (f *fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond(&tele.CallbackResponse{Text: "Кнопка устарела"})
		ctx := helpers.BuildContext(c)
		return render(c, f.app.svc.Menu(ctx, c.Sender().ID))
	}
}
