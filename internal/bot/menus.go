package bot

import (
	"github.com/prostoMif/UnTT-v1.0/core/telegram/keyboard"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques. Payload carries the chosen value where one exists.
const (
	cbGoTikTok     = "go_tiktok"
	cbReason       = "qp_reason"
	cbDuration     = "qp_duration"
	cbFinish       = "qp_finish"
	cbStay         = "qp_stay"
	cbSos          = "sos"
	cbSosPriority  = "sos_prio"
	cbSosClose     = "sos_close"
	cbSosOpen      = "sos_open"
	cbStats        = "stats"
	cbMenu         = "menu"
	cbSubscribe    = "subscribe"
	cbCheckPayment = "check_payment"
)

var reasonPresets = []string{"Скука", "Стресс", "Привычка", "Отдых"}

var sosPriorities = []string{"Учёба/работа", "Сон", "Спорт", "Друзья/семья", "Хобби"}

// markupFor maps a dialog menu onto an inline keyboard. The payment
// menu is the only one that needs per-reply data (the confirmation
// URL), so it is built from the full reply.
func markupFor(reply flow.Reply) *tele.ReplyMarkup {
	switch reply.Menu {
	case flow.MenuMain:
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "🎯 Хочу в TikTok", Unique: cbGoTikTok}},
			[]keyboard.InlineBtn{{Text: "🆘 SOS", Unique: cbSos}},
			[]keyboard.InlineBtn{
				{Text: "📊 Статистика", Unique: cbStats},
				{Text: "⭐ Подписка", Unique: cbSubscribe},
			},
		)
	case flow.MenuReasons:
		btns := make([]keyboard.InlineBtn, 0, len(reasonPresets))
		for _, r := range reasonPresets {
			btns = append(btns, keyboard.InlineBtn{Text: r, Unique: cbReason, Data: r})
		}
		return keyboard.InlineButtonsNPerRow(btns, 2)
	case flow.MenuDurations:
		return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			{Text: "5 мин", Unique: cbDuration, Data: "5"},
			{Text: "15 мин", Unique: cbDuration, Data: "15"},
			{Text: "30 мин", Unique: cbDuration, Data: "30"},
		})
	case flow.MenuPause:
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "✅ Закрыл TikTok", Unique: cbFinish}},
			[]keyboard.InlineBtn{{Text: "😔 Остаюсь", Unique: cbStay}},
		)
	case flow.MenuSosPriorities:
		btns := make([]keyboard.InlineBtn, 0, len(sosPriorities))
		for _, p := range sosPriorities {
			btns = append(btns, keyboard.InlineBtn{Text: p, Unique: cbSosPriority, Data: p})
		}
		return keyboard.InlineButtonsNPerRow(btns, 2)
	case flow.MenuSosConfirm:
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "Закрываю TikTok", Unique: cbSosClose}},
			[]keyboard.InlineBtn{{Text: "Всё равно открою", Unique: cbSosOpen}},
		)
	case flow.MenuPaywall:
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "⭐ Оформить подписку", Unique: cbSubscribe}},
			[]keyboard.InlineBtn{{Text: "← Меню", Unique: cbMenu}},
		)
	case flow.MenuPayment:
		markup := &tele.ReplyMarkup{}
		rows := make([][]tele.InlineButton, 0, 2)
		if reply.URL != "" {
			rows = append(rows, []tele.InlineButton{
				*markup.URL("💳 Оплатить", reply.URL).Inline(),
			})
		}
		rows = append(rows, []tele.InlineButton{
			*markup.Data("Проверить оплату", cbCheckPayment).Inline(),
		})
		markup.InlineKeyboard = rows
		return markup
	case flow.MenuStats:
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "← Меню", Unique: cbMenu},
		})
	default:
		return nil
	}
}
