package flow

import "fmt"

// All user-facing dialog strings live here so the handlers stay free
// of literals.

const (
	textStart = "UnTT\nКогда соберёшься открыть TikTok — нажми кнопку."

	textReason   = "Что за этим стоит?"
	textDuration = "Сколько времени планируешь?"

	textDurationRetry = "Не понял. Напиши, сколько минут планируешь, например «15» или «1 час»."

	textDone        = "Готово."
	textCancelled   = "Отмена"
	textTimeIsUp    = "Время вышло. Как всё прошло?"
	textStayed      = "Бывает. Завтра попробуешь ещё раз — фиксирую срыв."
	textExactPlan   = "Ровно по плану. Отличный контроль."
	textRetryLater  = "Что-то пошло не так. Попробуй ещё раз чуть позже."

	textSosPriority = "Что сейчас важнее TikTok?\n\n1. Учёба/работа  2. Сон  3. Спорт\n4. Друзья/семья  5. Хобби"
	textSosOpened   = "Ладно. Но TikTok никуда не денется, а время — да. Фиксирую срыв."

	textTrialOnboarding = "Это твой первый осознанный стоп. Бесплатный период уже идёт — пользуйся всем без ограничений."

	textPaywallLimited = "Лимит бесплатных дней исчерпан."

	textPaymentFailed    = "Не удалось создать платёж. Попробуй позже."
	textPaymentNoCharge  = "Сначала создай платёж через «Подписка»."
	textPaymentPending   = "Платёж ещё не прошёл. Попробуй проверить через минуту."
	textPaymentCanceled  = "Платёж отменён. Можно создать новый через «Подписка»."
	textPaymentSucceeded = "Оплата прошла! Подписка активна до %s."
)

func textMenu(count int, savedMinutes int) string {
	return fmt.Sprintf("Сегодня\nОсознанных моментов: %d  Сэкономлено: %d мин", count, savedMinutes)
}

func textStoppedEarly(saved int) string {
	return fmt.Sprintf("Вышел на %d мин раньше. Молодец.", saved)
}

func textOverrun(over int) string {
	return fmt.Sprintf("Задержался на %d мин дольше плана. В следующий раз получится точнее.", over)
}

func textTimerStarted(minutes int) string {
	return fmt.Sprintf("Таймер: %d мин", minutes)
}

func textSosConfirm(choice string) string {
	return fmt.Sprintf("%s важнее.\nTikTok подождёт.", choice)
}

func textUpsell(usedDays int, amount string) string {
	return fmt.Sprintf(
		"Ты используешь бот %d дней.\n\nPremium:\n- Статистика по дням недели\n- Тренды и средние\n- Безлимитный SOS\n\n%s₽/мес",
		usedDays, amount,
	)
}

func textPaymentCreated(amount string) string {
	return fmt.Sprintf("Подписка %s₽/мес, без автосписания.\nОплати по ссылке и нажми «Проверить оплату».", amount)
}

func textStatsFree(todayCount, savedMinutes, slips int) string {
	return fmt.Sprintf("Сегодня: %d моментов  Сэкономлено: %d мин\nСрывы: %d", todayCount, savedMinutes, slips)
}

func textStatsPremium(todayCount, savedMinutes, weekCount, monthCount, streak, best int, treeLine string) string {
	s := fmt.Sprintf(
		"Сегодня: %d моментов  Сэкономлено: %d мин\n\nЗа 7 дней: %d  За 30 дней: %d\nСерия: %d дн. (рекорд %d)",
		todayCount, savedMinutes, weekCount, monthCount, streak, best,
	)
	if treeLine != "" {
		s += "\n\n" + treeLine
	}
	return s
}
