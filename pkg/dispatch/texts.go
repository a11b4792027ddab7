package dispatch

// User-facing message templates. The bot speaks Russian; failures
// surface as short status messages in the same language, never stack
// traces.
const (
	notificationText = "📩 Вам уведомление с контрольной точки:\n%s"

	testPromptText    = "Вам необходимо пройти тест, вы готовы?"
	testStartButton   = "Начать прохождение теста"
	testAnswerSaved   = "Ответ сохранён ✅"
	testPointComplete = "Тест завершён, контрольная точка выполнена ✅"

	feedbackPromptText  = "📩 Пожалуйста, оставьте обратную связь."
	feedbackReplyButton = "Ответить"
	feedbackSaved       = "Ответ успешно сохранён!"

	missedDeadlineText = "Стажер %s %s просрочил контрольную точку : <%s>"

	reminderText = "⏰ Напоминание: скоро контрольная точка «%s»."
)
