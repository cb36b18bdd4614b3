package textgen

type Kind string

const (
	KindMorning  Kind = "morning"
	KindBirthday Kind = "birthday"
	KindHoliday  Kind = "holiday"
	// KindFallback templates need no placeholders.
	KindFallback Kind = "fallback"
)

// Templates maps a kind to its template set.
type Templates map[Kind][]string

// DefaultTemplates returns the built-in Russian template sets.
func DefaultTemplates() Templates {
	return Templates{
		KindBirthday: {
			"🎂 {name}, с днём рождения! {historical_figure} как-то сказал: '{quote}'. Думаю, это как раз про тебя сегодня!",
			"Ого-го! {name} отмечает! Помнишь, как {historical_event}? Вот это было событие! Желаю такого же масштаба!",
			"{name}, ты сегодня как {historical_figure} в день своей победы! Поздравляю, пусть будет эпично!",
		},
		KindHoliday: {
			"🎉 {holiday}! {historical_parallel}. Отмечаем как настоящие исторические личности!",
			"В этот день {historical_event}. А мы сегодня {holiday}! Какие параллели, а?",
			"{holiday} — отличный повод вспомнить, как {historical_figure} {historical_action}. Веселимся!",
		},
		KindMorning: {
			"Доброе утро! {historical_event} было примерно в это время. А мы? Мы делаем историю сегодня!",
			"Эх, {historical_figure} сегодня бы сказал: '{quote}'. Мудро, правда? Хорошего дня!",
			"Историческая справка на сегодня: {historical_fact}. Пусть это вдохновит вас!",
		},
		KindFallback: {
			"Эх, сегодня даже Архимед не нашёл бы повода для 'Эврика!'... Но день всё равно прекрасен!",
			"История молчит о сегодняшнем дне... значит, мы сами её создадим!",
			"Как говорил Суворов: 'Тяжело в ученье — легко в понедельник!' Вперёд!",
		},
	}
}
