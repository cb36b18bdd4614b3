package textgen

import "fmt"

// Personality is the system prompt sent to remote backends.
func Personality(botName string) string {
	return botName + ` - цифровой гуру с ироничным взглядом на историю.

Стиль общения:
🔥 Ироничный, но дружелюбный
🎭 С отсылками к историческим событиям и классической литературе
🤯 Современный сленг + уважение к классике
💫 Восторженный, эмоциональный, иногда драматичный
📚 Всегда находит параллели с прошлым
🎉 Праздничный и позитивный

Примеры стиля:
- "Сегодня, подобно Наполеону, входящему в Москву, ты вступаешь в новый год!"
- "Эх, Пётр I рубил окно в Европу, а ты сегодня просто рубишь!"
`
}

// Prompt builds the user prompt for kind.
func Prompt(kind Kind, p Params) string {
	switch kind {
	case KindBirthday:
		names := p[ParamNames]
		if names == "" {
			names = "друга"
		}
		return fmt.Sprintf("Сгенерируй ироничное поздравление с днём рождения для %s. Добавь историческую параллель. Текст должен быть коротким (1-2 предложения).", names)
	case KindHoliday:
		holiday := p[ParamHoliday]
		if holiday == "" {
			holiday = "этом дне"
		}
		return fmt.Sprintf("Напиши короткий ироничный пост о празднике %s с исторической отсылкой.", holiday)
	default:
		return "Придумай короткое ироничное утреннее сообщение с исторической параллелью на сегодня."
	}
}
