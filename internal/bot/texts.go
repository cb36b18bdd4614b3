package bot

import (
	"fmt"
	"strings"
	"time"

	"histobot/internal/broadcast"
	"histobot/internal/history"
	"histobot/internal/registry"
	"histobot/internal/scheduler"
)

const (
	textTestStarted      = "🧪 Генерирую тестовый пост..."
	textPostNowStarted   = "🎭 Запускаю рассылку..."
	textCycleRunning     = "⏳ Рассылка уже выполняется, попробуйте позже."
	textStopped          = "👋 Рассылка для этого чата отключена. Чтобы вернуться, отправьте /start."
	textAdminOnly        = "⛔ Команда доступна только администраторам."
	textBusy             = "⏳ Бот перегружен, попробуйте чуть позже."
	textUnknown          = "Неизвестная команда. Список команд: /help"
	textBadBirthday      = "❌ Неверный формат. Используйте: ММ-ДД Имя"
	textBirthdayAdded    = "✅ Добавлен день рождения: %s - %s"
	textBirthdayNotSaved = "⚠️ День рождения %s - %s добавлен, но не сохранён и пропадёт после перезапуска."
	textCacheCleared     = "✅ Кэш очищен! Сброшено отметок об отправке: %d"
)

const moscowZone = "Europe/Moscow"

func textError(err error) string {
	return "❌ Ошибка: " + broadcast.EscapeMarkdown(err.Error())
}

// zonePhrase renders "по Москве" for the default zone, else "(Zone/Name)".
func (b *Bot) zonePhrase() string {
	name := b.Clock.Location().String()
	if name == moscowZone {
		return "по Москве"
	}
	return "(" + name + ")"
}

func (b *Bot) helpText() string {
	var s strings.Builder
	fmt.Fprintf(&s, "🤖 *%s*\n\n", broadcast.EscapeMarkdown(b.cfg.BotName))
	fmt.Fprintf(&s, "Я генерирую иронично-исторические посты каждый день в %s %s.\n\n", b.cfg.PostTime, b.zonePhrase())
	s.WriteString("*Доступные команды:*\n")
	for _, c := range b.Commands() {
		s.WriteString(broadcast.EscapeMarkdown("/" + c.Name))
		for _, a := range c.Aliases {
			s.WriteString(" или " + broadcast.EscapeMarkdown("/"+a))
		}
		s.WriteString(" - " + c.Description)
		if c.Access == AccessAdminOnly {
			s.WriteString(" (только для админов)")
		}
		s.WriteString("\n")
	}
	s.WriteString("\nФормат дня рождения: " + broadcast.EscapeMarkdown("/add_birthday 01-15 Иван Иванов"))
	return s.String()
}

func (b *Bot) welcomeText() string {
	return fmt.Sprintf("📜 *%s на связи!* 📜\n\nКаждый день в %s %s здесь будет иронично-исторический пост.\n\nКоманды: /help\n\n#запуск #история #бот",
		broadcast.EscapeMarkdown(b.cfg.BotName), b.cfg.PostTime, b.zonePhrase())
}

type statusView struct {
	Now        time.Time
	Zone       string
	Mode       string
	Backends   []string
	Active     int
	Subscribed bool
	CacheLen   int
	Table      history.Stats
	State      string
	NextFire   time.Time
	Last       broadcast.Result
	LastAt     time.Time
	HasLast    bool
}

func (b *Bot) statusText(v statusView) string {
	var s strings.Builder
	fmt.Fprintf(&s, "📊 *Статус %s*\n\n", broadcast.EscapeMarkdown(b.cfg.BotName))

	s.WriteString("*Время:*\n")
	fmt.Fprintf(&s, "• UTC: %s\n", v.Now.UTC().Format("15:04:05"))
	fmt.Fprintf(&s, "• %s: %s\n", broadcast.EscapeMarkdown(v.Zone), v.Now.Format("15:04:05"))
	fmt.Fprintf(&s, "• Дата: %s\n\n", v.Now.Format("02.01.2006"))

	s.WriteString("*Режим работы:*\n")
	if v.Mode == "api" {
		fmt.Fprintf(&s, "• Генерация: API (%s)\n", broadcast.EscapeMarkdown(strings.Join(v.Backends, ", ")))
	} else {
		s.WriteString("• Генерация: шаблоны\n")
	}
	fmt.Fprintf(&s, "• API доступно: %s\n", yesNo(v.Mode == "api"))
	fmt.Fprintf(&s, "• Активных чатов: %d\n", v.Active)
	fmt.Fprintf(&s, "• Этот чат подписан: %s\n", yesNo(v.Subscribed))
	if v.State != "" {
		fmt.Fprintf(&s, "• Планировщик: %s\n", stateLabel(v.State))
	}
	s.WriteString("\n")

	s.WriteString("*Статистика:*\n")
	fmt.Fprintf(&s, "• Размер кэша: %d\n", v.CacheLen)
	fmt.Fprintf(&s, "• Контент: %d личностей, %d событий, %d фактов\n", v.Table.Figures, v.Table.Events, v.Table.Facts)
	fmt.Fprintf(&s, "• Событий в базе: %d праздников, %d ДР\n", v.Table.Holidays, v.Table.AnniversaryNames)
	if v.HasLast {
		fmt.Fprintf(&s, "• Последняя рассылка: %s, отправлено %d из %d, ошибок %d\n",
			v.LastAt.Format("02.01 15:04"), v.Last.Sent, v.Last.Total, v.Last.Failed)
	}

	if !v.NextFire.IsZero() {
		fmt.Fprintf(&s, "\n*Следующий пост:* %s", v.NextFire.In(v.Now.Location()).Format("02.01.2006 15:04"))
	}
	return s.String()
}

func (b *Bot) todayText(now time.Time, ev broadcast.Events, sent bool) string {
	var s strings.Builder
	s.WriteString("📅 *События на сегодня*\n\n")
	fmt.Fprintf(&s, "*Дата:* %s\n\n", broadcast.HumanDate(now))

	s.WriteString("*Праздники:*\n")
	if ev.Holiday != "" {
		s.WriteString("• " + broadcast.EscapeMarkdown(ev.Holiday) + "\n")
	} else {
		s.WriteString("• Нет праздников\n")
	}

	s.WriteString("\n*Дни рождения:*\n")
	if len(ev.Names) == 0 {
		s.WriteString("• Нет дней рождения\n")
	}
	for _, n := range ev.Names {
		s.WriteString("• " + broadcast.EscapeMarkdown(n) + "\n")
	}

	s.WriteString("\n*Статус:* ")
	if sent {
		s.WriteString("Пост уже отправлен")
	} else {
		fmt.Fprintf(&s, "Ожидается отправка в %s", b.cfg.PostTime)
	}
	return s.String()
}

func chatsText(dests []registry.Destination) string {
	if len(dests) == 0 {
		return "📭 Активных чатов нет."
	}
	var s strings.Builder
	fmt.Fprintf(&s, "💬 *Активные чаты:* %d\n\n", len(dests))
	for i, d := range dests {
		if i == chatsPageSize {
			fmt.Fprintf(&s, "… и ещё %d", len(dests)-chatsPageSize)
			break
		}
		name := d.DisplayName
		if name == "" {
			name = "без названия"
		}
		fmt.Fprintf(&s, "• %s (%s, `%d`)\n", broadcast.EscapeMarkdown(name), d.Kind, d.ID)
	}
	return strings.TrimRight(s.String(), "\n")
}

func cycleText(r broadcast.Result) string {
	if r.Total == 0 {
		return "ℹ️ Пост сгенерирован, но активных чатов нет."
	}
	return fmt.Sprintf("✅ Рассылка завершена!\n\n• Отправлено: %d\n• Уже получили сегодня: %d\n• Ошибок: %d\n• Отключено чатов: %d",
		r.Sent, r.AlreadySent, r.Failed, r.Deactivated)
}

func addBirthdayUsage(list []history.Anniversary) string {
	var s strings.Builder
	s.WriteString("Формат: " + broadcast.EscapeMarkdown("/add_birthday") + " ММ-ДД Имя\n")
	s.WriteString("Пример: " + broadcast.EscapeMarkdown("/add_birthday") + " 01-15 Иван Иванов\n\n")
	s.WriteString("Текущие дни рождения:\n")
	if len(list) == 0 {
		s.WriteString("• пока нет")
	}
	for _, a := range list {
		fmt.Fprintf(&s, "%s: %s\n", a.MonthDay, broadcast.EscapeMarkdown(strings.Join(a.Names, ", ")))
	}
	return strings.TrimRight(s.String(), "\n")
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

func stateLabel(s string) string {
	switch scheduler.State(s) {
	case scheduler.StateFiring:
		return "рассылка"
	case scheduler.StateIdle:
		return "ожидание"
	}
	return s
}
