package broadcast

import (
	"fmt"
	"strings"
	"time"

	"histobot/internal/history"
	"histobot/internal/textgen"
)

// Hashtags close every post.
const Hashtags = "#история #цитатадня #историческиепараллели"

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// Events are the calendar annotations for one day.
type Events struct {
	Holiday string
	Names   []string
}

func (e Events) Empty() bool { return e.Holiday == "" && len(e.Names) == 0 }

// EventsFor looks up the holiday and anniversaries for md ("MM-DD").
func EventsFor(table *history.Table, md string) Events {
	var ev Events
	if h, ok := table.HolidayFor(md); ok {
		ev.Holiday = h
	}
	ev.Names = table.AnniversariesFor(md)
	return ev
}

// SelectKind picks the post kind: anniversaries win over holidays.
func SelectKind(ev Events) (textgen.Kind, textgen.Params) {
	switch {
	case len(ev.Names) > 0:
		return textgen.KindBirthday, textgen.Params{textgen.ParamNames: strings.Join(ev.Names, ", ")}
	case ev.Holiday != "":
		return textgen.KindHoliday, textgen.Params{textgen.ParamHoliday: ev.Holiday}
	default:
		return textgen.KindMorning, textgen.Params{}
	}
}

// HumanDate renders t as "9 мая 2024".
func HumanDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthsGenitive[t.Month()-1], t.Year())
}

// Format renders the outbound Markdown message.
func Format(post textgen.Post, ev Events, now time.Time, botName string) string {
	var b strings.Builder
	b.WriteString("📜 *")
	b.WriteString(EscapeMarkdown(strings.ToUpper(botName)))
	b.WriteString("* 📜\n\n")
	b.WriteString(EscapeMarkdown(strings.TrimSpace(post.Body)))
	b.WriteString("\n\n")
	if len(ev.Names) > 0 {
		b.WriteString("🎂 Дни рождения: ")
		b.WriteString(EscapeMarkdown(strings.Join(ev.Names, ", ")))
		b.WriteString("\n")
	}
	if ev.Holiday != "" {
		b.WriteString("🎉 Праздник: ")
		b.WriteString(EscapeMarkdown(ev.Holiday))
		b.WriteString("\n")
	}
	b.WriteString("\n_")
	b.WriteString(HumanDate(now))
	b.WriteString("_\n")
	b.WriteString(Hashtags)
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as
// entity delimiters.
func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
