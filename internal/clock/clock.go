// Package clock provides wall-clock time in the bot's reference timezone.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DayLayout      = "2006-01-02"
	MonthDayLayout = "01-02"

	DefaultZone = "Europe/Moscow"
)

// Clock reports the current time in a fixed location. The zero value uses
// UTC and time.Now.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc, now: time.Now}
}

// Load resolves an IANA zone name; empty means DefaultZone.
func Load(name string) (Clock, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Clock{}, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc), nil
}

// WithNow returns a copy of c driven by now. Used by tests.
func (c Clock) WithNow(now func() time.Time) Clock {
	c.now = now
	return c
}

// Fixed returns a clock frozen at t, in t's location.
func Fixed(t time.Time) Clock {
	return Clock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c Clock) Now() time.Time {
	now := c.now
	if now == nil {
		now = time.Now
	}
	return now().In(c.Location())
}

// Day formats t as the reference-zone calendar day.
func (c Clock) Day(t time.Time) string { return t.In(c.Location()).Format(DayLayout) }

func (c Clock) Today() string { return c.Day(c.Now()) }

// MonthDay formats t as zero-padded "MM-DD" in the reference zone.
func (c Clock) MonthDay(t time.Time) string { return t.In(c.Location()).Format(MonthDayLayout) }

// TimeOfDay is an hour and minute in the reference zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Matches reports whether now falls inside t's minute.
func (t TimeOfDay) Matches(now time.Time) bool {
	return now.Hour() == t.Hour && now.Minute() == t.Minute
}

// ParseTimeOfDay parses "HH:MM" (24h). "9:00" is accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || len(ms) != 2 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}
