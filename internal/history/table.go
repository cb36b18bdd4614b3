// Package history holds the canned historical material posts are built
// from: figures with quotes, events, facts, holidays and anniversaries.
package history

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"histobot/internal/clock"
)

var ErrInvalidMonthDay = errors.New("invalid month-day")

type Figure struct {
	Name  string
	Quote string
	Era   string
}

// Data is the raw content a Table is built from.
type Data struct {
	Figures       []Figure
	Events        []string
	Facts         []string
	Actions       []string
	Holidays      map[string]string   // MM-DD -> name
	Anniversaries map[string][]string // MM-DD -> names
}

// Table is safe for concurrent use. Only anniversaries change after
// construction.
type Table struct {
	mu sync.RWMutex

	figures       []Figure
	events        []string
	facts         []string
	actions       []string
	holidays      map[string]string
	anniversaries map[string][]string

	rnd func(n int) int
}

// New builds a table from d. Maps and slices are copied.
func New(d Data) *Table {
	t := &Table{
		figures:       append([]Figure(nil), d.Figures...),
		events:        append([]string(nil), d.Events...),
		facts:         append([]string(nil), d.Facts...),
		actions:       append([]string(nil), d.Actions...),
		holidays:      make(map[string]string, len(d.Holidays)),
		anniversaries: make(map[string][]string, len(d.Anniversaries)),
		rnd:           rand.IntN,
	}
	for k, v := range d.Holidays {
		t.holidays[k] = v
	}
	for k, v := range d.Anniversaries {
		t.anniversaries[k] = append([]string(nil), v...)
	}
	return t
}

// NewDefault returns a table loaded with the built-in Russian content.
func NewDefault() *Table { return New(DefaultData()) }

// WithRand replaces the random source. n is always > 0.
func (t *Table) WithRand(rnd func(n int) int) *Table {
	t.mu.Lock()
	t.rnd = rnd
	t.mu.Unlock()
	return t
}

func (t *Table) pick(n int) int {
	if n <= 1 {
		return 0
	}
	return t.rnd(n)
}

func (t *Table) RandomFigure() Figure {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.figures) == 0 {
		return Figure{}
	}
	return t.figures[t.pick(len(t.figures))]
}

func (t *Table) RandomEvent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pickString(t, t.events)
}

func (t *Table) RandomFact() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pickString(t, t.facts)
}

// RandomAction returns a past-tense verb ("торжествовал") used by holiday
// templates.
func (t *Table) RandomAction() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pickString(t, t.actions)
}

func pickString(t *Table, xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[t.pick(len(xs))]
}

func (t *Table) HolidayFor(md string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.holidays[md]
	return h, ok
}

// AnniversariesFor returns a copy of the names for md; possibly empty.
func (t *Table) AnniversariesFor(md string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.anniversaries[md]...)
}

// AddAnniversary appends name to md's list, creating it when absent.
func (t *Table) AddAnniversary(md, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("anniversary name is empty")
	}
	if err := ValidateMonthDay(md); err != nil {
		return err
	}
	t.mu.Lock()
	t.anniversaries[md] = append(t.anniversaries[md], name)
	t.mu.Unlock()
	return nil
}

// Anniversary is one (MM-DD, names) row as listed by /add_birthday.
type Anniversary struct {
	MonthDay string
	Names    []string
}

// Anniversaries lists every key in calendar order.
func (t *Table) Anniversaries() []Anniversary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Anniversary, 0, len(t.anniversaries))
	for md, names := range t.anniversaries {
		out = append(out, Anniversary{MonthDay: md, Names: append([]string(nil), names...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthDay < out[j].MonthDay })
	return out
}

// MonthDay formats t as zero-padded "MM-DD".
func MonthDay(t time.Time) string { return t.Format(clock.MonthDayLayout) }

// ValidateMonthDay accepts "MM-DD" naming a real calendar day. Feb 29 is
// allowed.
func ValidateMonthDay(md string) error {
	if len(md) != 5 || md[2] != '-' {
		return fmt.Errorf("%w: %q (want MM-DD)", ErrInvalidMonthDay, md)
	}
	// 2000 is a leap year so 02-29 parses.
	if _, err := time.Parse("2006-01-02", "2000-"+md); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonthDay, md)
	}
	return nil
}

type Stats struct {
	Figures          int
	Events           int
	Facts            int
	Holidays         int
	AnniversaryDays  int
	AnniversaryNames int
}

func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Stats{
		Figures:         len(t.figures),
		Events:          len(t.events),
		Facts:           len(t.facts),
		Holidays:        len(t.holidays),
		AnniversaryDays: len(t.anniversaries),
	}
	for _, names := range t.anniversaries {
		s.AnniversaryNames += len(names)
	}
	return s
}
