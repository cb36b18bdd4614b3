package history

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestHolidayFor(t *testing.T) {
	t.Parallel()

	tbl := NewDefault()
	got, ok := tbl.HolidayFor("05-09")
	if !ok || got != "День Победы" {
		t.Fatalf("HolidayFor(05-09)=%q,%v want День Победы", got, ok)
	}
	if _, ok := tbl.HolidayFor("07-04"); ok {
		t.Fatalf("07-04 should have no holiday")
	}
}

func TestMonthDayIsZeroPadded(t *testing.T) {
	t.Parallel()

	got := MonthDay(time.Date(2024, time.May, 9, 9, 0, 0, 0, time.UTC))
	if got != "05-09" {
		t.Fatalf("MonthDay=%q want 05-09", got)
	}
}

func TestAddAnniversaryAppends(t *testing.T) {
	t.Parallel()

	tbl := NewDefault()
	if err := tbl.AddAnniversary("01-15", "Иван"); err != nil {
		t.Fatalf("AddAnniversary: %v", err)
	}
	got := tbl.AnniversariesFor("01-15")
	want := []string{"Иван Грозный", "Арина Родионовна", "Иван"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}

	if err := tbl.AddAnniversary("07-07", "Марк Шагал"); err != nil {
		t.Fatalf("AddAnniversary new key: %v", err)
	}
	if got := tbl.AnniversariesFor("07-07"); len(got) != 1 || got[0] != "Марк Шагал" {
		t.Fatalf("new key: %v", got)
	}
}

func TestAnniversariesForReturnsCopy(t *testing.T) {
	t.Parallel()

	tbl := NewDefault()
	got := tbl.AnniversariesFor("03-31")
	got[0] = "changed"
	if again := tbl.AnniversariesFor("03-31"); again[0] != "Рене Декарт" {
		t.Fatalf("table mutated through returned slice: %v", again)
	}
	if empty := tbl.AnniversariesFor("07-04"); len(empty) != 0 {
		t.Fatalf("want empty, got %v", empty)
	}
}

func TestValidateMonthDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in string
		ok bool
	}{
		{"01-15", true},
		{"02-29", true},
		{"12-31", true},
		{"02-30", false},
		{"13-01", false},
		{"1-15", false},
		{"01/15", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateMonthDay(tt.in)
		if tt.ok && err != nil {
			t.Fatalf("ValidateMonthDay(%q) unexpected error: %v", tt.in, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidMonthDay) {
			t.Fatalf("ValidateMonthDay(%q)=%v want ErrInvalidMonthDay", tt.in, err)
		}
	}
}

func TestAddAnniversaryRejectsBadInput(t *testing.T) {
	t.Parallel()

	tbl := NewDefault()
	if err := tbl.AddAnniversary("02-30", "Никто"); !errors.Is(err, ErrInvalidMonthDay) {
		t.Fatalf("want ErrInvalidMonthDay, got %v", err)
	}
	if err := tbl.AddAnniversary("01-15", "  "); err == nil {
		t.Fatalf("empty name should fail")
	}
}

func TestRandomPicksUseSource(t *testing.T) {
	t.Parallel()

	tbl := NewDefault().WithRand(func(n int) int { return n - 1 })
	if f := tbl.RandomFigure(); f.Name != "Черчилль" {
		t.Fatalf("RandomFigure=%q", f.Name)
	}
	if e := tbl.RandomEvent(); e != "Состоялась Бородинская битва" {
		t.Fatalf("RandomEvent=%q", e)
	}
	if a := tbl.RandomAction(); a != "творил" {
		t.Fatalf("RandomAction=%q", a)
	}
	if f := tbl.RandomFact(); f == "" {
		t.Fatalf("RandomFact empty")
	}
}

func TestEmptyTableIsSafe(t *testing.T) {
	t.Parallel()

	tbl := New(Data{})
	if f := tbl.RandomFigure(); f.Name != "" {
		t.Fatalf("want zero figure")
	}
	if e := tbl.RandomEvent(); e != "" {
		t.Fatalf("want empty event")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := NewDefault().Stats()
	if s.Figures != 7 || s.Events != 8 || s.Facts != 5 || s.Holidays != 12 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.AnniversaryDays != 12 || s.AnniversaryNames != 14 {
		t.Fatalf("unexpected anniversary stats %+v", s)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	tbl := NewDefault()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = tbl.AddAnniversary("06-06", "Читатель")
		}()
		go func() {
			defer wg.Done()
			_ = tbl.AnniversariesFor("06-06")
			_ = tbl.RandomFigure()
		}()
	}
	wg.Wait()
	if got := len(tbl.AnniversariesFor("06-06")); got != 9 {
		t.Fatalf("anniversaries=%d want 9", got)
	}
}
