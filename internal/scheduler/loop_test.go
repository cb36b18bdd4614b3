package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histobot/internal/broadcast"
	"histobot/internal/clock"
	"histobot/pkg/logx"
)

type fakeCycler struct {
	calls   atomic.Int32
	err     error
	panic   bool
	skipped bool
	seen    chan State
	loop    *Loop
	at      atomic.Value // time.Time
}

func (f *fakeCycler) Cycle(ctx context.Context, opt broadcast.Options) (broadcast.Result, error) {
	f.calls.Add(1)
	f.at.Store(opt.At)
	if f.loop != nil && f.seen != nil {
		f.seen <- f.loop.State()
	}
	if opt.BypassTimeGate {
		return broadcast.Result{}, errors.New("scheduler must not bypass the gate")
	}
	if f.panic {
		panic("boom")
	}
	if f.skipped {
		return broadcast.Result{Skipped: true}, nil
	}
	return broadcast.Result{Sent: 1}, f.err
}

func newLoop(t *testing.T, cy Cycler, now *time.Time) *Loop {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	c := clock.New(loc).WithNow(func() time.Time { return *now })
	l, err := New(Config{Target: clock.TimeOfDay{Hour: 9}}, cy, c, logx.Nop())
	require.NoError(t, err)
	return l
}

func msk(t *testing.T, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestTickFiresOncePerDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cy := &fakeCycler{}
	now := msk(t, 2024, 3, 15, 8, 59)
	l := newLoop(t, cy, &now)

	assert.False(t, l.Tick(ctx))

	now = now.Add(time.Minute)
	assert.True(t, l.Tick(ctx))
	// A second poll inside the same minute.
	now = now.Add(30 * time.Second)
	assert.False(t, l.Tick(ctx))
	assert.Equal(t, int32(1), cy.calls.Load())
	assert.Equal(t, "2024-03-15", l.LastFired())

	now = msk(t, 2024, 3, 16, 9, 0)
	assert.True(t, l.Tick(ctx))
	assert.Equal(t, int32(2), cy.calls.Load())
	assert.Equal(t, StateIdle, l.State())
}

func TestTickUsesReferenceZone(t *testing.T) {
	t.Parallel()
	cy := &fakeCycler{}
	// 06:00 UTC is 09:00 in Moscow.
	now := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	l := newLoop(t, cy, &now)

	assert.True(t, l.Tick(context.Background()))
}

func TestTickRecoversFromPanicAndErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cy := &fakeCycler{panic: true}
	now := msk(t, 2024, 3, 15, 9, 0)
	l := newLoop(t, cy, &now)
	assert.NotPanics(t, func() { l.Tick(ctx) })
	assert.Equal(t, StateIdle, l.State())

	cy2 := &fakeCycler{err: errors.New("store down")}
	l2 := newLoop(t, cy2, &now)
	assert.True(t, l2.Tick(ctx))
	assert.Equal(t, StateIdle, l2.State())
}

func TestStateIsFiringDuringCycle(t *testing.T) {
	t.Parallel()
	cy := &fakeCycler{seen: make(chan State, 1)}
	now := msk(t, 2024, 3, 15, 9, 0)
	l := newLoop(t, cy, &now)
	cy.loop = l

	l.Tick(context.Background())
	assert.Equal(t, StateFiring, <-cy.seen)
	assert.Equal(t, StateIdle, l.State())
}

func TestNextFire(t *testing.T) {
	t.Parallel()
	now := msk(t, 2024, 3, 15, 8, 0)
	l := newLoop(t, &fakeCycler{}, &now)

	cases := []struct {
		from, want time.Time
	}{
		{from: now, want: msk(t, 2024, 3, 15, 9, 0)},
		{from: msk(t, 2024, 3, 15, 9, 0), want: msk(t, 2024, 3, 16, 9, 0)},
		// Evaluated in the reference zone regardless of the input zone.
		{from: time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC), want: msk(t, 2024, 3, 16, 9, 0)},
	}
	for _, tc := range cases {
		got := l.NextFire(tc.from)
		assert.True(t, tc.want.Equal(got), "from %s: got %s want %s", tc.from, got, tc.want)
		assert.Equal(t, "Europe/Moscow", got.Location().String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	cy := &fakeCycler{}
	now := msk(t, 2024, 3, 15, 9, 0)
	l := newLoop(t, cy, &now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return cy.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTickPassesItsInstantToCycle(t *testing.T) {
	t.Parallel()
	cy := &fakeCycler{}
	now := msk(t, 2024, 3, 15, 9, 0).Add(59*time.Second + 999*time.Millisecond)
	l := newLoop(t, cy, &now)

	require.True(t, l.Tick(context.Background()))
	at, _ := cy.at.Load().(time.Time)
	assert.True(t, now.Equal(at), "cycle got %s, tick saw %s", at, now)
}

func TestSkippedCycleDoesNotConsumeTheDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cy := &fakeCycler{skipped: true}
	now := msk(t, 2024, 3, 15, 9, 0)
	l := newLoop(t, cy, &now)

	assert.False(t, l.Tick(ctx))
	assert.Empty(t, l.LastFired())

	cy.skipped = false
	now = now.Add(30 * time.Second)
	assert.True(t, l.Tick(ctx))
	assert.Equal(t, int32(2), cy.calls.Load())
	assert.Equal(t, "2024-03-15", l.LastFired())
}
