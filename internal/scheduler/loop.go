// Package scheduler polls the wall clock and fires the daily broadcast.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"histobot/internal/broadcast"
	"histobot/internal/clock"
	"histobot/pkg/logx"
)

const DefaultInterval = 55 * time.Second

type State string

const (
	StateIdle   State = "idle"
	StateFiring State = "firing"
)

// Cycler runs one broadcast cycle.
type Cycler interface {
	Cycle(ctx context.Context, opt broadcast.Options) (broadcast.Result, error)
}

type Config struct {
	Target   clock.TimeOfDay
	Interval time.Duration
}

// Loop fires at most once per day per process. The send tracker behind the
// cycler is what prevents duplicates across restarts.
type Loop struct {
	cfg      Config
	cycler   Cycler
	clock    clock.Clock
	schedule cron.Schedule
	log      logx.Logger

	state atomic.Value // State

	mu        sync.Mutex
	lastFired string
}

func New(cfg Config, cycler Cycler, c clock.Clock, log logx.Logger) (*Loop, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", c.Location().String(), cfg.Target.Minute, cfg.Target.Hour)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("daily schedule %q: %w", spec, err)
	}
	l := &Loop{
		cfg:      cfg,
		cycler:   cycler,
		clock:    c,
		schedule: sched,
		log:      log.With(logx.String("comp", "scheduler")),
	}
	l.state.Store(StateIdle)
	return l, nil
}

func (l *Loop) State() State {
	s, _ := l.state.Load().(State)
	return s
}

// NextFire returns the next firing time after now in the reference zone.
func (l *Loop) NextFire(now time.Time) time.Time {
	return l.schedule.Next(now).In(l.clock.Location())
}

// LastFired returns the day of the last firing, or "".
func (l *Loop) LastFired() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastFired
}

// Run checks once immediately and then every interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("scheduler started",
		logx.String("target", l.cfg.Target.String()),
		logx.Duration("interval", l.cfg.Interval),
		logx.Time("next", l.NextFire(l.clock.Now())),
	)
	t := time.NewTicker(l.cfg.Interval)
	defer t.Stop()

	l.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("scheduler stopped")
			return nil
		case <-t.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one check. It reports whether a cycle was started.
func (l *Loop) Tick(ctx context.Context) (fired bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic in scheduler tick", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
		l.state.Store(StateIdle)
	}()

	now := l.clock.Now()
	day := l.clock.Day(now)

	l.mu.Lock()
	due := l.cfg.Target.Matches(now) && l.lastFired != day
	if due {
		l.lastFired = day
	}
	l.mu.Unlock()
	if !due {
		return false
	}

	l.state.Store(StateFiring)
	l.log.Info("firing daily broadcast", logx.String("day", day))
	res, err := l.cycler.Cycle(ctx, broadcast.Options{At: now})
	switch {
	case errors.Is(err, broadcast.ErrCycleRunning):
		l.log.Warn("broadcast already running")
	case err != nil:
		l.log.Error("broadcast cycle failed", logx.Err(err))
	case res.Skipped:
		// Nothing went out; let a later tick in the window try again.
		l.mu.Lock()
		if l.lastFired == day {
			l.lastFired = ""
		}
		l.mu.Unlock()
		l.log.Warn("daily broadcast skipped by time gate", logx.String("day", day), logx.Time("at", now))
		return false
	default:
		l.log.Info("daily broadcast done",
			logx.Int("sent", res.Sent),
			logx.Int("already_sent", res.AlreadySent),
			logx.Int("failed", res.Failed),
		)
	}
	return true
}
