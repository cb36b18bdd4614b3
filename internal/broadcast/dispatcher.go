// Package broadcast runs the daily delivery cycle: one generated post fanned
// out to every active destination that has not been served today.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"histobot/internal/clock"
	"histobot/internal/history"
	"histobot/internal/registry"
	"histobot/internal/sendtrack"
	"histobot/internal/textgen"
	"histobot/internal/transport"
	"histobot/pkg/logx"
)

var ErrCycleRunning = errors.New("broadcast cycle already running")

const (
	defaultRatePerSec     = 1.0
	defaultRateLimitPause = 3 * time.Second
	defaultMaxPause       = 30 * time.Second
	defaultRetentionDays  = 30
)

// Sender is the part of transport.Adapter the dispatcher needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// Generator produces the post body for a cycle.
type Generator interface {
	Generate(ctx context.Context, kind textgen.Kind, p textgen.Params) (textgen.Post, error)
}

// Recorder receives per-delivery and per-cycle outcomes.
type Recorder interface {
	ObserveDelivery(outcome string)
	ObserveCycle(result string)
	SetActiveDestinations(n int)
}

type Config struct {
	BotName string
	// PostTime is the firing minute in the clock's zone.
	PostTime clock.TimeOfDay
	// RatePerSec paces sends within a cycle. Default 1.
	RatePerSec float64
	// RateLimitPause applies when the platform gives no retry hint. Default 3s.
	RateLimitPause time.Duration
	// MaxPause caps any rate-limit pause. Default 30s.
	MaxPause time.Duration
	// PurgeWeekday is when old send records are dropped. Default Sunday.
	PurgeWeekday  time.Weekday
	RetentionDays int
}

type Options struct {
	// BypassTimeGate runs the cycle outside the configured minute.
	BypassTimeGate bool
	// At is the instant the caller decided to fire. It drives the time gate
	// and the day key. Zero means the clock's now.
	At time.Time
}

type Result struct {
	// Skipped is set when the time gate closed the cycle.
	Skipped     bool
	Kind        textgen.Kind
	Fingerprint string
	Source      string

	Total       int
	Sent        int
	AlreadySent int
	Failed      int
	Deactivated int
	RateLimited int
	Purged      int64
}

// Deps are the collaborators a Dispatcher is built from. Recorder is optional.
type Deps struct {
	Table     *history.Table
	Generator Generator
	Registry  *registry.Registry
	Tracker   *sendtrack.Tracker
	Sender    Sender
	Clock     clock.Clock
	Recorder  Recorder
}

type Dispatcher struct {
	cfg      Config
	table    *history.Table
	gen      Generator
	registry *registry.Registry
	tracker  *sendtrack.Tracker
	sender   Sender
	clock    clock.Clock
	limiter  *rate.Limiter
	rec      Recorder
	log      logx.Logger

	running sync.Mutex

	mu        sync.Mutex
	lastPurge string
	last      *Result
	lastAt    time.Time

	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, deps Deps, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = defaultRateLimitPause
	}
	if cfg.MaxPause <= 0 {
		cfg.MaxPause = defaultMaxPause
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		cfg:      cfg,
		table:    deps.Table,
		gen:      deps.Generator,
		registry: deps.Registry,
		tracker:  deps.Tracker,
		sender:   deps.Sender,
		clock:    deps.Clock,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		rec:      deps.Recorder,
		log:      log.With(logx.String("comp", "broadcast")),
		sleep:    sleepCtx,
	}
}

// Last returns the most recent non-skipped cycle result.
func (d *Dispatcher) Last() (Result, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return Result{}, time.Time{}, false
	}
	return *d.last, d.lastAt, true
}

// Cycle runs one broadcast. Concurrent calls return ErrCycleRunning.
//
// Once past the time gate the cycle ignores cancellation of ctx and serves
// every destination; callers that shut down bound their wait instead.
func (d *Dispatcher) Cycle(ctx context.Context, opt Options) (Result, error) {
	if !d.running.TryLock() {
		return Result{}, ErrCycleRunning
	}
	defer d.running.Unlock()

	now := opt.At
	if now.IsZero() {
		now = d.clock.Now()
	}
	if !opt.BypassTimeGate && !d.cfg.PostTime.Matches(now) {
		return Result{Skipped: true}, nil
	}
	ctx = context.WithoutCancel(ctx)

	res, err := d.cycle(ctx, now)
	switch {
	case err != nil:
		d.observeCycle("error")
	case res.Failed > 0:
		d.observeCycle("partial")
	default:
		d.observeCycle("ok")
	}
	if err != nil {
		return res, err
	}

	d.maybePurge(ctx, now, &res)

	d.mu.Lock()
	cp := res
	d.last = &cp
	d.lastAt = now
	d.mu.Unlock()
	return res, nil
}

func (d *Dispatcher) cycle(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	day := d.clock.Day(now)
	ev := EventsFor(d.table, d.clock.MonthDay(now))
	kind, params := SelectKind(ev)
	log := d.log.With(logx.String("day", day), logx.String("kind", string(kind)))

	post, err := d.gen.Generate(ctx, kind, params)
	if err != nil {
		return Result{Kind: kind}, fmt.Errorf("generate post: %w", err)
	}
	text := Format(post, ev, now, d.cfg.BotName)
	res := Result{Kind: kind, Fingerprint: post.Fingerprint, Source: post.Source}

	dests, err := d.registry.ListActive(ctx)
	if err != nil {
		return res, err
	}
	res.Total = len(dests)
	log.Info("broadcast cycle started", logx.Int("destinations", len(dests)), logx.String("source", post.Source))

	for _, dest := range dests {
		sent, err := d.tracker.WasSentOn(ctx, dest.ID, day)
		if err != nil {
			log.Warn("send state lookup failed", logx.Int64("chat_id", dest.ID), logx.Err(err))
			res.Failed++
			d.observeDelivery("failed")
			continue
		}
		if sent {
			res.AlreadySent++
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return res, err
		}
		d.deliver(ctx, log, dest, day, text, post.Fingerprint, &res)
	}

	if n, err := d.registry.Count(ctx); err == nil && d.rec != nil {
		d.rec.SetActiveDestinations(n)
	}

	fields := []logx.Field{
		logx.Int("total", res.Total),
		logx.Int("sent", res.Sent),
		logx.Int("already_sent", res.AlreadySent),
		logx.Int("failed", res.Failed),
		logx.Int("deactivated", res.Deactivated),
		logx.Duration("dur", time.Since(start)),
	}
	if res.Failed > 0 {
		log.Warn("broadcast cycle finished with failures", fields...)
	} else {
		log.Info("broadcast cycle finished", fields...)
	}
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, log logx.Logger, dest registry.Destination, day, text, fingerprint string, res *Result) {
	chat := logx.Int64("chat_id", dest.ID)
	_, err := d.sender.SendText(ctx, transport.ChatTarget{ChatID: dest.ID}, text, &transport.SendOptions{ParseMode: transport.ParseModeMarkdown})
	outcome := transport.Classify(err)
	d.observeDelivery(string(outcome))

	switch outcome {
	case transport.OutcomeSent:
		if err := d.tracker.MarkSentOn(ctx, dest.ID, day, fingerprint); err != nil {
			// Delivered but unrecorded: a later cycle today may send again.
			log.Error("mark sent failed", chat, logx.Err(err))
		}
		res.Sent++
	case transport.OutcomeGone:
		res.Failed++
		if _, err := d.registry.Deactivate(ctx, dest.ID); err != nil {
			log.Error("deactivate failed", chat, logx.Err(err))
			return
		}
		res.Deactivated++
		log.Info("destination gone", chat, logx.Err(err))
	case transport.OutcomeForbidden:
		res.Failed++
		log.Warn("no rights to post", chat, logx.Err(err))
	case transport.OutcomeRateLimited:
		res.Failed++
		res.RateLimited++
		pause := transport.RetryAfter(err)
		if pause <= 0 {
			pause = d.cfg.RateLimitPause
		}
		if pause > d.cfg.MaxPause {
			pause = d.cfg.MaxPause
		}
		log.Warn("rate limited", chat, logx.Duration("pause", pause))
		_ = d.sleep(ctx, pause)
	default:
		res.Failed++
		log.Warn("send failed", chat, logx.Err(err))
	}
}

func (d *Dispatcher) maybePurge(ctx context.Context, now time.Time, res *Result) {
	if now.Weekday() != d.cfg.PurgeWeekday {
		return
	}
	day := d.clock.Day(now)
	d.mu.Lock()
	done := d.lastPurge == day
	d.lastPurge = day
	d.mu.Unlock()
	if done {
		return
	}
	n, err := d.tracker.PurgeOlderThan(ctx, d.cfg.RetentionDays)
	if err != nil {
		d.log.Warn("send record purge failed", logx.Err(err))
		return
	}
	res.Purged = n
}

func (d *Dispatcher) observeDelivery(outcome string) {
	if d.rec != nil {
		d.rec.ObserveDelivery(outcome)
	}
}

func (d *Dispatcher) observeCycle(result string) {
	if d.rec != nil {
		d.rec.ObserveCycle(result)
	}
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
