// Package app wires the bot's components together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"histobot/internal/bot"
	"histobot/internal/broadcast"
	"histobot/internal/clock"
	"histobot/internal/config"
	"histobot/internal/history"
	"histobot/internal/metrics"
	"histobot/internal/registry"
	"histobot/internal/runtime/supervisor"
	"histobot/internal/scheduler"
	"histobot/internal/sendtrack"
	"histobot/internal/storage"
	"histobot/internal/textgen"
	"histobot/internal/transport"
	"histobot/internal/transport/telegram"
	"histobot/pkg/logx"
)

type Options struct {
	ConfigPath string
	// EnvFile is loaded before the config; default ".env", missing is fine.
	EnvFile string
}

type App struct {
	cfgm *config.Manager
	cfg  *config.Config
	rt   config.Runtime
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	store   storage.Store
	metrics *metrics.Metrics

	registry   *registry.Registry
	dispatcher *broadcast.Dispatcher
	loop       *scheduler.Loop
	bot        *bot.Bot

	updates chan transport.Update
}

// New loads configuration and builds every component. Nothing runs until
// Start.
func New(ctx context.Context, opt Options) (*App, error) {
	if err := config.LoadDotEnv(opt.EnvFile); err != nil {
		return nil, err
	}
	cfgm := config.NewManager(opt.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	rt, err := config.Resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: rt.PollTimeout,
	}, bootLog)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	logSvc, root := logx.New(logConfig(cfg.Logging), ad)
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root)

	st, err := storage.Open(ctx, storageConfig(cfg.Storage, rt), root.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	clk := clock.New(rt.Location)
	m := metrics.New()

	table := history.NewDefault()
	if n, err := loadAnniversaries(ctx, st, table, log); err != nil {
		log.Warn("stored anniversaries not loaded", logx.Err(err))
	} else if n > 0 {
		log.Info("stored anniversaries loaded", logx.Int("count", n))
	}

	backends := buildBackends(ctx, cfg.Generation, log)
	gen := textgen.New(table, textgen.Options{
		BotName:  cfg.Bot.Name,
		Backends: backends,
		Timeout:  rt.GenerationTimeout,
		MaxRunes: cfg.Generation.MaxRunes,
		CacheTTL: rt.CacheTTL,
		Recorder: m,
	}, root)

	reg := registry.New(st, root)
	tracker := sendtrack.New(st, clk, root)

	disp := broadcast.New(broadcast.Config{
		BotName:        cfg.Bot.Name,
		PostTime:       rt.PostTime,
		RatePerSec:     cfg.Bot.RatePerSec,
		RateLimitPause: rt.RateLimitPause,
		MaxPause:       rt.MaxPause,
		PurgeWeekday:   rt.PurgeWeekday,
		RetentionDays:  cfg.Bot.RetentionDays,
	}, broadcast.Deps{
		Table:     table,
		Generator: gen,
		Registry:  reg,
		Tracker:   tracker,
		Sender:    ad,
		Clock:     clk,
		Recorder:  m,
	}, root)

	loop, err := scheduler.New(scheduler.Config{
		Target:   rt.PostTime,
		Interval: rt.TickInterval,
	}, disp, clk, root)
	if err != nil {
		_ = st.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	b := bot.New(bot.Config{
		BotName:        cfg.Bot.Name,
		TestNames:      cfg.Bot.TestNames,
		PostTime:       rt.PostTime,
		Username:       ad.Me(),
		Admins:         cfg.Telegram.AdminIDs,
		CommandTimeout: rt.CommandTimeout,
		Workers:        cfg.Bot.Workers,
	}, bot.Deps{
		Sender:        ad,
		Menu:          ad,
		Table:         table,
		Generator:     gen,
		Registry:      reg,
		Tracker:       tracker,
		Dispatcher:    disp,
		Schedule:      loop,
		Anniversaries: st,
		Clock:         clk,
		Recorder:      m,
	}, root)

	log.Info("generation mode",
		logx.String("mode", gen.Mode()), logx.Strings("backends", gen.BackendNames()))
	if len(cfg.Telegram.AdminIDs) == 0 {
		log.Warn("admin allowlist is empty; /post_now and /clear_cache are disabled")
	}

	return &App{
		cfgm:       cfgm,
		cfg:        cfg,
		rt:         rt,
		log:        log,
		logs:       logSvc,
		adapter:    ad,
		store:      st,
		metrics:    m,
		registry:   reg,
		dispatcher: disp,
		loop:       loop,
		bot:        b,
		updates:    make(chan transport.Update, 256),
	}, nil
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	if err := a.seedDestination(runCtx); err != nil {
		a.log.Warn("seed destination not registered", logx.Err(err))
	}
	if n, err := a.registry.Count(runCtx); err == nil {
		a.metrics.SetActiveDestinations(n)
		a.log.Info("destinations loaded", logx.Int("active", n))
	}

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return fmt.Errorf("telegram start: %w", err)
	}
	mctx, cancel := context.WithTimeout(runCtx, 10*time.Second)
	if err := a.bot.SyncMenu(mctx); err != nil {
		a.log.Warn("command menu not updated", logx.Err(err))
	}
	cancel()

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.bot.Run(c, a.updates)
	})
	a.sup.GoRestart("scheduler", a.loop.Run,
		supervisor.WithRestartBackoff(time.Second, time.Minute))

	if mc := metricsConfig(a.cfg.Metrics); mc.Enabled {
		a.sup.Go0("metrics", func(c context.Context) {
			if err := metrics.Serve(c, mc, a.metrics, a.log); err != nil {
				a.log.Error("metrics listener stopped", logx.Err(err))
			}
		})
	}

	a.startConfigReload()
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("systemd.watchdog", func(c context.Context) { watchdog(c, a.log) })

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started",
		logx.String("post_time", a.rt.PostTime.String()),
		logx.String("timezone", a.rt.Location.String()),
		logx.String("next_post", a.loop.NextFire(time.Now()).Format(time.RFC3339)))
	return nil
}

// seedDestination registers telegram.seed_chat_id once. An existing row is
// left alone so a chat that removed the bot is not reactivated on restart.
func (a *App) seedDestination(ctx context.Context) error {
	id := a.cfg.Telegram.SeedChatID
	if id == 0 {
		return nil
	}
	_, ok, err := a.registry.Get(ctx, id)
	if err != nil || ok {
		return err
	}
	kind := transport.ChatGroup
	if id > 0 {
		kind = transport.ChatDirect
	}
	if err := a.registry.Upsert(ctx, id, "", kind); err != nil {
		return err
	}
	a.log.Info("seed destination registered", logx.Int64("chat_id", id))
	return nil
}

// startConfigReload applies the live sections of a reloaded config: logging
// and the admin allowlist. Other changes need a restart.
func (a *App) startConfigReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the newest config.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							next = newer
						}
					default:
						break drain
					}
				}
				changed, _ := config.SummarizeChange(last, next)
				last = next
				if len(changed) == 0 {
					continue
				}
				a.logs.Apply(logConfig(next.Logging))
				a.bot.SetAdmins(next.Telegram.AdminIDs)
				if pending := config.RestartRequired(changed); len(pending) > 0 {
					a.log.Warn("config changes need a restart", logx.String("sections", strings.Join(pending, ",")))
				}
			}
		}
	})
}

// Stop shuts components down in order, each step bounded so one stuck
// component cannot stall the rest. The whole sequence is bounded by the
// configured shutdown grace.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(ctx, a.rt.ShutdownGrace)
	defer cancel()

	a.sup.Cancel()

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	// The supervisor first: an in-flight cycle keeps delivering and is
	// abandoned only when the grace period runs out.
	step("supervisor", a.rt.ShutdownGrace, func(c context.Context) error { return a.sup.Wait(c) })
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}
