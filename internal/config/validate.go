package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"histobot/internal/clock"
	"histobot/internal/storage"
	"histobot/pkg/logx"
)

var ErrMissingToken = errors.New("telegram token is required (telegram.token or TELEGRAM_TOKEN)")

// Runtime holds the parsed form of a Config.
type Runtime struct {
	Location       *time.Location
	PostTime       clock.TimeOfDay
	TickInterval   time.Duration
	PollTimeout    time.Duration
	CommandTimeout time.Duration
	ShutdownGrace  time.Duration
	RateLimitPause time.Duration
	MaxPause       time.Duration
	PurgeWeekday   time.Weekday

	GenerationTimeout time.Duration
	CacheTTL          time.Duration

	StorageKind    storage.Kind
	BusyTimeout    time.Duration
	RedisRecordTTL time.Duration
}

// Resolve validates c and parses its derived values. c should already have
// defaults applied.
func Resolve(c *Config) (Runtime, error) {
	var rt Runtime
	if c == nil {
		return rt, errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	dur := func(path, raw string, def time.Duration) time.Duration {
		d, err := parseDuration(path, raw, def)
		add(err)
		return d
	}

	if strings.TrimSpace(c.Telegram.Token) == "" {
		add(ErrMissingToken)
	}

	loc, err := time.LoadLocation(c.Bot.Timezone)
	if err != nil {
		add(fmt.Errorf("bot.timezone: %w", err))
	}
	rt.Location = loc

	rt.PostTime, err = clock.ParseTimeOfDay(c.Bot.PostTime)
	if err != nil {
		add(fmt.Errorf("bot.post_time: %w", err))
	}
	rt.PurgeWeekday, err = parseWeekday(c.Bot.PurgeWeekday)
	if err != nil {
		add(fmt.Errorf("bot.purge_weekday: %w", err))
	}

	rt.TickInterval = dur("bot.tick_interval", c.Bot.TickInterval, 55*time.Second)
	rt.PollTimeout = dur("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second)
	rt.CommandTimeout = dur("bot.command_timeout", c.Bot.CommandTimeout, 30*time.Second)
	rt.ShutdownGrace = dur("bot.shutdown_grace", c.Bot.ShutdownGrace, 10*time.Second)
	rt.RateLimitPause = dur("bot.rate_limit_pause", c.Bot.RateLimitPause, 3*time.Second)
	rt.MaxPause = dur("bot.max_pause", c.Bot.MaxPause, 30*time.Second)
	rt.GenerationTimeout = dur("generation.timeout", c.Generation.Timeout, 10*time.Second)
	rt.CacheTTL = dur("generation.cache_ttl", c.Generation.CacheTTL, 0)
	rt.BusyTimeout = dur("storage.busy_timeout", c.Storage.BusyTimeout, 5*time.Second)
	rt.RedisRecordTTL = dur("storage.redis.record_ttl", c.Storage.Redis.RecordTTL, 0)

	rt.StorageKind, err = storage.ParseKind(c.Storage.Driver)
	if err != nil {
		add(fmt.Errorf("storage.driver: %w", err))
	}
	if rt.StorageKind == storage.KindRedis && strings.TrimSpace(c.Storage.Redis.Addr) == "" {
		add(errors.New("storage.redis.addr is required for the redis driver"))
	}

	if c.Bot.RatePerSec < 0 {
		add(errors.New("bot.rate_per_sec must be >= 0"))
	}
	if c.Bot.Workers < 0 {
		add(errors.New("bot.workers must be >= 0"))
	}
	if !logx.ValidLevel(c.Logging.Level) {
		add(fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.Telegram.MinLevel != "" && !logx.ValidLevel(c.Logging.Telegram.MinLevel) {
		add(fmt.Errorf("logging.telegram.min_level: unknown level %q", c.Logging.Telegram.MinLevel))
	}

	return rt, errors.Join(errs...)
}

// Validate reports every problem in c at once.
func Validate(c *Config) error {
	_, err := Resolve(c)
	return err
}

// HasGenerationBackend reports whether any remote generator is configured.
func (c GenerationConfig) HasGenerationBackend() bool {
	return c.OpenAI.APIKey != "" || c.HuggingFace.Token != "" || c.Gemini.APIKey != ""
}

func parseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
