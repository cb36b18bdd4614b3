package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histobot/internal/storage"
)

func newTestManager(t *testing.T, name, content string, es env.EnvSet) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	m := NewManager(path)
	m.environ = func(c *Config) error {
		cp := env.EnvSet{}
		for k, v := range es {
			cp[k] = v
		}
		return ApplyEnv(c, cp)
	}
	return m
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "config.yaml", `
telegram:
  token: "123:abc"
  admin_ids: [42, 43]
bot:
  post_time: "08:30"
storage:
  driver: redis
  redis:
    addr: "127.0.0.1:6379"
`, nil)
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{42, 43}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "08:30", cfg.Bot.PostTime)
	assert.Equal(t, DefaultBotName, cfg.Bot.Name)
	assert.Equal(t, DefaultTimezone, cfg.Bot.Timezone)
	assert.Same(t, cfg, m.Get())

	rt, err := Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, rt.PostTime.Hour)
	assert.Equal(t, 30, rt.PostTime.Minute)
	assert.Equal(t, 55*time.Second, rt.TickInterval)
	assert.Equal(t, time.Sunday, rt.PurgeWeekday)
	assert.Equal(t, storage.KindRedis, rt.StorageKind)
	assert.Equal(t, "Europe/Moscow", rt.Location.String())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "config.json", `{"telegram":{"token":"x"},"plugins":{}}`, nil)
	_, err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugins")
}

func TestEnvironmentOnly(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "missing.json", "", env.EnvSet{
		"TELEGRAM_TOKEN": "t0k",
		"ADMIN_IDS":      "1, 2;3",
		"GROUP_ID":       "-100123",
		"OPENAI_API_KEY": "sk",
		"TZ_NAME":        "UTC",
		"POST_TIME":      "9:00",
		"METRICS_ADDR":   "127.0.0.1:9999",
	})
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "t0k", cfg.Telegram.Token)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Telegram.AdminIDs)
	assert.Equal(t, int64(-100123), cfg.Telegram.SeedChatID)
	assert.True(t, cfg.Generation.HasGenerationBackend())
	assert.Equal(t, "UTC", cfg.Bot.Timezone)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Telegram.IsAdmin(2))
	assert.False(t, cfg.Telegram.IsAdmin(4))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "c.json", `{"telegram":{"token":"file"},"bot":{"name":"Файл"}}`, env.EnvSet{
		"TELEGRAM_TOKEN": "env",
		"BOT_NAME":       "",
	})
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Telegram.Token)
	assert.Equal(t, "Файл", cfg.Bot.Name, "empty env values are ignored")
}

func TestValidateCollectsErrors(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Bot: BotConfig{
			Timezone:     "Mars/Base",
			PostTime:     "25:00",
			TickInterval: "soon",
			PurgeWeekday: "funday",
		},
		Storage: StorageConfig{Driver: "mongo"},
		Logging: LoggingConfig{Level: "loud"},
	}
	err := Validate(cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMissingToken)
	for _, want := range []string{"bot.timezone", "bot.post_time", "bot.tick_interval", "bot.purge_weekday", "storage.driver", "logging.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRedisNeedsAddr(t *testing.T) {
	t.Parallel()

	cfg := &Config{Telegram: TelegramConfig{Token: "x"}, Storage: StorageConfig{Driver: "redis"}}
	ApplyDefaults(cfg)
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.redis.addr")
}

func TestBadEnvironmentValues(t *testing.T) {
	t.Parallel()

	var cfg Config
	require.Error(t, ApplyEnv(&cfg, env.EnvSet{"ADMIN_IDS": "1,x"}))
	require.Error(t, ApplyEnv(&cfg, env.EnvSet{"GROUP_ID": "group"}))
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]time.Weekday{"": time.Sunday, "sun": time.Sunday, "Monday": time.Monday, "SAT": time.Saturday} {
		got, err := parseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestReloadPublishesChanges(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "c.json", `{"telegram":{"token":"x","admin_ids":[1]}}`, nil)
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "same content is not republished")

	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"telegram":{"token":"x","admin_ids":[1,2]},"logging":{"level":"debug"}}`), 0o600))
	changed, err = m.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	got := <-ch
	assert.Equal(t, []int64{1, 2}, got.Telegram.AdminIDs)
	assert.Equal(t, "debug", m.Get().Logging.Level)

	// An invalid file keeps the last good config.
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"telegram":{"token":""}}`), 0o600))
	_, err = m.Reload()
	require.Error(t, err)
	assert.Equal(t, "x", m.Get().Telegram.Token)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "c.yaml", "telegram:\n  token: x\n", nil)
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(m.Path(), []byte("telegram:\n  token: x\nbot:\n  name: Новый\n"), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, "Новый", cfg.Bot.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	cancel()
	<-done
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{Telegram: TelegramConfig{Token: "a", AdminIDs: []int64{1}}}
	newCfg := &Config{
		Telegram: TelegramConfig{Token: "a", AdminIDs: []int64{1, 2}},
		Logging:  LoggingConfig{Level: "debug"},
		Storage:  StorageConfig{Driver: "redis"},
	}
	changed, fields := SummarizeChange(oldCfg, newCfg)
	assert.Equal(t, []string{"telegram.admins", "logging", "storage"}, changed)
	assert.NotEmpty(t, fields)
	assert.Equal(t, []string{"storage"}, RestartRequired(changed))
}
