package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histobot/internal/config"
	"histobot/internal/history"
	"histobot/internal/registry"
	"histobot/internal/storage"
	"histobot/internal/textgen"
	"histobot/pkg/logx"
)

func TestLogConfigMapping(t *testing.T) {
	t.Parallel()
	got := logConfig(config.LoggingConfig{
		Level:   "debug",
		Console: true,
		File:    config.LoggingFile{Enabled: true, Path: "/tmp/x.log"},
		Telegram: config.LoggingTelegram{
			Enabled: true, ChatID: -42, MinLevel: "error", RatePerSec: 2,
		},
	})
	assert.Equal(t, "debug", got.Level)
	assert.True(t, got.Console)
	assert.Equal(t, logx.FileConfig{Enabled: true, Path: "/tmp/x.log"}, got.File)
	assert.Equal(t, logx.TelegramConfig{Enabled: true, ChatID: -42, MinLevel: "error", RatePerSec: 2}, got.Telegram)
}

func TestStorageConfigUsesResolvedValues(t *testing.T) {
	t.Parallel()
	rt := config.Runtime{StorageKind: storage.KindRedis, BusyTimeout: 3 * time.Second, RedisRecordTTL: 48 * time.Hour}
	got := storageConfig(config.StorageConfig{
		Driver: "REDIS",
		Path:   "ignored.db",
		Redis:  config.RedisConfig{Addr: "localhost:6379", DB: 2, Prefix: "hb:"},
	}, rt)
	assert.Equal(t, string(storage.KindRedis), got.Driver)
	assert.Equal(t, 3*time.Second, got.BusyTimeout)
	assert.Equal(t, "localhost:6379", got.Redis.Addr)
	assert.Equal(t, 2, got.Redis.DB)
	assert.Equal(t, 48*time.Hour, got.Redis.RecordTTL)
}

func TestBuildBackendsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	assert.Empty(t, buildBackends(ctx, config.GenerationConfig{}, logx.Nop()))

	got := buildBackends(ctx, config.GenerationConfig{
		OpenAI:      config.OpenAIConfig{APIKey: "sk-test"},
		HuggingFace: config.HuggingFaceConfig{Token: "hf-test"},
		Gemini:      config.GeminiConfig{APIKey: "g-test"},
	}, logx.Nop())
	names := make([]string, 0, len(got))
	for _, b := range got {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"openai", "gemini", "huggingface"}, names)

	gen := textgen.New(history.NewDefault(), textgen.Options{Backends: got}, logx.Nop())
	assert.Equal(t, "api", gen.Mode())
}

type stubLister struct {
	rows []storage.Anniversary
	err  error
}

func (s stubLister) ListAnniversaries(context.Context) ([]storage.Anniversary, error) {
	return s.rows, s.err
}

func TestLoadAnniversariesSkipsInvalidRows(t *testing.T) {
	t.Parallel()
	table := history.New(history.Data{})
	n, err := loadAnniversaries(context.Background(), stubLister{rows: []storage.Anniversary{
		{MonthDay: "03-08", Name: "Анна"},
		{MonthDay: "13-40", Name: "Никто"},
		{MonthDay: "03-08", Name: "Мария"},
	}}, table, logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Анна", "Мария"}, table.AnniversariesFor("03-08"))

	_, err = loadAnniversaries(context.Background(), stubLister{err: errors.New("down")}, table, logx.Nop())
	require.Error(t, err)
}

func TestSeedDestinationOnlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := storage.Open(ctx, storage.Config{Path: filepath.Join(t.TempDir(), "app.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := registry.New(st, logx.Nop())
	a := &App{
		cfg:      &config.Config{Telegram: config.TelegramConfig{SeedChatID: -1001}},
		registry: reg,
		log:      logx.Nop(),
	}

	require.NoError(t, a.seedDestination(ctx))
	d, ok, err := reg.Get(ctx, -1001)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Active)
	assert.Equal(t, "group", d.Kind)

	// A chat that removed the bot stays inactive across restarts.
	_, err = reg.Deactivate(ctx, -1001)
	require.NoError(t, err)
	require.NoError(t, a.seedDestination(ctx))
	d, _, err = reg.Get(ctx, -1001)
	require.NoError(t, err)
	assert.False(t, d.Active)
}
