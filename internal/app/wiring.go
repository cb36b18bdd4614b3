package app

import (
	"context"
	"fmt"

	"histobot/internal/config"
	"histobot/internal/history"
	"histobot/internal/metrics"
	"histobot/internal/storage"
	"histobot/internal/textgen"
	"histobot/pkg/logx"
)

func logConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			ChatID:     c.Telegram.ChatID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func storageConfig(c config.StorageConfig, rt config.Runtime) storage.Config {
	return storage.Config{
		Driver:      string(rt.StorageKind),
		Path:        c.Path,
		BusyTimeout: rt.BusyTimeout,
		Redis: storage.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			Prefix:    c.Redis.Prefix,
			RecordTTL: rt.RedisRecordTTL,
		},
	}
}

func metricsConfig(c config.MetricsConfig) metrics.ServerConfig {
	return metrics.ServerConfig{
		Enabled: c.Enabled,
		Addr:    c.Addr,
		Token:   c.Token,
		Pprof:   c.Pprof,
	}
}

// buildBackends returns the configured remote generators in call order:
// OpenAI, Gemini, HuggingFace. A Gemini client that fails to initialise is
// skipped with a warning.
func buildBackends(ctx context.Context, c config.GenerationConfig, log logx.Logger) []textgen.Backend {
	var out []textgen.Backend
	if c.OpenAI.APIKey != "" {
		out = append(out, textgen.NewOpenAI(textgen.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			MaxTokens:   c.OpenAI.MaxTokens,
			Temperature: c.OpenAI.Temperature,
		}))
	}
	if c.Gemini.APIKey != "" {
		g, err := textgen.NewGemini(ctx, textgen.GeminiConfig{
			APIKey:  c.Gemini.APIKey,
			Model:   c.Gemini.Model,
			BaseURL: c.Gemini.BaseURL,
		})
		if err != nil {
			log.Warn("gemini backend disabled", logx.Err(err))
		} else {
			out = append(out, g)
		}
	}
	if c.HuggingFace.Token != "" {
		out = append(out, textgen.NewHuggingFace(textgen.HuggingFaceConfig{
			Token: c.HuggingFace.Token,
			URL:   c.HuggingFace.URL,
		}))
	}
	return out
}

type anniversaryLister interface {
	ListAnniversaries(ctx context.Context) ([]storage.Anniversary, error)
}

// loadAnniversaries merges persisted /add_birthday entries into table.
// Invalid rows are skipped.
func loadAnniversaries(ctx context.Context, st anniversaryLister, table *history.Table, log logx.Logger) (int, error) {
	rows, err := st.ListAnniversaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list anniversaries: %w", err)
	}
	n := 0
	for _, a := range rows {
		if err := table.AddAnniversary(a.MonthDay, a.Name); err != nil {
			log.Warn("skipping stored anniversary", logx.String("month_day", a.MonthDay), logx.Err(err))
			continue
		}
		n++
	}
	return n, nil
}
