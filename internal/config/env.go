package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// envOverlay lists the variables that override the file. Empty values are
// ignored.
type envOverlay struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	AdminIDs      string `env:"ADMIN_IDS"`
	GroupID       string `env:"GROUP_ID"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	HFToken       string `env:"HF_TOKEN"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL"`

	BotName  string `env:"BOT_NAME"`
	Timezone string `env:"TZ_NAME"`
	PostTime string `env:"POST_TIME"`

	StorageDriver string `env:"STORAGE_DRIVER"`
	StoragePath   string `env:"STORAGE_PATH"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	LogLevel    string `env:"LOG_LEVEL"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// LoadDotEnv exports variables from path (default ".env") without
// overriding the real environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnviron overlays the process environment onto c.
func ApplyEnviron(c *Config) error {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return err
	}
	return ApplyEnv(c, es)
}

// ApplyEnv overlays es onto c.
func ApplyEnv(c *Config, es env.EnvSet) error {
	var o envOverlay
	if err := env.Unmarshal(es, &o); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&c.Telegram.Token, o.TelegramToken)
	set(&c.Generation.OpenAI.APIKey, o.OpenAIKey)
	set(&c.Generation.OpenAI.BaseURL, o.OpenAIBaseURL)
	set(&c.Generation.OpenAI.Model, o.OpenAIModel)
	set(&c.Generation.HuggingFace.Token, o.HFToken)
	set(&c.Generation.Gemini.APIKey, o.GeminiKey)
	set(&c.Generation.Gemini.Model, o.GeminiModel)
	set(&c.Bot.Name, o.BotName)
	set(&c.Bot.Timezone, o.Timezone)
	set(&c.Bot.PostTime, o.PostTime)
	set(&c.Storage.Driver, o.StorageDriver)
	set(&c.Storage.Path, o.StoragePath)
	set(&c.Storage.Redis.Addr, o.RedisAddr)
	set(&c.Storage.Redis.Password, o.RedisPassword)
	set(&c.Logging.Level, o.LogLevel)
	if v := strings.TrimSpace(o.MetricsAddr); v != "" {
		c.Metrics.Addr = v
		c.Metrics.Enabled = true
	}

	if v := strings.TrimSpace(o.AdminIDs); v != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			return fmt.Errorf("ADMIN_IDS: %w", err)
		}
		c.Telegram.AdminIDs = ids
	}
	if v := strings.TrimSpace(o.GroupID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GROUP_ID: invalid chat id %q", v)
		}
		c.Telegram.SeedChatID = id
	}
	return nil
}

// ParseIDList parses ids separated by commas or whitespace.
func ParseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' || r == '\t' })
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		out = append(out, id)
	}
	return out, nil
}
