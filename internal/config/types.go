// Package config loads the bot configuration from a JSON or YAML file plus an
// environment overlay, validates it and publishes hot reloads.
package config

// Config is the on-disk shape. Durations are Go duration strings.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Bot        BotConfig        `json:"bot"`
	Generation GenerationConfig `json:"generation"`
	Storage    StorageConfig    `json:"storage"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AdminIDs may run /post_now and /clear_cache. Empty denies everyone.
	AdminIDs []int64 `json:"admin_ids"`
	// SeedChatID is upserted as a destination at startup (0 = none).
	SeedChatID  int64  `json:"seed_chat_id,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type BotConfig struct {
	Name     string `json:"name,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	// PostTime is "HH:MM" in Timezone.
	PostTime     string `json:"post_time,omitempty"`
	TickInterval string `json:"tick_interval,omitempty"`
	// TestNames fills the birthday post generated by /test.
	TestNames string `json:"test_names,omitempty"`

	RatePerSec     float64 `json:"rate_per_sec,omitempty"`
	RateLimitPause string  `json:"rate_limit_pause,omitempty"`
	MaxPause       string  `json:"max_pause,omitempty"`
	PurgeWeekday   string  `json:"purge_weekday,omitempty"`
	RetentionDays  int     `json:"retention_days,omitempty"`

	CommandTimeout string `json:"command_timeout,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	ShutdownGrace  string `json:"shutdown_grace,omitempty"`
}

type GenerationConfig struct {
	Timeout     string            `json:"timeout,omitempty"`
	MaxRunes    int               `json:"max_runes,omitempty"`
	CacheTTL    string            `json:"cache_ttl,omitempty"`
	OpenAI      OpenAIConfig      `json:"openai"`
	HuggingFace HuggingFaceConfig `json:"huggingface"`
	Gemini      GeminiConfig      `json:"gemini"`
}

type OpenAIConfig struct {
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type HuggingFaceConfig struct {
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
}

type GeminiConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// StorageConfig selects the record store.
//
//	"storage": { "driver": "sqlite", "path": "./data/histobot.db" }
type StorageConfig struct {
	Driver      string      `json:"driver,omitempty"`
	Path        string      `json:"path,omitempty"`
	BusyTimeout string      `json:"busy_timeout,omitempty"`
	Redis       RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr      string `json:"addr,omitempty"`
	Password  string `json:"password,omitempty"`
	DB        int    `json:"db,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	RecordTTL string `json:"record_ttl,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// MetricsConfig controls the Prometheus listener. Prefer a loopback Addr or
// set Token.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}

// IsAdmin reports whether id is on the allowlist.
func (c TelegramConfig) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}
