package config

const (
	DefaultBotName   = "Бот Историка"
	DefaultTimezone  = "Europe/Moscow"
	DefaultPostTime  = "09:00"
	DefaultTestNames = "Тестовый Пользователь"
)

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(c *Config) {
	if c.Bot.Name == "" {
		c.Bot.Name = DefaultBotName
	}
	if c.Bot.Timezone == "" {
		c.Bot.Timezone = DefaultTimezone
	}
	if c.Bot.PostTime == "" {
		c.Bot.PostTime = DefaultPostTime
	}
	if c.Bot.TickInterval == "" {
		c.Bot.TickInterval = "55s"
	}
	if c.Bot.TestNames == "" {
		c.Bot.TestNames = DefaultTestNames
	}
	if c.Bot.RatePerSec <= 0 {
		c.Bot.RatePerSec = 1
	}
	if c.Bot.PurgeWeekday == "" {
		c.Bot.PurgeWeekday = "sunday"
	}
	if c.Bot.RetentionDays <= 0 {
		c.Bot.RetentionDays = 30
	}
	if c.Bot.ShutdownGrace == "" {
		c.Bot.ShutdownGrace = "10s"
	}
	if c.Generation.CacheTTL == "" {
		c.Generation.CacheTTL = "12h"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
