package config

import (
	"slices"
	"strings"

	"histobot/pkg/logx"
)

// LiveSections apply without a restart.
var LiveSections = []string{"telegram.admins", "logging"}

// SummarizeChange lists changed sections and safe log fields. Secrets are
// reported only as "set" flags.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 6)
	fields := make([]logx.Field, 0, 12)

	if !slices.Equal(oldCfg.Telegram.AdminIDs, newCfg.Telegram.AdminIDs) {
		changed = append(changed, "telegram.admins")
		fields = append(fields, logx.Int("telegram.admin_count", len(newCfg.Telegram.AdminIDs)))
	}
	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		oldCfg.Telegram.SeedChatID != newCfg.Telegram.SeedChatID {
		changed = append(changed, "telegram")
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Bot != newCfg.Bot {
		changed = append(changed, "bot")
		fields = append(fields,
			logx.String("bot.post_time", newCfg.Bot.PostTime),
			logx.String("bot.timezone", newCfg.Bot.Timezone),
		)
	}

	if oldCfg.Generation != newCfg.Generation {
		changed = append(changed, "generation")
		fields = append(fields,
			logx.Bool("generation.openai_set", newCfg.Generation.OpenAI.APIKey != ""),
			logx.Bool("generation.huggingface_set", newCfg.Generation.HuggingFace.Token != ""),
			logx.Bool("generation.gemini_set", newCfg.Generation.Gemini.APIKey != ""),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		fields = append(fields, logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)))
	}

	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
		fields = append(fields,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.Bool("metrics.token_set", newCfg.Metrics.Token != ""),
		)
	}

	if restart := RestartRequired(changed); len(restart) > 0 {
		fields = append(fields, logx.Strings("restart_required", restart))
	}
	return changed, fields
}

// RestartRequired filters sections that only take effect after a restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		if !slices.Contains(LiveSections, s) {
			out = append(out, s)
		}
	}
	return out
}
