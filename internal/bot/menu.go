package bot

import (
	"strings"

	"histobot/internal/transport"
)

// Telegram accepts 1-32 chars of [a-z0-9_] and at most 100 entries.
const (
	maxMenuCommand     = 32
	maxMenuDescription = 256
	maxMenuEntries     = 100
)

func sanitizeMenuCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "/")))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == ' ' || r == '.':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxMenuCommand {
		out = strings.TrimRight(out[:maxMenuCommand], "_")
	}
	return out
}

func buildMenuCommands(cmds []Command) []transport.BotCommand {
	seen := map[string]bool{}
	out := make([]transport.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		if c.Hidden {
			continue
		}
		name := sanitizeMenuCommand(c.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		desc := strings.ReplaceAll(strings.TrimSpace(c.Description), "\n", " ")
		if desc == "" {
			desc = name
		}
		if c.Access == AccessAdminOnly {
			desc = "🔒 " + desc
		}
		if r := []rune(desc); len(r) > maxMenuDescription {
			desc = string(r[:maxMenuDescription])
		}
		out = append(out, transport.BotCommand{Command: name, Description: desc})
		if len(out) >= maxMenuEntries {
			break
		}
	}
	return out
}
