package textgen

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingPlaceholder = errors.New("missing placeholder value")

// Render substitutes {name} placeholders from vars. Braces that do not
// enclose an identifier ([a-z0-9_]) are copied through. A placeholder with
// no value in vars fails with ErrMissingPlaceholder.
func Render(tpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl) + 64)

	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open+1:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		key := rest[open+1 : open+1+end]
		if !isIdent(key) {
			b.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}
		val, ok := vars[key]
		if !ok {
			return "", fmt.Errorf("%w: {%s}", ErrMissingPlaceholder, key)
		}
		b.WriteString(rest[:open])
		b.WriteString(val)
		rest = rest[open+1+end+1:]
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
