// Package textgen produces post bodies, either from a remote text
// generation backend or from templates filled with historical content.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"histobot/internal/history"
	"histobot/pkg/logx"
)

var ErrNoTemplates = errors.New("no templates available")

const (
	ParamNames   = "names"
	ParamHoliday = "holiday"

	SourceTemplate = "template"
	SourceFallback = "fallback"

	defaultTimeout  = 10 * time.Second
	defaultMaxRunes = 500
)

// Params are the named substitutions for a kind (names, holiday).
type Params map[string]string

// Post is the generated body for one broadcast cycle.
type Post struct {
	Kind        Kind
	Body        string
	Fingerprint string
	CreatedAt   time.Time
	// Source is "template", "fallback" or the backend name.
	Source string
	Cached bool
}

// Request is what a remote backend receives.
type Request struct {
	System string
	Prompt string
}

// Backend is a remote text generation service.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Recorder observes where each generated post came from.
type Recorder interface {
	ObserveGeneration(source string)
}

type Options struct {
	BotName   string
	Templates Templates
	Backends  []Backend
	// Timeout bounds each backend call. Default 10s.
	Timeout  time.Duration
	MaxRunes int
	// CacheHigh/CacheLow bound the post cache (defaults 100/50).
	CacheHigh int
	CacheLow  int
	// CacheTTL expires cached posts; 0 keeps them for the process lifetime.
	CacheTTL time.Duration
	Recorder Recorder
	Now      func() time.Time
}

type Generator struct {
	table     *history.Table
	templates Templates
	backends  []Backend
	system    string
	timeout   time.Duration
	maxRunes  int
	cache     *postCache
	rec       Recorder
	now       func() time.Time
	rnd       func(n int) int
	log       logx.Logger
}

func New(table *history.Table, opt Options, log logx.Logger) *Generator {
	if log.IsZero() {
		log = logx.Nop()
	}
	tpl := opt.Templates
	if tpl == nil {
		tpl = DefaultTemplates()
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRunes := opt.MaxRunes
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	name := opt.BotName
	if name == "" {
		name = "Бот Историка"
	}
	return &Generator{
		table:     table,
		templates: tpl,
		backends:  append([]Backend(nil), opt.Backends...),
		system:    Personality(name),
		timeout:   timeout,
		maxRunes:  maxRunes,
		cache:     newPostCache(opt.CacheHigh, opt.CacheLow, opt.CacheTTL),
		rec:       opt.Recorder,
		now:       now,
		rnd:       rand.IntN,
		log:       log.With(logx.String("comp", "textgen")),
	}
}

// WithRand replaces the template picker. Used by tests.
func (g *Generator) WithRand(rnd func(n int) int) *Generator {
	g.rnd = rnd
	return g
}

// Mode reports "api" when at least one backend is configured, else "templates".
func (g *Generator) Mode() string {
	if len(g.backends) > 0 {
		return "api"
	}
	return "templates"
}

// BackendNames lists configured backends in call order.
func (g *Generator) BackendNames() []string {
	out := make([]string, 0, len(g.backends))
	for _, b := range g.backends {
		out = append(out, b.Name())
	}
	return out
}

func (g *Generator) ClearCache() { g.cache.clear() }

func (g *Generator) CacheLen() int { return g.cache.len() }

// Generate returns a post for kind. Remote failures fall back to templates;
// the only error is ErrNoTemplates.
func (g *Generator) Generate(ctx context.Context, kind Kind, p Params) (Post, error) {
	now := g.now()
	key := cacheKey(kind, p)
	if post, ok := g.cache.get(key, now); ok {
		g.log.Debug("using cached post", logx.String("kind", string(kind)))
		post.Cached = true
		return post, nil
	}

	body, source := g.fromBackends(ctx, kind, p)
	if body == "" {
		var err error
		body, source, err = g.fromTemplates(kind, p)
		if err != nil {
			return Post{}, err
		}
	}

	post := Post{
		Kind:        kind,
		Body:        body,
		Fingerprint: uuid.NewString(),
		CreatedAt:   now,
		Source:      source,
	}
	g.cache.put(key, post, now)
	if g.rec != nil {
		g.rec.ObserveGeneration(source)
	}
	g.log.Info("post generated", logx.String("kind", string(kind)), logx.String("source", source))
	return post, nil
}

func (g *Generator) fromBackends(ctx context.Context, kind Kind, p Params) (string, string) {
	if len(g.backends) == 0 {
		return "", ""
	}
	req := Request{System: g.system, Prompt: Prompt(kind, p)}
	for _, b := range g.backends {
		if ctx.Err() != nil {
			return "", ""
		}
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		text, err := b.Generate(cctx, req)
		cancel()
		if err != nil {
			g.log.Warn("generation backend failed", logx.String("backend", b.Name()), logx.Err(err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			g.log.Warn("generation backend returned empty text", logx.String("backend", b.Name()))
			continue
		}
		return truncateRunes(text, g.maxRunes), b.Name()
	}
	return "", ""
}

func (g *Generator) fromTemplates(kind Kind, p Params) (string, string, error) {
	vars := g.vars(p)

	set := g.templates[kind]
	source := SourceTemplate
	if len(set) == 0 {
		set = g.templates[KindFallback]
		source = SourceFallback
	}
	if len(set) > 0 {
		text, err := Render(set[g.pick(len(set))], vars)
		if err == nil {
			return text, source, nil
		}
		g.log.Warn("template render failed, using fallback", logx.String("kind", string(kind)), logx.Err(err))
	}

	fb := g.templates[KindFallback]
	if len(fb) == 0 {
		return "", "", fmt.Errorf("kind %s: %w", kind, ErrNoTemplates)
	}
	text, err := Render(fb[g.pick(len(fb))], vars)
	if err != nil {
		return "", "", fmt.Errorf("fallback template: %w", err)
	}
	return text, SourceFallback, nil
}

func (g *Generator) pick(n int) int {
	if n <= 1 {
		return 0
	}
	return g.rnd(n)
}

// vars draws fresh values from the table for one render.
func (g *Generator) vars(p Params) map[string]string {
	fig := g.table.RandomFigure()
	event := g.table.RandomEvent()
	v := map[string]string{
		"historical_figure":   fig.Name,
		"quote":               fig.Quote,
		"era":                 fig.Era,
		"historical_event":    event,
		"historical_fact":     g.table.RandomFact(),
		"historical_action":   g.table.RandomAction(),
		"historical_parallel": "Напоминает, как " + lowerFirst(event),
	}
	for k, val := range p {
		v[k] = val
	}
	if names, ok := p[ParamNames]; ok {
		v["name"] = names
	}
	return v
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[:n])
}
