// Package bot handles inbound chat traffic: slash commands, first-contact
// registration and membership changes.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"histobot/internal/broadcast"
	"histobot/internal/clock"
	"histobot/internal/history"
	"histobot/internal/registry"
	"histobot/internal/scheduler"
	"histobot/internal/sendtrack"
	"histobot/internal/storage"
	"histobot/internal/textgen"
	"histobot/internal/transport"
	"histobot/pkg/logx"
)

const (
	defaultCommandTimeout = 60 * time.Second
	defaultWorkers        = 2
	jobQueueSize          = 256
)

// Sender is the part of transport.Adapter used for replies.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// Generator is what /test, /status and /clear_cache need from textgen.
type Generator interface {
	Generate(ctx context.Context, kind textgen.Kind, p textgen.Params) (textgen.Post, error)
	Mode() string
	BackendNames() []string
	CacheLen() int
	ClearCache()
}

type Dispatcher interface {
	Cycle(ctx context.Context, opt broadcast.Options) (broadcast.Result, error)
	Last() (broadcast.Result, time.Time, bool)
}

type Schedule interface {
	NextFire(now time.Time) time.Time
	State() scheduler.State
}

type AnniversaryStore interface {
	AddAnniversary(ctx context.Context, a storage.Anniversary) error
}

type CommandRecorder interface {
	ObserveCommand(name string)
}

type Config struct {
	BotName   string
	TestNames string
	PostTime  clock.TimeOfDay
	// Username is the bot's own handle; "/cmd@other_bot" is ignored when set.
	Username       string
	Admins         []int64
	CommandTimeout time.Duration
	Workers        int
}

// Deps are the collaborators a Bot is built from. Menu and Recorder are
// optional.
type Deps struct {
	Sender        Sender
	Menu          transport.CommandMenuUpdater
	Table         *history.Table
	Generator     Generator
	Registry      *registry.Registry
	Tracker       *sendtrack.Tracker
	Dispatcher    Dispatcher
	Schedule      Schedule
	Anniversaries AnniversaryStore
	Clock         clock.Clock
	Recorder      CommandRecorder
}

type Bot struct {
	cfg Config
	Deps
	log logx.Logger

	mu       sync.RWMutex
	admins   []int64
	commands map[string]Command
	aliases  map[string]string
	ordered  []Command

	jobs chan func()
}

func New(cfg Config, deps Deps, log logx.Logger) *Bot {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	cfg.Username = strings.TrimPrefix(strings.TrimSpace(cfg.Username), "@")
	b := &Bot{
		cfg:  cfg,
		Deps: deps,
		log:  log.With(logx.String("comp", "bot")),
		jobs: make(chan func(), jobQueueSize),
	}
	b.SetAdmins(cfg.Admins)
	b.register(b.builtinCommands())
	return b
}

// SetAdmins replaces the allowlist for admin-only commands. Safe to call
// during hot reload.
func (b *Bot) SetAdmins(ids []int64) {
	cp := append([]int64(nil), ids...)
	b.mu.Lock()
	b.admins = cp
	b.mu.Unlock()
}

// IsAdmin reports whether id is on the allowlist. An empty list admits nobody.
func (b *Bot) IsAdmin(id int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.admins {
		if a == id {
			return true
		}
	}
	return false
}

// Commands lists registered commands in registration order.
func (b *Bot) Commands() []Command {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Command(nil), b.ordered...)
}

// SyncMenu pushes the visible commands to the platform menu when supported.
func (b *Bot) SyncMenu(ctx context.Context) error {
	if b.Menu == nil {
		return nil
	}
	cmds := buildMenuCommands(b.Commands())
	if err := b.Menu.UpdateMenuCommands(ctx, cmds); err != nil {
		return err
	}
	b.log.Debug("command menu updated", logx.Int("count", len(cmds)))
	return nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	_, err := b.Sender.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text,
		&transport.SendOptions{ParseMode: transport.ParseModeMarkdown, DisablePreview: true})
	return err
}
