package bot

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"histobot/internal/runtime/supervisor"
	"histobot/internal/transport"
	"histobot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessAdminOnly
)

// Command is one slash command. Name and Aliases are matched without the
// leading slash, case-insensitively.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// Timeout overrides Config.CommandTimeout when > 0.
	Timeout time.Duration
	// Hidden keeps the command out of the platform menu.
	Hidden bool
	Handle HandlerFunc
}

type Request struct {
	Update  transport.Update
	Message *transport.Message
	Chat    transport.ChatTarget
	FromID  int64
	Command string
	Args    []string
	// ArgText is everything after the command token with inner spacing kept.
	ArgText string
	ReqID   string
	Logger  logx.Logger
}

func (b *Bot) register(cmds []Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = make(map[string]Command, len(cmds))
	b.aliases = map[string]string{}
	b.ordered = b.ordered[:0]
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		b.commands[name] = c
		b.ordered = append(b.ordered, c)
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" && a != name {
				b.aliases[a] = name
			}
		}
	}
}

func (b *Bot) lookup(token string) (Command, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	token = strings.ToLower(token)
	if c, ok := b.commands[token]; ok {
		return c, true
	}
	if name, ok := b.aliases[token]; ok {
		c, ok := b.commands[name]
		return c, ok
	}
	return Command{}, false
}

// tryEnqueue never blocks and tolerates a closed jobs channel.
func (b *Bot) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case b.jobs <- fn:
		return true
	default:
		return false
	}
}

// Run consumes updates until ctx is done or the channel closes. Handlers run
// on a bounded worker pool so a slow generation never stalls polling.
func (b *Bot) Run(ctx context.Context, updates <-chan transport.Update) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(b.log),
		supervisor.WithCancelOnError(false),
	)
	b.log.Info("command dispatcher started",
		logx.Int("workers", b.cfg.Workers), logx.Int("job_queue_cap", cap(b.jobs)))

	for i := 0; i < b.cfg.Workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-b.jobs:
					if !ok {
						return nil
					}
					b.runJob(idx, job)
				}
			}
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}

	var closeOnce sync.Once
	defer func() {
		closeOnce.Do(func() { close(b.jobs) })
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		b.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			b.route(ctx, up)
		}
	}
}

func (b *Bot) runJob(worker int, job func()) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in command job", logx.Int("worker", worker),
				logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

func (b *Bot) route(ctx context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		b.routeMessage(ctx, up)
	case transport.UpdateMembership:
		if up.Membership == nil {
			return
		}
		m := *up.Membership
		if !b.tryEnqueue(func() { b.handleMembership(ctx, m) }) {
			b.log.Warn("job queue full, membership change dropped", logx.Int64("chat_id", m.ChatID))
		}
	}
}

func (b *Bot) routeMessage(ctx context.Context, up transport.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	cmd, req, isCmd := b.parseCommand(up)
	if !isCmd {
		// Plain messages only refresh the registry.
		_ = b.tryEnqueue(func() { b.notice(ctx, msg) })
		return
	}
	if req == nil {
		return
	}

	h := Chain(cmd.Handle,
		MWPanicRecover(b.log),
		MWRequestLog(b.log),
		MWMetrics(b.Recorder),
		MWTimeout(b.timeoutFor(cmd)),
	)
	job := func() {
		b.touch(ctx, msg)
		if cmd.Access == AccessAdminOnly && !b.IsAdmin(req.FromID) {
			req.Logger.Warn("admin command denied", logx.Int64("from_id", req.FromID))
			_ = b.reply(ctx, req.Chat.ChatID, textAdminOnly)
			return
		}
		if err := h(ctx, req); err != nil {
			_ = b.reply(ctx, req.Chat.ChatID, textError(err))
		}
	}
	if !b.tryEnqueue(job) {
		req.Logger.Warn("job queue full, command rejected")
		_ = b.reply(ctx, req.Chat.ChatID, textBusy)
	}
}

// parseCommand splits "/name@bot args". isCmd is false for plain text; req is
// nil for commands this bot does not own.
func (b *Bot) parseCommand(up transport.Update) (cmd Command, req *Request, isCmd bool) {
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, nil, false
	}
	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	token := strings.TrimPrefix(head, "/")
	if name, target, ok := strings.Cut(token, "@"); ok {
		if b.cfg.Username != "" && !strings.EqualFold(target, b.cfg.Username) {
			return Command{}, nil, true
		}
		token = name
	}
	if token == "" {
		return Command{}, nil, true
	}

	c, ok := b.lookup(token)
	if !ok {
		if msg.IsPrivate() {
			c = Command{Name: "unknown", Handle: b.handleUnknown}
		} else {
			return Command{}, nil, true
		}
	}

	rid := newReqID()
	argText := strings.TrimSpace(rest)
	r := &Request{
		Update:  up,
		Message: msg,
		Chat:    transport.ChatTarget{ChatID: msg.ChatID},
		FromID:  msg.FromID,
		Command: c.Name,
		Args:    strings.Fields(argText),
		ArgText: argText,
		ReqID:   rid,
		Logger: b.log.With(
			logx.String("req_id", rid),
			logx.String("cmd", c.Name),
			logx.Int64("chat_id", msg.ChatID),
		),
	}
	return c, r, true
}

func (b *Bot) timeoutFor(c Command) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return b.cfg.CommandTimeout
}

// touch registers the chat on first contact and reactivates it afterwards.
// notice registers a chat on first contact and refreshes the title of an
// active one. A stopped chat stays stopped until a command addressed to the
// bot or a re-add.
func (b *Bot) notice(ctx context.Context, msg *transport.Message) {
	if b.Registry == nil || msg == nil {
		return
	}
	d, ok, err := b.Registry.Get(ctx, msg.ChatID)
	if err != nil {
		b.log.Warn("registry lookup failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
		return
	}
	if ok && !d.Active {
		return
	}
	b.touch(ctx, msg)
}

// touch upserts the chat and forces it active.
func (b *Bot) touch(ctx context.Context, msg *transport.Message) {
	if b.Registry == nil || msg == nil {
		return
	}
	if err := b.Registry.Upsert(ctx, msg.ChatID, msg.ChatTitle, msg.ChatKind); err != nil && !errors.Is(err, context.Canceled) {
		b.log.Warn("registry upsert failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

func (b *Bot) handleMembership(ctx context.Context, m transport.Membership) {
	log := b.log.With(logx.Int64("chat_id", m.ChatID), logx.String("chat", m.ChatTitle))
	if !m.Joined {
		changed, err := b.Registry.Deactivate(ctx, m.ChatID)
		if err != nil {
			log.Warn("deactivate on leave failed", logx.Err(err))
			return
		}
		log.Info("bot removed from chat", logx.Bool("changed", changed))
		return
	}
	if err := b.Registry.Upsert(ctx, m.ChatID, m.ChatTitle, m.ChatKind); err != nil {
		log.Warn("registry upsert on join failed", logx.Err(err))
		return
	}
	log.Info("bot added to chat", logx.String("kind", string(m.ChatKind)))
	if err := b.reply(ctx, m.ChatID, b.welcomeText()); err != nil {
		log.Warn("welcome message failed", logx.Err(err))
	}
}

func newReqID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
