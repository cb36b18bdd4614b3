package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"histobot/internal/broadcast"
	"histobot/internal/storage"
	"histobot/internal/textgen"
	"histobot/pkg/logx"
)

const (
	chatsPageSize  = 20
	postNowTimeout = 15 * time.Minute
)

func (b *Bot) builtinCommands() []Command {
	return []Command{
		{Name: "start", Aliases: []string{"help"}, Description: "Справка и подписка на посты", Handle: b.handleHelp},
		{Name: "test", Description: "Тестовая генерация поста", Handle: b.handleTest},
		{Name: "status", Aliases: []string{"stats"}, Description: "Статус бота", Handle: b.handleStatus},
		{Name: "today", Description: "События сегодняшнего дня", Handle: b.handleToday},
		{Name: "add_birthday", Description: "Добавить день рождения", Usage: "/add_birthday ММ-ДД Имя", Handle: b.handleAddBirthday},
		{Name: "stop", Description: "Отписать чат от рассылки", Handle: b.handleStop},
		{Name: "chats", Description: "Список чатов рассылки", Access: AccessAdminOnly, Handle: b.handleChats},
		{Name: "post_now", Aliases: []string{"simulate"}, Description: "Разослать пост сейчас", Access: AccessAdminOnly, Timeout: postNowTimeout, Handle: b.handlePostNow},
		{Name: "clear_cache", Description: "Очистить кэш и отметки об отправке", Access: AccessAdminOnly, Handle: b.handleClearCache},
	}
}

func (b *Bot) handleHelp(ctx context.Context, req *Request) error {
	return b.reply(ctx, req.Chat.ChatID, b.helpText())
}

func (b *Bot) handleUnknown(ctx context.Context, req *Request) error {
	return b.reply(ctx, req.Chat.ChatID, textUnknown)
}

func (b *Bot) handleTest(ctx context.Context, req *Request) error {
	chatID := req.Chat.ChatID
	_ = b.reply(ctx, chatID, textTestStarted)

	post, err := b.Generator.Generate(ctx, textgen.KindBirthday, textgen.Params{textgen.ParamNames: b.cfg.TestNames})
	if err != nil {
		return fmt.Errorf("generate test post: %w", err)
	}
	req.Logger.Debug("test post generated", logx.String("source", post.Source), logx.Bool("cached", post.Cached))

	if req.Message.IsPrivate() {
		return b.reply(ctx, chatID, "📜 *Тестовый пост:*\n\n"+broadcast.EscapeMarkdown(post.Body))
	}
	ev := broadcast.Events{Names: []string{b.cfg.TestNames}}
	return b.reply(ctx, chatID, broadcast.Format(post, ev, b.Clock.Now(), b.cfg.BotName))
}

func (b *Bot) handleStop(ctx context.Context, req *Request) error {
	if _, err := b.Registry.Deactivate(ctx, req.Chat.ChatID); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	req.Logger.Info("chat unsubscribed")
	return b.reply(ctx, req.Chat.ChatID, textStopped)
}

func (b *Bot) handleStatus(ctx context.Context, req *Request) error {
	now := b.Clock.Now()
	active, err := b.Registry.Count(ctx)
	if err != nil {
		return fmt.Errorf("count destinations: %w", err)
	}
	here, subscribed, err := b.Registry.Get(ctx, req.Chat.ChatID)
	if err != nil {
		return fmt.Errorf("get destination: %w", err)
	}
	st := statusView{
		Now:        now,
		Zone:       b.Clock.Location().String(),
		Mode:       b.Generator.Mode(),
		Backends:   b.Generator.BackendNames(),
		Active:     active,
		Subscribed: subscribed && here.Active,
		CacheLen:   b.Generator.CacheLen(),
		Table:      b.Table.Stats(),
	}
	if b.Schedule != nil {
		st.State = string(b.Schedule.State())
		st.NextFire = b.Schedule.NextFire(now)
	}
	if b.Dispatcher != nil {
		st.Last, st.LastAt, st.HasLast = b.Dispatcher.Last()
	}
	return b.reply(ctx, req.Chat.ChatID, b.statusText(st))
}

func (b *Bot) handleToday(ctx context.Context, req *Request) error {
	now := b.Clock.Now()
	ev := broadcast.EventsFor(b.Table, b.Clock.MonthDay(now))
	sent, err := b.Tracker.WasSentToday(ctx, req.Chat.ChatID)
	if err != nil {
		return fmt.Errorf("check send record: %w", err)
	}
	return b.reply(ctx, req.Chat.ChatID, b.todayText(now, ev, sent))
}

func (b *Bot) handleChats(ctx context.Context, req *Request) error {
	dests, err := b.Registry.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list destinations: %w", err)
	}
	return b.reply(ctx, req.Chat.ChatID, chatsText(dests))
}

func (b *Bot) handlePostNow(ctx context.Context, req *Request) error {
	chatID := req.Chat.ChatID
	_ = b.reply(ctx, chatID, textPostNowStarted)

	res, err := b.Dispatcher.Cycle(ctx, broadcast.Options{BypassTimeGate: true})
	if errors.Is(err, broadcast.ErrCycleRunning) {
		return b.reply(ctx, chatID, textCycleRunning)
	}
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	req.Logger.Info("manual broadcast finished",
		logx.Int("sent", res.Sent), logx.Int("failed", res.Failed), logx.Int("already_sent", res.AlreadySent))
	return b.reply(ctx, chatID, cycleText(res))
}

func (b *Bot) handleAddBirthday(ctx context.Context, req *Request) error {
	chatID := req.Chat.ChatID
	if len(req.Args) == 0 {
		return b.reply(ctx, chatID, addBirthdayUsage(b.Table.Anniversaries()))
	}
	md := req.Args[0]
	name := strings.Join(strings.Fields(req.ArgText[len(md):]), " ")
	if err := b.Table.AddAnniversary(md, name); err != nil {
		req.Logger.Debug("add_birthday rejected", logx.Err(err))
		return b.reply(ctx, chatID, textBadBirthday)
	}
	if b.Anniversaries != nil {
		if err := b.Anniversaries.AddAnniversary(ctx, storage.Anniversary{MonthDay: md, Name: name}); err != nil {
			req.Logger.Warn("anniversary not persisted", logx.String("month_day", md), logx.Err(err))
			return b.reply(ctx, chatID, fmt.Sprintf(textBirthdayNotSaved, md, broadcast.EscapeMarkdown(name)))
		}
	}
	req.Logger.Info("anniversary added", logx.String("month_day", md), logx.String("name", name))
	return b.reply(ctx, chatID, fmt.Sprintf(textBirthdayAdded, md, broadcast.EscapeMarkdown(name)))
}

func (b *Bot) handleClearCache(ctx context.Context, req *Request) error {
	b.Generator.ClearCache()
	n, err := b.Tracker.Forget(ctx)
	if err != nil {
		return fmt.Errorf("forget send records: %w", err)
	}
	req.Logger.Info("cache cleared", logx.Int64("send_records", n))
	return b.reply(ctx, req.Chat.ChatID, fmt.Sprintf(textCacheCleared, n))
}
