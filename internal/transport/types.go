package transport

import "context"

type UpdateKind string

const (
	UpdateMessage    UpdateKind = "message"
	UpdateMembership UpdateKind = "membership"
)

// ChatKind classifies a destination the way the registry stores it.
type ChatKind string

const (
	ChatDirect  ChatKind = "direct"
	ChatGroup   ChatKind = "group"
	ChatChannel ChatKind = "channel"
)

func (k ChatKind) Valid() bool {
	switch k {
	case ChatDirect, ChatGroup, ChatChannel:
		return true
	}
	return false
}

type Update struct {
	Kind       UpdateKind
	Message    *Message
	Membership *Membership
}

type Message struct {
	ID           int
	ChatID       int64
	ChatKind     ChatKind
	ChatTitle    string
	FromID       int64
	FromUsername string
	Text         string
}

func (m *Message) IsPrivate() bool { return m != nil && m.ChatKind == ChatDirect }

// Membership reports a change of the bot's own status in a chat.
type Membership struct {
	ChatID    int64
	ChatKind  ChatKind
	ChatTitle string
	FromID    int64
	// Joined is true when the bot can now post (member/admin), false when it
	// left, was kicked or restricted out of the chat.
	Joined bool
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
