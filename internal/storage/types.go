package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file at Path (default)
//   - "redis": Redis server at Redis.Addr
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	Redis RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; default "histobot:".
	Prefix string
	// RecordTTL expires per-day send record keys; 0 disables expiry.
	RecordTTL time.Duration
}

// Destination is a chat the bot posts to. Rows are never hard-deleted.
type Destination struct {
	ID          int64
	DisplayName string
	Kind        string
	Active      bool
	LastSentAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SendRecord marks a successful delivery of the day's post. (DestinationID, Day)
// is unique.
type SendRecord struct {
	DestinationID   int64
	Day             string // YYYY-MM-DD in the reference timezone
	PostFingerprint string
	SentAt          time.Time
}

type Anniversary struct {
	MonthDay string // MM-DD
	Name     string
}
