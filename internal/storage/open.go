package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"histobot/pkg/logx"
)

// Store is the persistence API used by the registry, the send tracker and the
// content table.
type Store interface {
	// UpsertDestination inserts d or updates its name and kind. Either way the
	// destination ends up active.
	UpsertDestination(ctx context.Context, d Destination) error
	// DeactivateDestination reports whether an active destination was changed.
	// Unknown ids are a no-op.
	DeactivateDestination(ctx context.Context, id int64, at time.Time) (bool, error)
	GetDestination(ctx context.Context, id int64) (Destination, bool, error)
	// ListActiveDestinations returns active destinations ordered by id.
	ListActiveDestinations(ctx context.Context) ([]Destination, error)
	CountActiveDestinations(ctx context.Context) (int, error)

	// PutSendRecord creates or replaces the record for (DestinationID, Day)
	// and stamps the destination's LastSentAt.
	PutSendRecord(ctx context.Context, r SendRecord) error
	HasSendRecord(ctx context.Context, destinationID int64, day string) (bool, error)
	// DeleteSendRecordsBefore removes records with Day < day.
	DeleteSendRecordsBefore(ctx context.Context, day string) (int64, error)
	DeleteSendRecordsOn(ctx context.Context, day string) (int64, error)

	AddAnniversary(ctx context.Context, a Anniversary) error
	ListAnniversaries(ctx context.Context) ([]Anniversary, error)

	Close() error
}

type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// ParseKind normalizes a driver name; empty means sqlite.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return KindSQLite, nil
	case "redis":
		return KindRedis, nil
	default:
		return "", fmt.Errorf("unknown storage driver: %s", s)
	}
}

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	kind, err := ParseKind(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", string(kind)))

	switch kind {
	case KindRedis:
		return openRedis(ctx, cfg.Redis, log)
	default:
		return openSQLite(ctx, cfg, log)
	}
}
