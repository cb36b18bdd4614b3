// Package sendtrack records which destinations already received today's post.
package sendtrack

import (
	"context"
	"fmt"
	"time"

	"histobot/internal/clock"
	"histobot/internal/storage"
	"histobot/pkg/logx"
)

// Tracker computes "today" in the clock's reference timezone.
type Tracker struct {
	store storage.Store
	clock clock.Clock
	log   logx.Logger
}

func New(store storage.Store, c clock.Clock, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, clock: c, log: log.With(logx.String("comp", "sendtrack"))}
}

func (t *Tracker) Today() string { return t.clock.Today() }

func (t *Tracker) WasSentToday(ctx context.Context, destinationID int64) (bool, error) {
	return t.WasSentOn(ctx, destinationID, t.clock.Today())
}

// WasSentOn checks a specific reference day.
func (t *Tracker) WasSentOn(ctx context.Context, destinationID int64, day string) (bool, error) {
	ok, err := t.store.HasSendRecord(ctx, destinationID, day)
	if err != nil {
		return false, fmt.Errorf("check send record %d: %w", destinationID, err)
	}
	return ok, nil
}

// MarkSent creates or replaces today's record and stamps LastSentAt.
func (t *Tracker) MarkSent(ctx context.Context, destinationID int64, fingerprint string) error {
	return t.MarkSentOn(ctx, destinationID, t.clock.Today(), fingerprint)
}

// MarkSentOn records the send under day, which may differ from today when a
// cycle started just before midnight.
func (t *Tracker) MarkSentOn(ctx context.Context, destinationID int64, day, fingerprint string) error {
	now := t.clock.Now()
	err := t.store.PutSendRecord(ctx, storage.SendRecord{
		DestinationID:   destinationID,
		Day:             day,
		PostFingerprint: fingerprint,
		SentAt:          now,
	})
	if err != nil {
		return fmt.Errorf("mark sent %d: %w", destinationID, err)
	}
	return nil
}

// PurgeOlderThan deletes records whose day is more than days before today.
func (t *Tracker) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		days = 0
	}
	cutoff := t.clock.Day(t.clock.Now().AddDate(0, 0, -days))
	n, err := t.store.DeleteSendRecordsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge send records before %s: %w", cutoff, err)
	}
	t.log.Info("send records purged", logx.String("before", cutoff), logx.Int64("deleted", n))
	return n, nil
}

// Forget drops today's records so the next cycle delivers again.
func (t *Tracker) Forget(ctx context.Context) (int64, error) {
	day := t.clock.Today()
	n, err := t.store.DeleteSendRecordsOn(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("forget send records for %s: %w", day, err)
	}
	return n, nil
}

// Now exposes the tracker's clock for callers that log timestamps.
func (t *Tracker) Now() time.Time { return t.clock.Now() }
