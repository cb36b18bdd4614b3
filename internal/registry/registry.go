// Package registry tracks the chats the bot delivers to.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"histobot/internal/storage"
	"histobot/internal/transport"
	"histobot/pkg/logx"
)

type Destination = storage.Destination

// Registry commits every mutation to the store immediately.
type Registry struct {
	store storage.Store
	now   func() time.Time
	log   logx.Logger
}

func New(store storage.Store, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{store: store, now: time.Now, log: log.With(logx.String("comp", "registry"))}
}

// Upsert inserts the destination or updates its name, and forces it active.
func (r *Registry) Upsert(ctx context.Context, id int64, name string, kind transport.ChatKind) error {
	if !kind.Valid() {
		kind = transport.ChatGroup
	}
	err := r.store.UpsertDestination(ctx, storage.Destination{
		ID:          id,
		DisplayName: strings.TrimSpace(name),
		Kind:        string(kind),
		UpdatedAt:   r.now(),
	})
	if err != nil {
		return fmt.Errorf("upsert destination %d: %w", id, err)
	}
	return nil
}

// Deactivate marks id inactive. It reports whether anything changed; an
// unknown or already inactive id is a no-op.
func (r *Registry) Deactivate(ctx context.Context, id int64) (bool, error) {
	changed, err := r.store.DeactivateDestination(ctx, id, r.now())
	if err != nil {
		return false, fmt.Errorf("deactivate destination %d: %w", id, err)
	}
	if changed {
		r.log.Info("destination deactivated", logx.Int64("chat_id", id))
	}
	return changed, nil
}

func (r *Registry) ListActive(ctx context.Context) ([]Destination, error) {
	ds, err := r.store.ListActiveDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active destinations: %w", err)
	}
	return ds, nil
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	n, err := r.store.CountActiveDestinations(ctx)
	if err != nil {
		return 0, fmt.Errorf("count active destinations: %w", err)
	}
	return n, nil
}

func (r *Registry) Get(ctx context.Context, id int64) (Destination, bool, error) {
	d, ok, err := r.store.GetDestination(ctx, id)
	if err != nil {
		return Destination{}, false, fmt.Errorf("get destination %d: %w", id, err)
	}
	return d, ok, nil
}
