package sendtrack

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histobot/internal/clock"
	"histobot/internal/storage"
	"histobot/pkg/logx"
)

func newRedisStore(t *testing.T) storage.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := storage.Open(context.Background(), storage.Config{Driver: "redis", Redis: storage.RedisConfig{Addr: mr.Addr()}}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMarkSentIsPerDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newRedisStore(t)

	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	now := time.Date(2024, 5, 9, 9, 0, 0, 0, msk)
	c := clock.New(msk).WithNow(func() time.Time { return now })
	tr := New(st, c, logx.Nop())

	require.NoError(t, st.UpsertDestination(ctx, storage.Destination{ID: 1, Kind: "group"}))

	sent, err := tr.WasSentToday(ctx, 1)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, tr.MarkSent(ctx, 1, "fp-1"))
	sent, err = tr.WasSentToday(ctx, 1)
	require.NoError(t, err)
	assert.True(t, sent)

	d, ok, err := st.GetDestination(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.LastSentAt)
	assert.Equal(t, now.UnixMilli(), d.LastSentAt.UnixMilli())

	// Next day in the reference zone the destination is owed again.
	now = now.Add(24 * time.Hour)
	sent, err = tr.WasSentToday(ctx, 1)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestPurgeOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newRedisStore(t)

	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tr := New(st, clock.Fixed(now), logx.Nop())

	require.NoError(t, st.PutSendRecord(ctx, storage.SendRecord{DestinationID: 1, Day: "2024-05-01"}))
	require.NoError(t, st.PutSendRecord(ctx, storage.SendRecord{DestinationID: 1, Day: "2024-05-31"}))
	require.NoError(t, st.PutSendRecord(ctx, storage.SendRecord{DestinationID: 1, Day: "2024-06-29"}))

	n, err := tr.PurgeOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	kept, err := st.HasSendRecord(ctx, 1, "2024-05-31")
	require.NoError(t, err)
	assert.True(t, kept)
}

func TestForgetClearsToday(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newRedisStore(t)

	tr := New(st, clock.Fixed(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)), logx.Nop())
	require.NoError(t, tr.MarkSent(ctx, 1, "a"))
	require.NoError(t, tr.MarkSent(ctx, 2, "a"))

	n, err := tr.Forget(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sent, err := tr.WasSentToday(ctx, 1)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestMarkSentOnKeepsCycleDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newRedisStore(t)

	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	// The cycle started on the 9th; the send lands after midnight.
	now := time.Date(2024, 5, 10, 0, 0, 1, 0, msk)
	c := clock.New(msk).WithNow(func() time.Time { return now })
	tr := New(st, c, logx.Nop())
	require.NoError(t, st.UpsertDestination(ctx, storage.Destination{ID: 1, Kind: "group"}))

	require.NoError(t, tr.MarkSentOn(ctx, 1, "2024-05-09", "fp"))

	sent, err := tr.WasSentOn(ctx, 1, "2024-05-09")
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = tr.WasSentToday(ctx, 1)
	require.NoError(t, err)
	assert.False(t, sent)
}
