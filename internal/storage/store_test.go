package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histobot/pkg/logx"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sq, err := Open(ctx, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	mr := miniredis.RunT(t)
	rd, err := Open(ctx, Config{Driver: "redis", Redis: RedisConfig{Addr: mr.Addr()}}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rd.Close() })

	return map[string]Store{"sqlite": sq, "redis": rd}
}

func TestDestinations(t *testing.T) {
	for name, st := range openTestStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

			require.NoError(t, st.UpsertDestination(ctx, Destination{ID: 20, DisplayName: "Клуб историков", Kind: "group", UpdatedAt: t0}))
			require.NoError(t, st.UpsertDestination(ctx, Destination{ID: 10, DisplayName: "Иван", Kind: "direct", UpdatedAt: t0}))

			list, err := st.ListActiveDestinations(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, int64(10), list[0].ID)
			assert.Equal(t, int64(20), list[1].ID)

			n, err := st.CountActiveDestinations(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			changed, err := st.DeactivateDestination(ctx, 20, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = st.DeactivateDestination(ctx, 20, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.False(t, changed, "second deactivate is a no-op")

			changed, err = st.DeactivateDestination(ctx, 999, t0)
			require.NoError(t, err)
			assert.False(t, changed, "unknown id is a no-op")

			d, ok, err := st.GetDestination(ctx, 20)
			require.NoError(t, err)
			require.True(t, ok)
			assert.False(t, d.Active)
			assert.Equal(t, "Клуб историков", d.DisplayName)

			n, err = st.CountActiveDestinations(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			// Contacting the bot again reactivates and keeps the name when none is given.
			require.NoError(t, st.UpsertDestination(ctx, Destination{ID: 20, Kind: "group", UpdatedAt: t0.Add(2 * time.Hour)}))
			d, ok, err = st.GetDestination(ctx, 20)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, d.Active)
			assert.Equal(t, "Клуб историков", d.DisplayName)
			assert.Equal(t, t0.UnixMilli(), d.CreatedAt.UnixMilli())

			_, ok, err = st.GetDestination(ctx, 12345)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSendRecords(t *testing.T) {
	for name, st := range openTestStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sentAt := time.Date(2024, 5, 9, 9, 0, 5, 0, time.UTC)

			require.NoError(t, st.UpsertDestination(ctx, Destination{ID: 1, Kind: "group"}))

			has, err := st.HasSendRecord(ctx, 1, "2024-05-09")
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, st.PutSendRecord(ctx, SendRecord{DestinationID: 1, Day: "2024-05-09", PostFingerprint: "a", SentAt: sentAt}))
			// Replacing the same key is allowed.
			require.NoError(t, st.PutSendRecord(ctx, SendRecord{DestinationID: 1, Day: "2024-05-09", PostFingerprint: "b", SentAt: sentAt}))

			has, err = st.HasSendRecord(ctx, 1, "2024-05-09")
			require.NoError(t, err)
			assert.True(t, has)

			d, ok, err := st.GetDestination(ctx, 1)
			require.NoError(t, err)
			require.True(t, ok)
			require.NotNil(t, d.LastSentAt)
			assert.Equal(t, sentAt.UnixMilli(), d.LastSentAt.UnixMilli())

			require.NoError(t, st.PutSendRecord(ctx, SendRecord{DestinationID: 1, Day: "2024-04-01", SentAt: sentAt}))
			require.NoError(t, st.PutSendRecord(ctx, SendRecord{DestinationID: 2, Day: "2024-04-02", SentAt: sentAt}))

			n, err := st.DeleteSendRecordsBefore(ctx, "2024-05-01")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			has, err = st.HasSendRecord(ctx, 1, "2024-04-01")
			require.NoError(t, err)
			assert.False(t, has)

			n, err = st.DeleteSendRecordsOn(ctx, "2024-05-09")
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			has, err = st.HasSendRecord(ctx, 1, "2024-05-09")
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestAnniversaries(t *testing.T) {
	for name, st := range openTestStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, st.AddAnniversary(ctx, Anniversary{MonthDay: "12-25", Name: "Исаак Ньютон"}))
			require.NoError(t, st.AddAnniversary(ctx, Anniversary{MonthDay: "12-25", Name: "Хамфри Богарт"}))

			got, err := st.ListAnniversaries(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Anniversary{
				{MonthDay: "12-25", Name: "Исаак Ньютон"},
				{MonthDay: "12-25", Name: "Хамфри Богарт"},
			}, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kind{"": KindSQLite, "SQLite3": KindSQLite, "redis": KindRedis} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("file")
	require.Error(t, err)
}
