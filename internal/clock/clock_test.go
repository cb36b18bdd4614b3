package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayUsesReferenceZone(t *testing.T) {
	t.Parallel()

	c, err := Load("Europe/Moscow")
	require.NoError(t, err)

	// 22:30 UTC on May 8 is already May 9 in Moscow (UTC+3).
	utc := time.Date(2024, 5, 8, 22, 30, 0, 0, time.UTC)
	c = c.WithNow(func() time.Time { return utc })

	assert.Equal(t, "2024-05-09", c.Today())
	assert.Equal(t, "05-09", c.MonthDay(c.Now()))
	assert.Equal(t, 1, c.Now().Hour())
}

func TestLoadRejectsUnknownZone(t *testing.T) {
	t.Parallel()

	_, err := Load("Mars/Olympus")
	require.Error(t, err)
}

func TestZeroValueIsUTC(t *testing.T) {
	t.Parallel()

	var c Clock
	assert.Equal(t, time.UTC, c.Location())
	assert.False(t, c.Now().IsZero())
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: TimeOfDay{Hour: 9}},
		{in: "9:00", want: TimeOfDay{Hour: 9}},
		{in: " 23:59 ", want: TimeOfDay{Hour: 23, Minute: 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	tod := TimeOfDay{Hour: 9}
	assert.Equal(t, "09:00", tod.String())
	assert.True(t, tod.Matches(time.Date(2024, 1, 1, 9, 0, 59, 0, time.UTC)))
	assert.False(t, tod.Matches(time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC)))
}
