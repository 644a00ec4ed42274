package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleTime(t *testing.T) {
	loc := Location()

	t.Run("native time", func(t *testing.T) {
		now := time.Now()
		got, ok := ParseFlexibleTime(now)
		require.True(t, ok)
		assert.True(t, got.Equal(now))
	})

	t.Run("rfc3339 string", func(t *testing.T) {
		got, ok := ParseFlexibleTime("2024-03-15T18:30:00Z")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC).Unix(), got.Unix())
	})

	t.Run("datetime string", func(t *testing.T) {
		got, ok := ParseFlexibleTime("2024-03-15 08:15:00")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 3, 15, 8, 15, 0, 0, loc).Unix(), got.Unix())
	})

	t.Run("bare date string", func(t *testing.T) {
		got, ok := ParseFlexibleTime("2024-03-15")
		require.True(t, ok)
		assert.Equal(t, "2024-03-15", got.Format(ISODateLayout))
	})

	t.Run("epoch seconds", func(t *testing.T) {
		got, ok := ParseFlexibleTime(int64(1710500000))
		require.True(t, ok)
		assert.Equal(t, int64(1710500000), got.Unix())
	})

	t.Run("epoch millis as string", func(t *testing.T) {
		got, ok := ParseFlexibleTime("1710500000000")
		require.True(t, ok)
		assert.Equal(t, int64(1710500000), got.Unix())
	})

	t.Run("unparseable inputs are a skip, not a crash", func(t *testing.T) {
		for _, v := range []any{nil, "", "   ", "not-a-date", "15/2024/03x", struct{}{}} {
			_, ok := ParseFlexibleTime(v)
			assert.False(t, ok, "input %v", v)
		}
	})
}

func TestDayBounds(t *testing.T) {
	start, end, err := DayBounds("2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, "2024-03-15", start.Format(ISODateLayout))

	// end is the last representable millisecond of the day
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())
	assert.Equal(t, 999000000, end.Nanosecond())

	// one millisecond past end falls on the next day
	next := end.Add(time.Millisecond)
	assert.Equal(t, "2024-03-16", next.Format(ISODateLayout))
	assert.True(t, next.After(end))
}

func TestDayBoundsRejectsBadInput(t *testing.T) {
	_, _, err := DayBounds("15-03-2024")
	assert.Error(t, err)
	_, _, err = DayBounds("")
	assert.Error(t, err)
}

func TestParseISODateNoon(t *testing.T) {
	got, err := ParseISODateNoon("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, "2024-03-15", got.Format(ISODateLayout))
}
