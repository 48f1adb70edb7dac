package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowWeeklyStartsSunday(t *testing.T) {
	// 2026-03-04 is a Wednesday; the week began Sunday 2026-03-01.
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	start, end, err := Window(PeriodWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	// On a Sunday the window starts that same day.
	sunday := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	start, _, err = Window(PeriodWeekly, sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestWindowMonthly(t *testing.T) {
	now := time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC)
	start, end, err := Window(PeriodMonthly, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)
}

func TestWindowAllTime(t *testing.T) {
	now := time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC)
	start, end, err := Window(PeriodAllTime, now)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.Equal(t, now, end)
}

func TestWindowUnknownPeriod(t *testing.T) {
	_, _, err := Window(Period("fortnightly"), time.Now())
	assert.Error(t, err)
}
