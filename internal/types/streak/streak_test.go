package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAdvanceFirstActivity(t *testing.T) {
	s := &Streak{}
	bonus, changed, err := s.Advance(day("2026-03-02"), time.Now())

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, bonus)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	require.NotNil(t, s.LastActivityDate)
	assert.Equal(t, day("2026-03-02"), *s.LastActivityDate)
	assert.NotNil(t, s.StreakStartedAt)
}

func TestAdvanceConsecutiveDay(t *testing.T) {
	s := &Streak{}
	_, _, err := s.Advance(day("2026-03-02"), time.Now())
	require.NoError(t, err)

	bonus, changed, err := s.Advance(day("2026-03-03"), time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, bonus)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestAdvanceSameDayIsNoOp(t *testing.T) {
	s := &Streak{}
	_, _, err := s.Advance(day("2026-03-02"), time.Now())
	require.NoError(t, err)

	bonus, changed, err := s.Advance(day("2026-03-02"), time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, bonus)
	assert.Equal(t, 1, s.CurrentStreak)

	// Different time of the same calendar day still counts as the same day.
	sameDay := day("2026-03-02").Add(23 * time.Hour)
	_, changed, err = s.Advance(sameDay, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAdvanceGapResetsToOne(t *testing.T) {
	s := &Streak{}
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		_, _, err := s.Advance(day(d), time.Now())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.CurrentStreak)

	bonus, changed, err := s.Advance(day("2026-03-07"), time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, bonus)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak, "longest streak survives the reset")
}

func TestAdvanceBackdatedRejected(t *testing.T) {
	s := &Streak{}
	_, _, err := s.Advance(day("2026-03-05"), time.Now())
	require.NoError(t, err)

	_, changed, err := s.Advance(day("2026-03-04"), time.Now())
	assert.ErrorIs(t, err, ErrActivityBackdated)
	assert.False(t, changed)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, day("2026-03-05"), *s.LastActivityDate, "state untouched after rejection")
}

func TestAdvanceMilestoneBonuses(t *testing.T) {
	s := &Streak{}
	current := day("2026-01-01")
	byLength := map[int]int{}

	for i := 1; i <= 30; i++ {
		bonus, changed, err := s.Advance(current, time.Now())
		require.NoError(t, err)
		require.True(t, changed)
		if bonus > 0 {
			byLength[s.CurrentStreak] = bonus
		}
		current = current.AddDate(0, 0, 1)
	}

	assert.Equal(t, map[int]int{7: 50, 14: 100, 30: 250}, byLength)
}

func TestAdvanceMilestoneAfterReset(t *testing.T) {
	// A second streak cycle that reaches day 7 again pays the bonus again.
	s := &Streak{}
	current := day("2026-01-01")
	for i := 0; i < 7; i++ {
		_, _, err := s.Advance(current, time.Now())
		require.NoError(t, err)
		current = current.AddDate(0, 0, 1)
	}
	assert.Equal(t, 7, s.CurrentStreak)

	// Break the streak, then build it back to 7.
	current = current.AddDate(0, 0, 3)
	var lastBonus int
	for i := 0; i < 7; i++ {
		bonus, _, err := s.Advance(current, time.Now())
		require.NoError(t, err)
		lastBonus = bonus
		current = current.AddDate(0, 0, 1)
	}
	assert.Equal(t, 7, s.CurrentStreak)
	assert.Equal(t, 50, lastBonus)
}
