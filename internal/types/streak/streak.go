package streak

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrActivityBackdated is returned when an activity is dated before the last
// counted activity. Backfilled or clock-skewed input never mutates the streak.
var ErrActivityBackdated = errors.New("activity date precedes last recorded activity")

// Milestones maps streak lengths to the one-time bonus they pay per occurrence.
var Milestones = map[int]int{
	7:  50,
	14: 100,
	30: 250,
}

type Streak struct {
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date" db:"last_activity_date"`
	StreakStartedAt  *time.Time `json:"streak_started_at" db:"streak_started_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Advance applies one day of activity to the streak state machine.
// It reports whether the state changed and the milestone bonus reached by this
// transition (0 when none). Same-day repeats are no-ops; a gap of more than
// one day resets the streak to 1.
func (s *Streak) Advance(activityDate, now time.Time) (milestoneBonus int, changed bool, err error) {
	day := truncateDay(activityDate)

	if s.LastActivityDate == nil {
		s.CurrentStreak = 1
		if s.LongestStreak < 1 {
			s.LongestStreak = 1
		}
		s.LastActivityDate = &day
		s.StreakStartedAt = &now
		return Milestones[s.CurrentStreak], true, nil
	}

	last := truncateDay(*s.LastActivityDate)
	gapDays := int(day.Sub(last).Hours() / 24)

	switch {
	case gapDays < 0:
		return 0, false, ErrActivityBackdated
	case gapDays == 0:
		return 0, false, nil
	case gapDays == 1:
		s.CurrentStreak++
		s.LastActivityDate = &day
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
	default:
		s.CurrentStreak = 1
		s.LastActivityDate = &day
		s.StreakStartedAt = &now
	}

	return Milestones[s.CurrentStreak], true, nil
}
