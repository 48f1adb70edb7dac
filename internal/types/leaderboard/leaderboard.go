package leaderboard

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeCourse Scope = "course"
)

type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

var Periods = []Period{PeriodWeekly, PeriodMonthly, PeriodAllTime}

// Window returns the [start, end) interval a period covers. Weekly windows
// start on Sunday; all_time starts at the zero time.
func Window(p Period, now time.Time) (start, end time.Time, err error) {
	now = now.UTC()
	end = now
	switch p {
	case PeriodWeekly:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = start.AddDate(0, 0, -int(now.Weekday()))
	case PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodAllTime:
		start = time.Time{}
	default:
		return start, end, fmt.Errorf("unknown leaderboard period: %s", p)
	}
	return start, end, nil
}

type Entry struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Scope            Scope      `json:"scope" db:"scope"`
	CourseID         *uuid.UUID `json:"course_id,omitempty" db:"course_id"`
	Period           Period     `json:"period" db:"period"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	Username         string     `json:"username"`
	ImageURL         *string    `json:"image_url,omitempty"`
	Rank             int        `json:"rank" db:"rank"`
	Points           int        `json:"points" db:"points"`
	BadgeCount       int        `json:"badge_count" db:"badge_count"`
	CoursesCompleted int        `json:"courses_completed" db:"courses_completed"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type Leaderboard struct {
	Scope      Scope      `json:"scope"`
	CourseID   *uuid.UUID `json:"course_id,omitempty"`
	Period     Period     `json:"period"`
	Entries    []*Entry   `json:"entries"`
	Page       int        `json:"page"`
	TotalUsers int        `json:"total_users"`
}

type UserRank struct {
	Entry     *Entry   `json:"entry"`
	Neighbors []*Entry `json:"neighbors"`
}
