package points

import (
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityQuizCompleted       ActivityKind = "quiz_completed"
	ActivityAssignmentSubmitted ActivityKind = "assignment_submitted"
	ActivityCourseCompleted     ActivityKind = "course_completed"
	ActivityLessonCompleted     ActivityKind = "lesson_completed"
	ActivityDiscussionComment   ActivityKind = "discussion_comment"
	ActivityDailyLogin          ActivityKind = "daily_login"
	ActivityStreakBonus         ActivityKind = "streak_bonus"
	ActivityBadgeEarned         ActivityKind = "badge_earned"
)

// SubtotalColumn maps an activity kind to the points_accounts column it feeds.
// The account total must always equal the sum of these columns, so every
// activity kind needs a bucket.
var SubtotalColumn = map[ActivityKind]string{
	ActivityQuizCompleted:       "quiz_points",
	ActivityAssignmentSubmitted: "assignment_points",
	ActivityCourseCompleted:     "course_points",
	ActivityLessonCompleted:     "lesson_points",
	ActivityDiscussionComment:   "discussion_points",
	ActivityDailyLogin:          "login_points",
	ActivityStreakBonus:         "streak_points",
	ActivityBadgeEarned:         "badge_points",
}

type Account struct {
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	Total            int       `json:"total" db:"total"`
	CoursePoints     int       `json:"course_points" db:"course_points"`
	QuizPoints       int       `json:"quiz_points" db:"quiz_points"`
	AssignmentPoints int       `json:"assignment_points" db:"assignment_points"`
	LessonPoints     int       `json:"lesson_points" db:"lesson_points"`
	DiscussionPoints int       `json:"discussion_points" db:"discussion_points"`
	LoginPoints      int       `json:"login_points" db:"login_points"`
	StreakPoints     int       `json:"streak_points" db:"streak_points"`
	BadgePoints      int       `json:"badge_points" db:"badge_points"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is an immutable record of one point award. Entries are append
// only; the account row is a materialized projection of them.
type LedgerEntry struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	UserID      uuid.UUID    `json:"user_id" db:"user_id"`
	Points      int          `json:"points" db:"points"`
	Kind        ActivityKind `json:"activity_kind" db:"activity_kind"`
	SourceRef   *string      `json:"source_ref,omitempty" db:"source_ref"`
	CourseID    *uuid.UUID   `json:"course_id,omitempty" db:"course_id"`
	Multiplier  float64      `json:"multiplier" db:"multiplier"`
	Description string       `json:"description" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

type AwardResult struct {
	PointsAwarded int `json:"points_awarded"`
	NewTotal      int `json:"new_total"`
}

type HistoryPage struct {
	Entries    []*LedgerEntry `json:"entries"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalCount int            `json:"total_count"`
}
