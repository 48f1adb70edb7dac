package badge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CriteriaKind string

const (
	CriteriaCoursesCompleted     CriteriaKind = "courses_completed"
	CriteriaQuizScore            CriteriaKind = "quiz_score"
	CriteriaPerfectQuizzes       CriteriaKind = "perfect_quizzes"
	CriteriaStreakDays           CriteriaKind = "streak_days"
	CriteriaTotalPoints          CriteriaKind = "total_points"
	CriteriaAssignmentsSubmitted CriteriaKind = "assignments_submitted"
	CriteriaDiscussionsPosted    CriteriaKind = "discussions_posted"
	CriteriaLessonMinutes        CriteriaKind = "lesson_minutes"
)

type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

type Badge struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	Name              string       `json:"name" db:"name"`
	Description       string       `json:"description" db:"description"`
	Category          string       `json:"category" db:"category"`
	CriteriaKind      CriteriaKind `json:"criteria_kind" db:"criteria_kind"`
	CriteriaThreshold int          `json:"criteria_threshold" db:"criteria_threshold"`
	PointsReward      int          `json:"points_reward" db:"points_reward"`
	Tier              Tier         `json:"tier" db:"tier"`
	IsActive          bool         `json:"is_active" db:"is_active"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}

type Award struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	BadgeID       uuid.UUID `json:"badge_id" db:"badge_id"`
	PointsGranted int       `json:"points_granted" db:"points_granted"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
}

type EarnedBadge struct {
	Badge
	PointsGranted int       `json:"points_granted"`
	EarnedAt      time.Time `json:"earned_at"`
}

type BadgeWithProgress struct {
	Badge
	Current  int     `json:"current"`
	Progress float64 `json:"progress"`
	Earned   bool    `json:"earned"`
}

// MetricsSnapshot is the aggregate view of a user the criteria kinds are
// evaluated against. It is read once per trigger inside the same transaction
// as the eventual award.
type MetricsSnapshot struct {
	CoursesCompleted     int
	BestQuizScore        int
	PerfectQuizzes       int
	CurrentStreak        int
	TotalPoints          int
	AssignmentsSubmitted int
	DiscussionsPosted    int
	LessonMinutes        int
}

// Metric returns the snapshot value a criteria kind compares its threshold
// against. Unknown kinds are rejected rather than silently scored zero.
func (m *MetricsSnapshot) Metric(kind CriteriaKind) (int, error) {
	switch kind {
	case CriteriaCoursesCompleted:
		return m.CoursesCompleted, nil
	case CriteriaQuizScore:
		return m.BestQuizScore, nil
	case CriteriaPerfectQuizzes:
		return m.PerfectQuizzes, nil
	case CriteriaStreakDays:
		return m.CurrentStreak, nil
	case CriteriaTotalPoints:
		return m.TotalPoints, nil
	case CriteriaAssignmentsSubmitted:
		return m.AssignmentsSubmitted, nil
	case CriteriaDiscussionsPosted:
		return m.DiscussionsPosted, nil
	case CriteriaLessonMinutes:
		return m.LessonMinutes, nil
	default:
		return 0, fmt.Errorf("unknown criteria kind: %s", kind)
	}
}

// Satisfied reports whether the badge's threshold is met by the snapshot.
func (b *Badge) Satisfied(m *MetricsSnapshot) (bool, error) {
	current, err := m.Metric(b.CriteriaKind)
	if err != nil {
		return false, err
	}
	return current >= b.CriteriaThreshold, nil
}
