package achievement

import (
	"time"

	"github.com/google/uuid"

	"learnQuestAPI/internal/types/event"
)

type Kind string

const (
	FirstCourseCompleted     Kind = "first_course_completed"
	FirstQuizPassed          Kind = "first_quiz_passed"
	FirstAssignmentSubmitted Kind = "first_assignment_submitted"
	FirstDiscussionPost      Kind = "first_discussion_post"
	WeeklyGoal               Kind = "weekly_goal"
	PerfectWeek              Kind = "perfect_week"
	ComebackLearner          Kind = "comeback_learner"
)

// OneTime reports whether the kind unlocks at most once per user ever, as
// opposed to once per period key.
func (k Kind) OneTime() bool {
	switch k {
	case FirstCourseCompleted, FirstQuizPassed, FirstAssignmentSubmitted, FirstDiscussionPost:
		return true
	}
	return false
}

// WeeklyGoalThreshold is the points a user must earn in the trailing 7 days.
const WeeklyGoalThreshold = 500

// ComebackGapDays is the inactivity gap that qualifies as a comeback, and
// ComebackCooldownDays suppresses repeated unlocks on a single return.
const (
	ComebackGapDays      = 7
	ComebackCooldownDays = 30
)

// TriggerKinds routes a domain event to the achievement kinds worth
// re-checking, so an event never re-evaluates the full set.
var TriggerKinds = map[event.Kind][]Kind{
	event.QuizCompleted:       {FirstQuizPassed, PerfectWeek, WeeklyGoal, ComebackLearner},
	event.AssignmentSubmitted: {FirstAssignmentSubmitted, PerfectWeek, WeeklyGoal, ComebackLearner},
	event.CourseCompleted:     {FirstCourseCompleted, WeeklyGoal, ComebackLearner},
	event.LessonCompleted:     {WeeklyGoal, ComebackLearner},
	event.DiscussionPosted:    {FirstDiscussionPost, WeeklyGoal, ComebackLearner},
	event.DailyLogin:          {WeeklyGoal, ComebackLearner},
}

// WeekKey returns the period key for week-scoped kinds: the ISO week's Monday
// as a date string, so one unlock per user per week.
func WeekKey(now time.Time) string {
	now = now.UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := now.AddDate(0, 0, -(weekday - 1))
	return monday.Format("2006-01-02")
}

type Unlock struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Kind       Kind      `json:"kind" db:"kind"`
	PeriodKey  *string   `json:"period_key,omitempty" db:"period_key"`
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// Descriptions back the catalog endpoint and notification copy.
var Descriptions = map[Kind]struct {
	Title   string
	Message string
}{
	FirstCourseCompleted:     {"Course Conqueror", "You completed your first course!"},
	FirstQuizPassed:          {"Quiz Rookie", "You passed your first quiz!"},
	FirstAssignmentSubmitted: {"Hand It In", "You submitted your first assignment!"},
	FirstDiscussionPost:      {"Breaking the Ice", "You posted in a discussion for the first time!"},
	WeeklyGoal:               {"Weekly Goal", "You earned 500 points in a single week!"},
	PerfectWeek:              {"Perfect Week", "Every quiz and assignment this week scored 100!"},
	ComebackLearner:          {"Comeback Learner", "Welcome back! Great to see you again."},
}

type WithStatus struct {
	Kind       Kind       `json:"kind"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
