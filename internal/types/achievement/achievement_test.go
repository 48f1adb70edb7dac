package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnQuestAPI/internal/types/event"
)

func TestWeekKey(t *testing.T) {
	// 2026-03-04 is a Wednesday; its ISO week starts Monday 2026-03-02.
	wed := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", WeekKey(wed))

	mon := time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, "2026-03-02", WeekKey(mon))

	// Sunday belongs to the week that started the previous Monday.
	sun := time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", WeekKey(sun))

	nextMon := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", WeekKey(nextMon))
}

func TestOneTime(t *testing.T) {
	assert.True(t, FirstQuizPassed.OneTime())
	assert.True(t, FirstCourseCompleted.OneTime())
	assert.True(t, FirstAssignmentSubmitted.OneTime())
	assert.True(t, FirstDiscussionPost.OneTime())

	assert.False(t, WeeklyGoal.OneTime())
	assert.False(t, PerfectWeek.OneTime())
	assert.False(t, ComebackLearner.OneTime())
}

func TestTriggerKindsRouting(t *testing.T) {
	// Every event kind can be a comeback and can complete the weekly goal.
	for kind, routed := range TriggerKinds {
		assert.Contains(t, routed, ComebackLearner, "trigger %s", kind)
		assert.Contains(t, routed, WeeklyGoal, "trigger %s", kind)
	}

	assert.Contains(t, TriggerKinds[event.QuizCompleted], FirstQuizPassed)
	assert.Contains(t, TriggerKinds[event.QuizCompleted], PerfectWeek)
	assert.Contains(t, TriggerKinds[event.AssignmentSubmitted], PerfectWeek)
	assert.NotContains(t, TriggerKinds[event.LessonCompleted], PerfectWeek,
		"only graded work moves a perfect week")
	assert.NotContains(t, TriggerKinds[event.DailyLogin], FirstQuizPassed)
}

func TestDescriptionsCoverEveryKind(t *testing.T) {
	kinds := []Kind{
		FirstCourseCompleted, FirstQuizPassed, FirstAssignmentSubmitted,
		FirstDiscussionPost, WeeklyGoal, PerfectWeek, ComebackLearner,
	}
	for _, k := range kinds {
		desc, ok := Descriptions[k]
		require.True(t, ok, "missing description for %s", k)
		assert.NotEmpty(t, desc.Title)
		assert.NotEmpty(t, desc.Message)
	}
}
