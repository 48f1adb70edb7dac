package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnQuestAPI/internal/types/event"
)

func TestMetricCoversEveryCriteriaKind(t *testing.T) {
	m := &MetricsSnapshot{
		CoursesCompleted:     1,
		BestQuizScore:        2,
		PerfectQuizzes:       3,
		CurrentStreak:        4,
		TotalPoints:          5,
		AssignmentsSubmitted: 6,
		DiscussionsPosted:    7,
		LessonMinutes:        8,
	}

	expected := map[CriteriaKind]int{
		CriteriaCoursesCompleted:     1,
		CriteriaQuizScore:            2,
		CriteriaPerfectQuizzes:       3,
		CriteriaStreakDays:           4,
		CriteriaTotalPoints:          5,
		CriteriaAssignmentsSubmitted: 6,
		CriteriaDiscussionsPosted:    7,
		CriteriaLessonMinutes:        8,
	}

	for kind, want := range expected {
		got, err := m.Metric(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got, "kind %s", kind)
	}
}

func TestMetricUnknownKind(t *testing.T) {
	m := &MetricsSnapshot{}
	_, err := m.Metric("nonsense")
	assert.Error(t, err)
}

func TestSatisfied(t *testing.T) {
	b := &Badge{CriteriaKind: CriteriaPerfectQuizzes, CriteriaThreshold: 5}

	ok, err := b.Satisfied(&MetricsSnapshot{PerfectQuizzes: 4})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Satisfied(&MetricsSnapshot{PerfectQuizzes: 5})
	require.NoError(t, err)
	assert.True(t, ok, "threshold is inclusive")

	ok, err = b.Satisfied(&MetricsSnapshot{PerfectQuizzes: 50})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTriggerCriteriaRouting(t *testing.T) {
	// Every event kind routes somewhere, and always includes total_points
	// since any award can push a user over a points threshold.
	kinds := []event.Kind{
		event.QuizCompleted,
		event.AssignmentSubmitted,
		event.CourseCompleted,
		event.LessonCompleted,
		event.DiscussionPosted,
		event.DailyLogin,
	}
	for _, k := range kinds {
		criteria, ok := TriggerCriteria[k]
		require.True(t, ok, "no routing for %s", k)
		assert.Contains(t, criteria, CriteriaTotalPoints)
	}

	assert.Contains(t, TriggerCriteria[event.QuizCompleted], CriteriaPerfectQuizzes)
	assert.NotContains(t, TriggerCriteria[event.DailyLogin], CriteriaCoursesCompleted,
		"a login cannot change course completions")
}
