package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizCompletionPoints(t *testing.T) {
	assert.Equal(t, 25, QuizCompletionPoints(100))
	assert.Equal(t, 19, QuizCompletionPoints(85)) // 10 + round(8.5)
	assert.Equal(t, 18, QuizCompletionPoints(80))
	assert.Equal(t, 10, QuizCompletionPoints(0))
	assert.Equal(t, 15, QuizCompletionPoints(50))
}

func TestAssignmentCompletionPoints(t *testing.T) {
	assert.Equal(t, 30, AssignmentCompletionPoints(100))
	assert.Equal(t, 30, AssignmentCompletionPoints(90))
	assert.Equal(t, 24, AssignmentCompletionPoints(89)) // 15 + round(8.9)
	assert.Equal(t, 15, AssignmentCompletionPoints(0))
}

func TestCourseCompletionPoints(t *testing.T) {
	assert.Equal(t, 100, CourseCompletionPoints(false, false))
	assert.Equal(t, 150, CourseCompletionPoints(true, false))
	assert.Equal(t, 150, CourseCompletionPoints(false, true))
	assert.Equal(t, 200, CourseCompletionPoints(true, true))
}

func TestLessonCompletionPoints(t *testing.T) {
	assert.Equal(t, 5, LessonCompletionPoints(0))
	assert.Equal(t, 5, LessonCompletionPoints(4))
	assert.Equal(t, 6, LessonCompletionPoints(5))
	assert.Equal(t, 15, LessonCompletionPoints(50))
	// bonus caps at 10 no matter how long the lesson ran
	assert.Equal(t, 15, LessonCompletionPoints(500))
}

func TestDiscussionCommentPoints(t *testing.T) {
	assert.Equal(t, 5, DiscussionCommentPoints(false))
	assert.Equal(t, 15, DiscussionCommentPoints(true))
}

func TestApplyMultiplier(t *testing.T) {
	assert.Equal(t, 25, ApplyMultiplier(25, 1.0))
	assert.Equal(t, 50, ApplyMultiplier(25, 2.0))
	assert.Equal(t, 38, ApplyMultiplier(25, 1.5))
	assert.Equal(t, 13, ApplyMultiplier(25, 0.5))
	assert.Equal(t, 0, ApplyMultiplier(25, 0))
}
