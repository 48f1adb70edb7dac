package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func TestValidateQuizRequiresScore(t *testing.T) {
	evt := &DomainEvent{Kind: QuizCompleted}
	assert.Error(t, evt.Validate())

	evt.Score = intPtr(101)
	assert.Error(t, evt.Validate())

	evt.Score = intPtr(-1)
	assert.Error(t, evt.Validate())

	evt.Score = intPtr(0)
	assert.NoError(t, evt.Validate())

	evt.Score = intPtr(100)
	assert.NoError(t, evt.Validate())
}

func TestValidateLessonRequiresMinutes(t *testing.T) {
	evt := &DomainEvent{Kind: LessonCompleted}
	assert.Error(t, evt.Validate())

	evt.MinutesSpent = intPtr(-5)
	assert.Error(t, evt.Validate())

	evt.MinutesSpent = intPtr(0)
	assert.NoError(t, evt.Validate())
}

func TestValidateCourseRequiresCourseID(t *testing.T) {
	evt := &DomainEvent{Kind: CourseCompleted}
	assert.Error(t, evt.Validate())

	id := uuid.New()
	evt.CourseID = &id
	assert.NoError(t, evt.Validate())
}

func TestValidateSimpleKinds(t *testing.T) {
	assert.NoError(t, (&DomainEvent{Kind: DailyLogin}).Validate())
	assert.NoError(t, (&DomainEvent{Kind: DiscussionPosted}).Validate())
	assert.Error(t, (&DomainEvent{Kind: "made_up"}).Validate())
}

func TestValidateNegativeMultiplier(t *testing.T) {
	evt := &DomainEvent{Kind: DailyLogin, Multiplier: -0.5}
	assert.Error(t, evt.Validate())
}
