package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is a domain event entering the gamification engine.
type Kind string

const (
	QuizCompleted       Kind = "quiz_completed"
	AssignmentSubmitted Kind = "assignment_submitted"
	CourseCompleted     Kind = "course_completed"
	LessonCompleted     Kind = "lesson_completed"
	DiscussionPosted    Kind = "discussion_posted"
	DailyLogin          Kind = "daily_login"
)

// DomainEvent carries one learner action and the metadata its point formula
// needs. SourceID points at the resource in the content subsystem.
type DomainEvent struct {
	Kind             Kind       `json:"kind"`
	SourceID         string     `json:"source_id"`
	CourseID         *uuid.UUID `json:"course_id,omitempty"`
	Score            *int       `json:"score,omitempty"`
	MinutesSpent     *int       `json:"minutes_spent,omitempty"`
	IsAcceptedAnswer bool       `json:"is_accepted_answer,omitempty"`
	Multiplier       float64    `json:"multiplier,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// Validate rejects malformed events before any write happens.
func (e *DomainEvent) Validate() error {
	switch e.Kind {
	case QuizCompleted, AssignmentSubmitted:
		if e.Score == nil {
			return fmt.Errorf("%s event requires a score", e.Kind)
		}
		if *e.Score < 0 || *e.Score > 100 {
			return fmt.Errorf("score must be between 0 and 100, got %d", *e.Score)
		}
	case LessonCompleted:
		if e.MinutesSpent == nil || *e.MinutesSpent < 0 {
			return fmt.Errorf("lesson_completed event requires non-negative minutes_spent")
		}
	case CourseCompleted:
		if e.CourseID == nil {
			return fmt.Errorf("course_completed event requires a course_id")
		}
	case DiscussionPosted, DailyLogin:
		// no extra payload
	default:
		return fmt.Errorf("unknown event kind: %s", e.Kind)
	}
	if e.Multiplier < 0 {
		return fmt.Errorf("multiplier must not be negative")
	}
	return nil
}
