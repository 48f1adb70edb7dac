package badge

import "learnQuestAPI/internal/types/event"

// TriggerCriteria bounds badge evaluation to the criteria kinds a domain
// event can actually move. Anything not listed here is never re-checked for
// that trigger.
var TriggerCriteria = map[event.Kind][]CriteriaKind{
	event.QuizCompleted:       {CriteriaQuizScore, CriteriaPerfectQuizzes, CriteriaTotalPoints},
	event.AssignmentSubmitted: {CriteriaAssignmentsSubmitted, CriteriaTotalPoints},
	event.CourseCompleted:     {CriteriaCoursesCompleted, CriteriaTotalPoints},
	event.LessonCompleted:     {CriteriaLessonMinutes, CriteriaTotalPoints},
	event.DiscussionPosted:    {CriteriaDiscussionsPosted, CriteriaTotalPoints},
	event.DailyLogin:          {CriteriaStreakDays, CriteriaTotalPoints},
}
