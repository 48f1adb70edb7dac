package utils

import "math"

// Point values for each learner activity. These formulas are the contract the
// rest of the engine builds on; change them and every historical comparison
// breaks, so they live here in one place.

const (
	QuizPerfectPoints       = 25
	AssignmentHighPoints    = 30
	CourseBasePoints        = 100
	CourseFastFinishBonus   = 50
	CoursePerfectQuizBonus  = 50
	LessonBasePoints        = 5
	LessonMinuteBonusCap    = 10
	DiscussionBasePoints    = 5
	DiscussionAcceptedBonus = 10
	DailyLoginPoints        = 2
)

// QuizCompletionPoints returns 25 for a perfect score, otherwise
// 10 + round(score/10).
func QuizCompletionPoints(score int) int {
	if score == 100 {
		return QuizPerfectPoints
	}
	return 10 + roundDiv10(score)
}

// AssignmentCompletionPoints returns 30 for scores of 90 and above, otherwise
// 15 + round(score/10).
func AssignmentCompletionPoints(score int) int {
	if score >= 90 {
		return AssignmentHighPoints
	}
	return 15 + roundDiv10(score)
}

// CourseCompletionPoints returns the 100 base plus 50 for finishing within a
// week of enrollment and 50 for scoring 100 on every quiz in the course.
func CourseCompletionPoints(completedWithinWeek, allQuizzesPerfect bool) int {
	pts := CourseBasePoints
	if completedWithinWeek {
		pts += CourseFastFinishBonus
	}
	if allQuizzesPerfect {
		pts += CoursePerfectQuizBonus
	}
	return pts
}

// LessonCompletionPoints returns 5 base plus 1 per 5 minutes spent, with the
// time bonus capped at 10 (15 points total).
func LessonCompletionPoints(minutesSpent int) int {
	bonus := minutesSpent / 5
	if bonus > LessonMinuteBonusCap {
		bonus = LessonMinuteBonusCap
	}
	return LessonBasePoints + bonus
}

// DiscussionCommentPoints returns 5 base plus 10 when the comment is already
// the accepted answer at award time.
func DiscussionCommentPoints(isAcceptedAnswer bool) int {
	if isAcceptedAnswer {
		return DiscussionBasePoints + DiscussionAcceptedBonus
	}
	return DiscussionBasePoints
}

// ApplyMultiplier rounds basePoints scaled by the multiplier to the nearest
// whole point.
func ApplyMultiplier(basePoints int, multiplier float64) int {
	return int(math.Round(float64(basePoints) * multiplier))
}

func roundDiv10(score int) int {
	return int(math.Round(float64(score) / 10.0))
}
