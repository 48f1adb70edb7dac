package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnQuestAPI/internal/types/achievement"
	"learnQuestAPI/internal/types/badge"
	"learnQuestAPI/internal/types/event"
	"learnQuestAPI/internal/types/points"
	"learnQuestAPI/internal/types/streak"
	"learnQuestAPI/utils"
)

// streakBonusDedupWindow keeps a milestone from paying twice when multiple
// events land on the same streak day, while a later streak cycle reaching the
// same milestone still pays.
const streakBonusDedupWindow = 48 * time.Hour

// EventOutcome is everything one processed domain event changed, returned to
// the caller and fanned into notifications after commit.
type EventOutcome struct {
	UserID               uuid.UUID             `json:"user_id"`
	EventKind            event.Kind            `json:"event_kind"`
	PointsAwarded        int                   `json:"points_awarded"`
	NewTotal             int                   `json:"new_total"`
	Streak               *streak.Streak        `json:"streak"`
	StreakMilestoneBonus int                   `json:"streak_milestone_bonus"`
	BadgesEarned         []*badge.EarnedBadge  `json:"badges_earned"`
	AchievementsUnlocked []*achievement.Unlock `json:"achievements_unlocked"`
}

var activityKindFor = map[event.Kind]points.ActivityKind{
	event.QuizCompleted:       points.ActivityQuizCompleted,
	event.AssignmentSubmitted: points.ActivityAssignmentSubmitted,
	event.CourseCompleted:     points.ActivityCourseCompleted,
	event.LessonCompleted:     points.ActivityLessonCompleted,
	event.DiscussionPosted:    points.ActivityDiscussionComment,
	event.DailyLogin:          points.ActivityDailyLogin,
}

// EngineService drives the whole pipeline for one domain event: points,
// streak, badges, achievements in a single transaction, then leaderboard and
// notifications after it commits.
type EngineService struct {
	db            *pgxpool.Pool
	points        *PointsService
	streaks       *StreakService
	badges        *BadgeService
	achievements  *AchievementService
	leaderboards  *LeaderboardService
	notifications *NotificationService
	users         *UserService
}

func NewEngineService(
	db *pgxpool.Pool,
	pointsService *PointsService,
	streakService *StreakService,
	badgeService *BadgeService,
	achievementService *AchievementService,
	leaderboardService *LeaderboardService,
	notificationService *NotificationService,
	userService *UserService,
) *EngineService {
	return &EngineService{
		db:            db,
		points:        pointsService,
		streaks:       streakService,
		badges:        badgeService,
		achievements:  achievementService,
		leaderboards:  leaderboardService,
		notifications: notificationService,
		users:         userService,
	}
}

// ProcessEvent applies one learner action. Every persistent effect of the
// event happens in one transaction: either all of points, streak, badges and
// achievements land, or none do. Leaderboard refresh and notifications run
// after commit and never fail the event.
func (s *EngineService) ProcessEvent(ctx context.Context, clerkID string, evt *event.DomainEvent) (*EventOutcome, error) {
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	userID, err := s.users.GetUserIDFromClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	outcome, err := s.processTx(ctx, tx, userID, evt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}

	if err := s.leaderboards.RefreshUser(ctx, userID, evt.CourseID); err != nil {
		log.Printf("ProcessEvent: leaderboard refresh failed for user %s: %v", userID, err)
	}

	go s.notifications.NotifyEventOutcome(context.Background(), outcome)

	return outcome, nil
}

func (s *EngineService) processTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, evt *event.DomainEvent) (*EventOutcome, error) {
	outcome := &EventOutcome{
		UserID:               userID,
		EventKind:            evt.Kind,
		BadgesEarned:         []*badge.EarnedBadge{},
		AchievementsUnlocked: []*achievement.Unlock{},
	}

	// The streak's pre-event last activity date feeds comeback detection, so
	// capture it before the streak is advanced.
	prior, err := s.streaks.GetTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	var prevLastActivity *time.Time
	if prior.LastActivityDate != nil {
		t := *prior.LastActivityDate
		prevLastActivity = &t
	}

	basePoints, err := s.basePointsTx(ctx, tx, userID, evt)
	if err != nil {
		return nil, err
	}

	sourceRef := evt.SourceID
	result, err := s.points.AwardTx(ctx, tx, AwardParams{
		UserID:      userID,
		BasePoints:  basePoints,
		Kind:        activityKindFor[evt.Kind],
		SourceRef:   &sourceRef,
		CourseID:    evt.CourseID,
		Multiplier:  evt.Multiplier,
		Description: describeEvent(evt),
	})
	if err != nil {
		return nil, err
	}
	outcome.PointsAwarded = result.PointsAwarded
	outcome.NewTotal = result.NewTotal

	st, milestoneBonus, err := s.streaks.RecordActivityTx(ctx, tx, userID, evt.OccurredAt)
	if err != nil {
		return nil, err
	}
	outcome.Streak = st

	if milestoneBonus > 0 {
		alreadyPaid, err := s.points.HasRecentStreakBonus(ctx, tx, userID, milestoneBonus, streakBonusDedupWindow)
		if err != nil {
			return nil, err
		}
		if !alreadyPaid {
			bonusResult, err := s.points.AwardTx(ctx, tx, AwardParams{
				UserID:      userID,
				BasePoints:  milestoneBonus,
				Kind:        points.ActivityStreakBonus,
				Multiplier:  1.0,
				Description: fmt.Sprintf("%d-day streak milestone", st.CurrentStreak),
			})
			if err != nil {
				return nil, err
			}
			outcome.StreakMilestoneBonus = milestoneBonus
			outcome.NewTotal = bonusResult.NewTotal
		}
	}

	earned, err := s.badges.CheckAndAwardTx(ctx, tx, userID, evt.Kind)
	if err != nil {
		return nil, err
	}
	if len(earned) > 0 {
		outcome.BadgesEarned = earned
		// Badge rewards changed the total after the event's own award.
		var total int
		err := tx.QueryRow(ctx, `SELECT total FROM points_accounts WHERE user_id = $1`, userID).Scan(&total)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to re-read points total: %w", err)
		}
		if err == nil {
			outcome.NewTotal = total
		}
	}

	unlocks, err := s.achievements.CheckTx(ctx, tx, userID, evt.Kind, prevLastActivity, evt.OccurredAt)
	if err != nil {
		return nil, err
	}
	if len(unlocks) > 0 {
		outcome.AchievementsUnlocked = unlocks
	}

	return outcome, nil
}

// basePointsTx computes the pre-multiplier points an event is worth. A zero
// return means nothing is awarded but the rest of the pipeline still runs;
// logging in twice still counts toward the streak.
func (s *EngineService) basePointsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, evt *event.DomainEvent) (int, error) {
	switch evt.Kind {
	case event.QuizCompleted:
		return utils.QuizCompletionPoints(*evt.Score), nil

	case event.AssignmentSubmitted:
		return utils.AssignmentCompletionPoints(*evt.Score), nil

	case event.LessonCompleted:
		return utils.LessonCompletionPoints(*evt.MinutesSpent), nil

	case event.DiscussionPosted:
		return utils.DiscussionCommentPoints(evt.IsAcceptedAnswer), nil

	case event.DailyLogin:
		already, err := s.points.HasDailyLoginEntry(ctx, tx, userID, evt.OccurredAt)
		if err != nil {
			return 0, err
		}
		if already {
			return 0, nil
		}
		return utils.DailyLoginPoints, nil

	case event.CourseCompleted:
		return s.courseCompletionPointsTx(ctx, tx, userID, *evt.CourseID)

	default:
		return 0, fmt.Errorf("unknown event kind: %s", evt.Kind)
	}
}

// courseCompletionPointsTx derives the completion bonuses from the enrollment
// record: finishing within a week of enrolling, and scoring 100 on every quiz
// the course has (a course with no quizzes earns no perfect-score bonus).
func (s *EngineService) courseCompletionPointsTx(ctx context.Context, tx pgx.Tx, userID, courseID uuid.UUID) (int, error) {
	var enrolledAt time.Time
	var completedAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT enrolled_at, completed_at FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`, userID, courseID).Scan(&enrolledAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("no enrollment found for user %s in course %s", userID, courseID)
		}
		return 0, fmt.Errorf("failed to read enrollment: %w", err)
	}

	completedWithinWeek := false
	if completedAt != nil {
		completedWithinWeek = completedAt.Sub(enrolledAt) <= 7*24*time.Hour
	}

	var quizCount, perfectCount int
	err = tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM course_quizzes WHERE course_id = $2),
			(SELECT COUNT(*) FROM course_quizzes cq
			 WHERE cq.course_id = $2
			   AND 100 = (SELECT MAX(score) FROM quiz_attempts qa
			              WHERE qa.user_id = $1 AND qa.quiz_id = cq.quiz_id))
	`, userID, courseID).Scan(&quizCount, &perfectCount)
	if err != nil {
		return 0, fmt.Errorf("failed to check course quiz scores: %w", err)
	}
	allQuizzesPerfect := quizCount > 0 && perfectCount == quizCount

	return utils.CourseCompletionPoints(completedWithinWeek, allQuizzesPerfect), nil
}

func describeEvent(evt *event.DomainEvent) string {
	switch evt.Kind {
	case event.QuizCompleted:
		return fmt.Sprintf("Quiz completed with score %d", *evt.Score)
	case event.AssignmentSubmitted:
		return fmt.Sprintf("Assignment submitted with score %d", *evt.Score)
	case event.CourseCompleted:
		return "Course completed"
	case event.LessonCompleted:
		return fmt.Sprintf("Lesson completed in %d minutes", *evt.MinutesSpent)
	case event.DiscussionPosted:
		if evt.IsAcceptedAnswer {
			return "Discussion comment accepted as answer"
		}
		return "Discussion comment posted"
	case event.DailyLogin:
		return "Daily login"
	default:
		return string(evt.Kind)
	}
}
