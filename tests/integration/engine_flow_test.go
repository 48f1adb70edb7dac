package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnQuestAPI/internal/types/achievement"
	"learnQuestAPI/internal/types/event"
	"learnQuestAPI/internal/types/streak"
	"learnQuestAPI/services"
	"learnQuestAPI/tests/helpers"
)

func intPtr(v int) *int { return &v }

// TestQuizEventFlow pushes one perfect quiz through the whole pipeline and
// checks every side effect it should have.
func TestQuizEventFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_engine_" + time.Now().Format("20060102150405")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	userService := services.NewUserService(pool)
	pointsService := services.NewPointsService(pool)
	streakService := services.NewStreakService(pool)
	badgeService := services.NewBadgeService(pool, pointsService)
	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool)
	notificationService := services.NewNotificationService(pool)
	engine := services.NewEngineService(pool, pointsService, streakService, badgeService,
		achievementService, leaderboardService, notificationService, userService)

	// The content subsystem records the attempt before the event arrives.
	quizID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, user_id, quiz_id, score, graded_at)
		VALUES ($1, $2, $3, 100, NOW())
	`, uuid.New(), userID, quizID)
	require.NoError(t, err)

	evt := &event.DomainEvent{
		Kind:       event.QuizCompleted,
		SourceID:   quizID.String(),
		Score:      intPtr(100),
		OccurredAt: time.Now(),
	}

	outcome, err := engine.ProcessEvent(ctx, clerkID, evt)
	require.NoError(t, err)

	assert.Equal(t, 25, outcome.PointsAwarded, "perfect quiz pays 25")
	assert.GreaterOrEqual(t, outcome.NewTotal, 25)
	require.NotNil(t, outcome.Streak)
	assert.Equal(t, 1, outcome.Streak.CurrentStreak)

	unlockedKinds := make([]achievement.Kind, 0, len(outcome.AchievementsUnlocked))
	for _, u := range outcome.AchievementsUnlocked {
		unlockedKinds = append(unlockedKinds, u.Kind)
	}
	assert.Contains(t, unlockedKinds, achievement.FirstQuizPassed)

	account, err := pointsService.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 25, account.QuizPoints)
	assert.Equal(t, account.Total,
		account.CoursePoints+account.QuizPoints+account.AssignmentPoints+account.LessonPoints+
			account.DiscussionPoints+account.LoginPoints+account.StreakPoints+account.BadgePoints,
		"account total equals the sum of its buckets")

	// A second perfect quiz the same day must not re-unlock the achievement.
	outcome2, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind:       event.QuizCompleted,
		SourceID:   uuid.NewString(),
		Score:      intPtr(100),
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	for _, u := range outcome2.AchievementsUnlocked {
		assert.NotEqual(t, achievement.FirstQuizPassed, u.Kind, "first_quiz_passed unlocked twice")
	}
	assert.Equal(t, 1, outcome2.Streak.CurrentStreak, "same-day activity does not grow the streak")
}

// TestCourseCompletionBonuses runs a course_completed event against an
// enrollment finished three days in and every course quiz aced, which should
// pay the base 100 plus both 50-point bonuses.
func TestCourseCompletionBonuses(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_course_" + time.Now().Format("20060102150405")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	userService := services.NewUserService(pool)
	pointsService := services.NewPointsService(pool)
	streakService := services.NewStreakService(pool)
	badgeService := services.NewBadgeService(pool, pointsService)
	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool)
	notificationService := services.NewNotificationService(pool)
	engine := services.NewEngineService(pool, pointsService, streakService, badgeService,
		achievementService, leaderboardService, notificationService, userService)

	courseID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO enrollments (user_id, course_id, enrolled_at, completed_at)
		VALUES ($1, $2, NOW() - INTERVAL '3 days', NOW())
	`, userID, courseID)
	require.NoError(t, err)

	// Two quizzes in the course, both scored 100 along the way.
	for i := 0; i < 2; i++ {
		quizID := uuid.New()
		_, err = pool.Exec(ctx, `
			INSERT INTO course_quizzes (course_id, quiz_id) VALUES ($1, $2)
		`, courseID, quizID)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `
			INSERT INTO quiz_attempts (id, user_id, quiz_id, score, graded_at)
			VALUES ($1, $2, $3, 100, NOW() - INTERVAL '1 day')
		`, uuid.New(), userID, quizID)
		require.NoError(t, err)
	}

	outcome, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind:       event.CourseCompleted,
		SourceID:   courseID.String(),
		CourseID:   &courseID,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, 200, outcome.PointsAwarded,
		"100 base + 50 fast finish + 50 all quizzes perfect")

	account, err := pointsService.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 200, account.CoursePoints)
}

func TestDailyLoginPaysOncePerDay(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_login_" + time.Now().Format("20060102150405")
	helpers.CreateTestUser(t, pool, clerkID)

	userService := services.NewUserService(pool)
	pointsService := services.NewPointsService(pool)
	streakService := services.NewStreakService(pool)
	badgeService := services.NewBadgeService(pool, pointsService)
	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool)
	notificationService := services.NewNotificationService(pool)
	engine := services.NewEngineService(pool, pointsService, streakService, badgeService,
		achievementService, leaderboardService, notificationService, userService)

	login := &event.DomainEvent{Kind: event.DailyLogin, SourceID: "login", OccurredAt: time.Now()}

	first, err := engine.ProcessEvent(ctx, clerkID, login)
	require.NoError(t, err)
	assert.Equal(t, 2, first.PointsAwarded)

	second, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind: event.DailyLogin, SourceID: "login", OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.PointsAwarded, "second login the same day pays nothing")
	assert.Equal(t, first.NewTotal, second.NewTotal)
}

func TestBackdatedEventRejected(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_backdate_" + time.Now().Format("20060102150405")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	userService := services.NewUserService(pool)
	pointsService := services.NewPointsService(pool)
	streakService := services.NewStreakService(pool)
	badgeService := services.NewBadgeService(pool, pointsService)
	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool)
	notificationService := services.NewNotificationService(pool)
	engine := services.NewEngineService(pool, pointsService, streakService, badgeService,
		achievementService, leaderboardService, notificationService, userService)

	_, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind: event.DiscussionPosted, SourceID: "c1", OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind: event.DiscussionPosted, SourceID: "c2", OccurredAt: time.Now().AddDate(0, 0, -3),
	})
	assert.ErrorIs(t, err, streak.ErrActivityBackdated)

	// The rejected event must not have written a ledger entry.
	account, err := pointsService.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, account.DiscussionPoints, "only the first comment landed")
}
