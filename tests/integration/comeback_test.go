package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnQuestAPI/internal/types/achievement"
	"learnQuestAPI/internal/types/event"
	"learnQuestAPI/services"
	"learnQuestAPI/tests/helpers"
)

// TestComebackUnlockAfterGap returns a user after a long idle stretch and
// expects the comeback achievement to unlock.
func TestComebackUnlockAfterGap(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_comeback_" + time.Now().Format("20060102150405")
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

	seedIdleStreak(t, pool, userID, 40)

	outcome, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind: event.LessonCompleted, SourceID: "lesson-1", MinutesSpent: intPtr(10),
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	assert.True(t, unlockedKind(outcome.AchievementsUnlocked, achievement.ComebackLearner),
		"40 idle days then activity should unlock comeback_learner")
}

// TestComebackCooldownSuppressesRepeat seeds a fresh comeback unlock and
// checks a second long gap inside the cooldown does not unlock again.
func TestComebackCooldownSuppressesRepeat(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_cooldown_" + time.Now().Format("20060102150405")
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

	seedIdleStreak(t, pool, userID, 40)

	periodKey := time.Now().AddDate(0, 0, -5).UTC().Format("2006-01-02")
	_, err := pool.Exec(ctx, `
		INSERT INTO achievement_unlocks (id, user_id, kind, period_key, unlocked_at)
		VALUES ($1, $2, $3, $4, NOW() - INTERVAL '5 days')
	`, uuid.New(), userID, achievement.ComebackLearner, periodKey)
	require.NoError(t, err)

	outcome, err := engine.ProcessEvent(ctx, clerkID, &event.DomainEvent{
		Kind: event.LessonCompleted, SourceID: "lesson-2", MinutesSpent: intPtr(10),
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	assert.False(t, unlockedKind(outcome.AchievementsUnlocked, achievement.ComebackLearner),
		"a 5-day-old unlock is inside the 30-day cooldown")
}

// seedIdleStreak plants a streak record whose last activity is daysAgo back,
// as if the user went quiet mid-streak.
func seedIdleStreak(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, daysAgo int) {
	t.Helper()
	last := time.Now().UTC().AddDate(0, 0, -daysAgo)
	_, err := pool.Exec(context.Background(), `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date, streak_started_at, updated_at)
		VALUES ($1, 3, 5, $2, $3, NOW())
	`, userID, last, last.AddDate(0, 0, -2))
	require.NoError(t, err)
}

func unlockedKind(unlocks []*achievement.Unlock, kind achievement.Kind) bool {
	for _, u := range unlocks {
		if u.Kind == kind {
			return true
		}
	}
	return false
}
