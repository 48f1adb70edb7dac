package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnQuestAPI/internal/types/leaderboard"
	"learnQuestAPI/internal/types/points"
	"learnQuestAPI/services"
	"learnQuestAPI/tests/helpers"
)

// TestWeeklyLeaderboardExcludesDormantUsers checks the window gathering: a
// user whose only points are a month old must not hold a weekly entry after a
// recompute, while the same points still rank them all-time.
func TestWeeklyLeaderboardExcludesDormantUsers(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	clerkID := "user_test_dormant_" + time.Now().Format("20060102150405")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	leaderboardService := services.NewLeaderboardService(pool)

	// A burst of activity well before the current week, and nothing since.
	_, err := pool.Exec(ctx, `
		INSERT INTO points_ledger (id, user_id, points, activity_kind, source_ref, multiplier, description, created_at)
		VALUES ($1, $2, 500, $3, 'quiz-old', 1.0, 'Quiz completed with score 100', NOW() - INTERVAL '30 days')
	`, uuid.New(), userID, points.ActivityQuizCompleted)
	require.NoError(t, err)

	_, err = leaderboardService.Recompute(ctx, leaderboard.ScopeGlobal, nil, leaderboard.PeriodWeekly)
	require.NoError(t, err)
	_, err = leaderboardService.Recompute(ctx, leaderboard.ScopeGlobal, nil, leaderboard.PeriodAllTime)
	require.NoError(t, err)

	assert.False(t, holdsGlobalEntry(t, pool, userID, leaderboard.PeriodWeekly),
		"no activity inside the weekly window, so no weekly entry")
	assert.True(t, holdsGlobalEntry(t, pool, userID, leaderboard.PeriodAllTime),
		"historical points still count all-time")

	var allTimePoints int
	err = pool.QueryRow(ctx, `
		SELECT points FROM leaderboard_entries
		WHERE scope = 'global' AND course_id IS NULL AND period = $1 AND user_id = $2
	`, leaderboard.PeriodAllTime, userID).Scan(&allTimePoints)
	require.NoError(t, err)
	assert.Equal(t, 500, allTimePoints)
}

func holdsGlobalEntry(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, period leaderboard.Period) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(), `
		SELECT EXISTS(
			SELECT 1 FROM leaderboard_entries
			WHERE scope = 'global' AND course_id IS NULL AND period = $1 AND user_id = $2
		)
	`, period, userID).Scan(&exists)
	require.NoError(t, err)
	return exists
}
