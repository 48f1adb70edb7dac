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
	"learnQuestAPI/internal/types/event"
)

type AchievementService struct {
	db *pgxpool.Pool
}

func NewAchievementService(db *pgxpool.Pool) *AchievementService {
	return &AchievementService{db: db}
}

// CheckTx re-evaluates the achievement kinds the trigger routes to and
// records the ones that now qualify. prevLastActivity is the streak's last
// activity date before this event was applied; comeback detection needs the
// pre-event value.
func (s *AchievementService) CheckTx(ctx context.Context, q DBTX, userID uuid.UUID, trigger event.Kind, prevLastActivity *time.Time, now time.Time) ([]*achievement.Unlock, error) {
	kinds, ok := achievement.TriggerKinds[trigger]
	if !ok {
		return nil, nil
	}

	var unlocks []*achievement.Unlock
	for _, kind := range kinds {
		qualifies, periodKey, err := s.evaluateTx(ctx, q, userID, kind, prevLastActivity, now)
		if err != nil {
			return nil, err
		}
		if !qualifies {
			continue
		}

		unlock, err := s.unlockTx(ctx, q, userID, kind, periodKey)
		if err != nil {
			return nil, err
		}
		if unlock != nil {
			unlocks = append(unlocks, unlock)
		}
	}
	return unlocks, nil
}

func (s *AchievementService) evaluateTx(ctx context.Context, q DBTX, userID uuid.UUID, kind achievement.Kind, prevLastActivity *time.Time, now time.Time) (bool, *string, error) {
	switch kind {
	case achievement.FirstQuizPassed:
		ok, err := s.existsTx(ctx, q,
			`SELECT EXISTS(SELECT 1 FROM quiz_attempts WHERE user_id = $1 AND score >= 50)`, userID)
		return ok, nil, err

	case achievement.FirstCourseCompleted:
		ok, err := s.existsTx(ctx, q,
			`SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND completed_at IS NOT NULL)`, userID)
		return ok, nil, err

	case achievement.FirstAssignmentSubmitted:
		ok, err := s.existsTx(ctx, q,
			`SELECT EXISTS(SELECT 1 FROM assignment_submissions WHERE user_id = $1)`, userID)
		return ok, nil, err

	case achievement.FirstDiscussionPost:
		ok, err := s.existsTx(ctx, q,
			`SELECT EXISTS(SELECT 1 FROM discussion_comments WHERE user_id = $1)`, userID)
		return ok, nil, err

	case achievement.WeeklyGoal:
		var sum int
		err := q.QueryRow(ctx, `
			SELECT COALESCE(SUM(points), 0)
			FROM points_ledger
			WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '7 days'
		`, userID).Scan(&sum)
		if err != nil {
			return false, nil, fmt.Errorf("failed to sum trailing week points: %w", err)
		}
		key := achievement.WeekKey(now)
		return sum >= achievement.WeeklyGoalThreshold, &key, nil

	case achievement.PerfectWeek:
		// At least one graded quiz AND one assignment in the trailing 7 days,
		// and every one of them scored exactly 100.
		var quizCount, perfectQuizzes, assignmentCount, perfectAssignments int
		err := q.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM quiz_attempts
				 WHERE user_id = $1 AND graded_at >= NOW() - INTERVAL '7 days'),
				(SELECT COUNT(*) FROM quiz_attempts
				 WHERE user_id = $1 AND graded_at >= NOW() - INTERVAL '7 days' AND score = 100),
				(SELECT COUNT(*) FROM assignment_submissions
				 WHERE user_id = $1 AND submitted_at >= NOW() - INTERVAL '7 days'),
				(SELECT COUNT(*) FROM assignment_submissions
				 WHERE user_id = $1 AND submitted_at >= NOW() - INTERVAL '7 days' AND score = 100)
		`, userID).Scan(&quizCount, &perfectQuizzes, &assignmentCount, &perfectAssignments)
		if err != nil {
			return false, nil, fmt.Errorf("failed to check perfect week: %w", err)
		}
		key := achievement.WeekKey(now)
		qualifies := quizCount > 0 && assignmentCount > 0 &&
			quizCount == perfectQuizzes && assignmentCount == perfectAssignments
		return qualifies, &key, nil

	case achievement.ComebackLearner:
		if prevLastActivity == nil {
			return false, nil, nil
		}
		gap := now.Sub(*prevLastActivity)
		if gap < time.Duration(achievement.ComebackGapDays)*24*time.Hour {
			return false, nil, nil
		}
		// Suppress repeat unlocks while a single return is still fresh.
		var recentlyUnlocked bool
		interval := fmt.Sprintf("%d days", achievement.ComebackCooldownDays)
		err := q.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM achievement_unlocks
				WHERE user_id = $1 AND kind = $2 AND unlocked_at >= NOW() - $3::interval
			)
		`, userID, achievement.ComebackLearner, interval).Scan(&recentlyUnlocked)
		if err != nil {
			return false, nil, fmt.Errorf("failed to check comeback cooldown: %w", err)
		}
		if recentlyUnlocked {
			return false, nil, nil
		}
		key := now.UTC().Format("2006-01-02")
		return true, &key, nil

	default:
		return false, nil, fmt.Errorf("unknown achievement kind: %s", kind)
	}
}

// unlockTx records the unlock. The unique constraint on
// (user_id, kind, period_key) is the authoritative once-only guard; a lost
// race returns nil, nil because the caller's intent is already satisfied.
func (s *AchievementService) unlockTx(ctx context.Context, q DBTX, userID uuid.UUID, kind achievement.Kind, periodKey *string) (*achievement.Unlock, error) {
	query := `
	INSERT INTO achievement_unlocks (id, user_id, kind, period_key, unlocked_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, kind, COALESCE(period_key, '')) DO NOTHING
	RETURNING id, unlocked_at
	`
	unlock := &achievement.Unlock{UserID: userID, Kind: kind, PeriodKey: periodKey}
	err := q.QueryRow(ctx, query, uuid.New(), userID, kind, periodKey).Scan(&unlock.ID, &unlock.UnlockedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to record achievement unlock: %w", err)
	}

	achievementsUnlockedTotal.WithLabelValues(string(kind)).Inc()
	log.Printf("unlockTx: user %s unlocked %s", userID, kind)

	return unlock, nil
}

// GetAchievements returns the full catalog with the user's unlock status,
// unlocked ones first.
func (s *AchievementService) GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.WithStatus, error) {
	query := `
	SELECT kind, MAX(unlocked_at)
	FROM achievement_unlocks
	WHERE user_id = $1
	GROUP BY kind
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievement unlocks: %w", err)
	}
	defer rows.Close()

	unlockedAt := make(map[achievement.Kind]time.Time)
	for rows.Next() {
		var kind achievement.Kind
		var at time.Time
		if err := rows.Scan(&kind, &at); err != nil {
			return nil, fmt.Errorf("failed to scan achievement unlock: %w", err)
		}
		unlockedAt[kind] = at
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement unlocks: %w", err)
	}

	ordered := []achievement.Kind{
		achievement.FirstQuizPassed,
		achievement.FirstAssignmentSubmitted,
		achievement.FirstDiscussionPost,
		achievement.FirstCourseCompleted,
		achievement.WeeklyGoal,
		achievement.PerfectWeek,
		achievement.ComebackLearner,
	}

	var result []*achievement.WithStatus
	for _, kind := range ordered {
		desc := achievement.Descriptions[kind]
		ws := &achievement.WithStatus{
			Kind:    kind,
			Title:   desc.Title,
			Message: desc.Message,
		}
		if at, ok := unlockedAt[kind]; ok {
			ws.Unlocked = true
			t := at
			ws.UnlockedAt = &t
		}
		result = append(result, ws)
	}
	return result, nil
}

func (s *AchievementService) existsTx(ctx context.Context, q DBTX, query string, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed existence check: %w", err)
	}
	return exists, nil
}
