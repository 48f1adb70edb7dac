package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnQuestAPI/internal/types/streak"
)

type StreakService struct {
	db *pgxpool.Pool
}

func NewStreakService(db *pgxpool.Pool) *StreakService {
	return &StreakService{db: db}
}

// GetTx loads the streak row inside the caller's transaction, zero-valued
// when the user has never been active.
func (s *StreakService) GetTx(ctx context.Context, q DBTX, userID uuid.UUID) (*streak.Streak, error) {
	query := `
	SELECT user_id, current_streak, longest_streak, last_activity_date, streak_started_at, updated_at
	FROM streaks
	WHERE user_id = $1
	`
	st := &streak.Streak{}
	err := q.QueryRow(ctx, query, userID).Scan(
		&st.UserID,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.LastActivityDate,
		&st.StreakStartedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &streak.Streak{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return st, nil
}

// Get is the read-only variant for the streak info endpoint.
func (s *StreakService) Get(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	return s.GetTx(ctx, s.db, userID)
}

// RecordActivityTx advances the streak state machine for one activity date and
// persists the result in the caller's transaction. It returns the updated
// state and the milestone bonus the transition reached (0 when none); the
// caller decides whether the bonus actually pays out (de-duplication lives in
// the ledger). Backdated activity is rejected without mutating state.
func (s *StreakService) RecordActivityTx(ctx context.Context, q DBTX, userID uuid.UUID, activityDate time.Time) (*streak.Streak, int, error) {
	st, err := s.GetTx(ctx, q, userID)
	if err != nil {
		return nil, 0, err
	}

	milestoneBonus, changed, err := st.Advance(activityDate, time.Now())
	if err != nil {
		return nil, 0, err
	}
	if !changed {
		return st, 0, nil
	}

	query := `
	INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date, streak_started_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET
		current_streak = $2,
		longest_streak = $3,
		last_activity_date = $4,
		streak_started_at = $5,
		updated_at = NOW()
	`
	_, err = q.Exec(ctx, query, userID, st.CurrentStreak, st.LongestStreak, st.LastActivityDate, st.StreakStartedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to persist streak: %w", err)
	}

	return st, milestoneBonus, nil
}
