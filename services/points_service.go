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

	"learnQuestAPI/internal/types/points"
	"learnQuestAPI/utils"
)

// ErrUnknownActivityKind rejects awards for kinds the account has no bucket
// for, before anything is written.
var ErrUnknownActivityKind = errors.New("unknown activity kind")

type PointsService struct {
	db *pgxpool.Pool
}

func NewPointsService(db *pgxpool.Pool) *PointsService {
	return &PointsService{db: db}
}

type AwardParams struct {
	UserID      uuid.UUID
	BasePoints  int
	Kind        points.ActivityKind
	SourceRef   *string
	CourseID    *uuid.UUID
	Multiplier  float64
	Description string
}

// AwardTx appends one ledger entry and bumps the account projection inside
// the caller's transaction. Non-positive base points are a no-op returning
// pointsAwarded=0; the ledger never holds zero or negative entries.
func (s *PointsService) AwardTx(ctx context.Context, q DBTX, p AwardParams) (*points.AwardResult, error) {
	if p.Multiplier == 0 {
		p.Multiplier = 1.0
	}
	column, ok := points.SubtotalColumn[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActivityKind, p.Kind)
	}

	if p.BasePoints <= 0 {
		total, err := s.totalTx(ctx, q, p.UserID)
		if err != nil {
			return nil, err
		}
		return &points.AwardResult{PointsAwarded: 0, NewTotal: total}, nil
	}

	amount := utils.ApplyMultiplier(p.BasePoints, p.Multiplier)
	if amount <= 0 {
		total, err := s.totalTx(ctx, q, p.UserID)
		if err != nil {
			return nil, err
		}
		return &points.AwardResult{PointsAwarded: 0, NewTotal: total}, nil
	}

	insertQuery := `
	INSERT INTO points_ledger (id, user_id, points, activity_kind, source_ref, course_id, multiplier, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := q.Exec(ctx, insertQuery,
		uuid.New(), p.UserID, amount, p.Kind, p.SourceRef, p.CourseID, p.Multiplier, p.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	// column comes from the closed SubtotalColumn map, never from input
	upsertQuery := fmt.Sprintf(`
	INSERT INTO points_accounts (user_id, total, %[1]s, updated_at)
	VALUES ($1, $2, $2, NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET total = points_accounts.total + $2, %[1]s = points_accounts.%[1]s + $2, updated_at = NOW()
	RETURNING total
	`, column)

	var newTotal int
	if err := q.QueryRow(ctx, upsertQuery, p.UserID, amount).Scan(&newTotal); err != nil {
		return nil, fmt.Errorf("failed to update points account: %w", err)
	}

	pointsAwardedTotal.WithLabelValues(string(p.Kind)).Add(float64(amount))

	return &points.AwardResult{PointsAwarded: amount, NewTotal: newTotal}, nil
}

// Award runs AwardTx in its own transaction, for callers outside the event
// pipeline (the manual admin badge grant goes through here).
func (s *PointsService) Award(ctx context.Context, p AwardParams) (*points.AwardResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.AwardTx(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit award: %w", err)
	}
	return result, nil
}

// HasDailyLoginEntry reports whether a daily_login entry already exists for
// the given calendar day, so login points pay out at most once per day.
func (s *PointsService) HasDailyLoginEntry(ctx context.Context, q DBTX, userID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	query := `
	SELECT EXISTS(
		SELECT 1 FROM points_ledger
		WHERE user_id = $1 AND activity_kind = $2 AND created_at::date = $3::date
	)
	`
	err := q.QueryRow(ctx, query, userID, points.ActivityDailyLogin, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check daily login entry: %w", err)
	}
	return exists, nil
}

// HasRecentStreakBonus reports whether a streak_bonus entry with this exact
// point value exists within the de-duplication window. Repeated same-day
// triggers must not re-pay a milestone, while a later independent streak
// cycle still can.
func (s *PointsService) HasRecentStreakBonus(ctx context.Context, q DBTX, userID uuid.UUID, bonus int, window time.Duration) (bool, error) {
	var exists bool
	query := `
	SELECT EXISTS(
		SELECT 1 FROM points_ledger
		WHERE user_id = $1 AND activity_kind = $2 AND points = $3 AND created_at >= NOW() - $4::interval
	)
	`
	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))
	err := q.QueryRow(ctx, query, userID, points.ActivityStreakBonus, bonus, interval).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check streak bonus entries: %w", err)
	}
	return exists, nil
}

// GetAccount returns the materialized points account, zero-valued when the
// user has never earned a point.
func (s *PointsService) GetAccount(ctx context.Context, userID uuid.UUID) (*points.Account, error) {
	query := `
	SELECT user_id, total, course_points, quiz_points, assignment_points, lesson_points,
	       discussion_points, login_points, streak_points, badge_points, updated_at
	FROM points_accounts
	WHERE user_id = $1
	`
	acc := &points.Account{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&acc.UserID,
		&acc.Total,
		&acc.CoursePoints,
		&acc.QuizPoints,
		&acc.AssignmentPoints,
		&acc.LessonPoints,
		&acc.DiscussionPoints,
		&acc.LoginPoints,
		&acc.StreakPoints,
		&acc.BadgePoints,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &points.Account{UserID: userID, UpdatedAt: time.Now()}, nil
		}
		return nil, fmt.Errorf("failed to get points account: %w", err)
	}
	return acc, nil
}

const historyPerPage = 50

// GetHistory returns one page of the ledger, newest first, optionally
// filtered by activity kind.
func (s *PointsService) GetHistory(ctx context.Context, userID uuid.UUID, kind *points.ActivityKind, page int) (*points.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * historyPerPage

	countQuery := `
	SELECT COUNT(*) FROM points_ledger
	WHERE user_id = $1 AND ($2::text IS NULL OR activity_kind = $2)
	`
	var total int
	if err := s.db.QueryRow(ctx, countQuery, userID, kind).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	query := `
	SELECT id, user_id, points, activity_kind, source_ref, course_id, multiplier, description, created_at
	FROM points_ledger
	WHERE user_id = $1 AND ($2::text IS NULL OR activity_kind = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := s.db.Query(ctx, query, userID, kind, historyPerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch points history: %w", err)
	}
	defer rows.Close()

	var entries []*points.LedgerEntry
	for rows.Next() {
		e := &points.LedgerEntry{}
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Points,
			&e.Kind,
			&e.SourceRef,
			&e.CourseID,
			&e.Multiplier,
			&e.Description,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	if entries == nil {
		entries = []*points.LedgerEntry{}
	}

	log.Printf("GetHistory: returning %d of %d entries for user %s", len(entries), total, userID)

	return &points.HistoryPage{
		Entries:    entries,
		Page:       page,
		PerPage:    historyPerPage,
		TotalCount: total,
	}, nil
}

func (s *PointsService) totalTx(ctx context.Context, q DBTX, userID uuid.UUID) (int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT total FROM points_accounts WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read points total: %w", err)
	}
	return total, nil
}
