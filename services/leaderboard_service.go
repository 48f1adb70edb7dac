package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnQuestAPI/internal/types/leaderboard"
)

type LeaderboardService struct {
	db *pgxpool.Pool
}

func NewLeaderboardService(db *pgxpool.Pool) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// lbCandidate is one user's aggregated signal inside a (scope, period) window.
type lbCandidate struct {
	UserID           uuid.UUID
	Points           int
	BadgeCount       int
	CoursesCompleted int
	EnrolledAt       time.Time
	Rank             int
}

// rankCandidates orders candidates by points desc, then badge count desc,
// then earliest enrollment, and assigns competition ranks: equal point totals
// share a rank, and the next distinct total resumes at its 1-based position.
func rankCandidates(cands []*lbCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Points != cands[j].Points {
			return cands[i].Points > cands[j].Points
		}
		if cands[i].BadgeCount != cands[j].BadgeCount {
			return cands[i].BadgeCount > cands[j].BadgeCount
		}
		return cands[i].EnrolledAt.Before(cands[j].EnrolledAt)
	})

	for i, c := range cands {
		if i > 0 && c.Points == cands[i-1].Points {
			c.Rank = cands[i-1].Rank
		} else {
			c.Rank = i + 1
		}
	}
}

// Recompute rebuilds the standings for one (scope, period) pair wholesale:
// gather everyone with qualifying signal in the window, rank, upsert, and
// drop entries for users who no longer qualify. Returns the entry count.
func (s *LeaderboardService) Recompute(ctx context.Context, scope leaderboard.Scope, courseID *uuid.UUID, period leaderboard.Period) (int, error) {
	start := time.Now()
	defer func() {
		leaderboardRecomputeDuration.WithLabelValues(string(scope), string(period)).Observe(time.Since(start).Seconds())
	}()

	if scope == leaderboard.ScopeCourse && courseID == nil {
		return 0, fmt.Errorf("course scope requires a course id")
	}

	windowStart, windowEnd, err := leaderboard.Window(period, time.Now())
	if err != nil {
		return 0, err
	}

	cands, err := s.gatherCandidates(ctx, scope, courseID, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}
	rankCandidates(cands)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertQuery := `
	INSERT INTO leaderboard_entries (id, scope, course_id, period, user_id, rank, points, badge_count, courses_completed, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (scope, course_id, period, user_id)
	DO UPDATE SET rank = $6, points = $7, badge_count = $8, courses_completed = $9, updated_at = NOW()
	`

	surviving := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		_, err := tx.Exec(ctx, upsertQuery,
			uuid.New(), scope, courseID, period, c.UserID, c.Rank, c.Points, c.BadgeCount, c.CoursesCompleted)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert leaderboard entry: %w", err)
		}
		surviving = append(surviving, c.UserID)
	}

	deleteQuery := `
	DELETE FROM leaderboard_entries
	WHERE scope = $1 AND period = $2 AND course_id IS NOT DISTINCT FROM $3 AND user_id != ALL($4)
	`
	if _, err := tx.Exec(ctx, deleteQuery, scope, period, courseID, surviving); err != nil {
		return 0, fmt.Errorf("failed to delete stale leaderboard entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit leaderboard recompute: %w", err)
	}

	return len(cands), nil
}

// RecomputeAll runs the batch pass over every (scope, period) pair. A failure
// in one pair is logged and must not block the others; it gets retried on the
// next scheduled run.
func (s *LeaderboardService) RecomputeAll(ctx context.Context) (int, error) {
	total := 0
	var failed int

	for _, period := range leaderboard.Periods {
		n, err := s.Recompute(ctx, leaderboard.ScopeGlobal, nil, period)
		if err != nil {
			log.Printf("RecomputeAll: global/%s failed: %v", period, err)
			failed++
			continue
		}
		total += n
	}

	courseIDs, err := s.activeCourseIDs(ctx)
	if err != nil {
		return total, err
	}
	for _, courseID := range courseIDs {
		for _, period := range leaderboard.Periods {
			id := courseID
			n, err := s.Recompute(ctx, leaderboard.ScopeCourse, &id, period)
			if err != nil {
				log.Printf("RecomputeAll: course %s/%s failed: %v", courseID, period, err)
				failed++
				continue
			}
			total += n
		}
	}

	if failed > 0 {
		return total, fmt.Errorf("leaderboard batch finished with %d failed (scope, period) pairs", failed)
	}
	return total, nil
}

// RefreshUser recalculates one user's standings after their own event. When
// the user's point total for a pair is unchanged only their counts are
// touched and the rank is derived in place; a changed total can reorder other
// users, so that pair falls back to a full recompute.
func (s *LeaderboardService) RefreshUser(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) error {
	pairs := []struct {
		scope    leaderboard.Scope
		courseID *uuid.UUID
	}{{leaderboard.ScopeGlobal, nil}}
	if courseID != nil {
		pairs = append(pairs, struct {
			scope    leaderboard.Scope
			courseID *uuid.UUID
		}{leaderboard.ScopeCourse, courseID})
	}

	for _, pair := range pairs {
		for _, period := range leaderboard.Periods {
			if err := s.refreshUserPair(ctx, userID, pair.scope, pair.courseID, period); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *LeaderboardService) refreshUserPair(ctx context.Context, userID uuid.UUID, scope leaderboard.Scope, courseID *uuid.UUID, period leaderboard.Period) error {
	windowStart, windowEnd, err := leaderboard.Window(period, time.Now())
	if err != nil {
		return err
	}

	cand, err := s.gatherUserCandidate(ctx, userID, scope, courseID, windowStart, windowEnd)
	if err != nil {
		return err
	}

	var storedPoints int
	err = s.db.QueryRow(ctx, `
		SELECT points FROM leaderboard_entries
		WHERE scope = $1 AND period = $2 AND course_id IS NOT DISTINCT FROM $3 AND user_id = $4
	`, scope, period, courseID, userID).Scan(&storedPoints)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if cand == nil {
			return nil
		}
		// New entrant can displace ranks below them.
		_, err := s.Recompute(ctx, scope, courseID, period)
		return err
	case err != nil:
		return fmt.Errorf("failed to read stored leaderboard entry: %w", err)
	}

	if cand == nil || cand.Points != storedPoints {
		_, err := s.Recompute(ctx, scope, courseID, period)
		return err
	}

	// Points unchanged: counts may have moved but relative order cannot.
	_, err = s.db.Exec(ctx, `
		UPDATE leaderboard_entries
		SET badge_count = $5, courses_completed = $6, updated_at = NOW()
		WHERE scope = $1 AND period = $2 AND course_id IS NOT DISTINCT FROM $3 AND user_id = $4
	`, scope, period, courseID, userID, cand.BadgeCount, cand.CoursesCompleted)
	if err != nil {
		return fmt.Errorf("failed to refresh leaderboard entry: %w", err)
	}
	return nil
}

const leaderboardPerPage = 50

// GetLeaderboard returns one page of standings for a (scope, period) pair.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, scope leaderboard.Scope, courseID *uuid.UUID, period leaderboard.Period, page int) (*leaderboard.Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * leaderboardPerPage

	var totalUsers int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM leaderboard_entries
		WHERE scope = $1 AND period = $2 AND course_id IS NOT DISTINCT FROM $3
	`, scope, period, courseID).Scan(&totalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count leaderboard entries: %w", err)
	}

	query := `
	SELECT le.id, le.scope, le.course_id, le.period, le.user_id, u.username, u.image_url,
	       le.rank, le.points, le.badge_count, le.courses_completed, le.updated_at
	FROM leaderboard_entries le
	JOIN users u ON u.id = le.user_id
	WHERE le.scope = $1 AND le.period = $2 AND le.course_id IS NOT DISTINCT FROM $3
	ORDER BY le.rank, le.badge_count DESC, u.username
	LIMIT $4 OFFSET $5
	`
	rows, err := s.db.Query(ctx, query, scope, period, courseID, leaderboardPerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	return &leaderboard.Leaderboard{
		Scope:      scope,
		CourseID:   courseID,
		Period:     period,
		Entries:    entries,
		Page:       page,
		TotalUsers: totalUsers,
	}, nil
}

// GetUserRank returns the user's entry plus the entries ranked immediately
// around them (two above and two below).
func (s *LeaderboardService) GetUserRank(ctx context.Context, userID uuid.UUID, scope leaderboard.Scope, courseID *uuid.UUID, period leaderboard.Period) (*leaderboard.UserRank, error) {
	entryQuery := `
	SELECT le.id, le.scope, le.course_id, le.period, le.user_id, u.username, u.image_url,
	       le.rank, le.points, le.badge_count, le.courses_completed, le.updated_at
	FROM leaderboard_entries le
	JOIN users u ON u.id = le.user_id
	WHERE le.scope = $1 AND le.period = $2 AND le.course_id IS NOT DISTINCT FROM $3 AND le.user_id = $4
	`
	rows, err := s.db.Query(ctx, entryQuery, scope, period, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user rank: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &leaderboard.UserRank{Neighbors: []*leaderboard.Entry{}}, nil
	}
	entry := entries[0]

	neighborQuery := `
	SELECT le.id, le.scope, le.course_id, le.period, le.user_id, u.username, u.image_url,
	       le.rank, le.points, le.badge_count, le.courses_completed, le.updated_at
	FROM leaderboard_entries le
	JOIN users u ON u.id = le.user_id
	WHERE le.scope = $1 AND le.period = $2 AND le.course_id IS NOT DISTINCT FROM $3
		AND le.user_id != $4 AND le.rank BETWEEN $5 AND $6
	ORDER BY le.rank, le.badge_count DESC, u.username
	LIMIT 10
	`
	rows, err = s.db.Query(ctx, neighborQuery, scope, period, courseID, userID, entry.Rank-2, entry.Rank+2)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rank neighbors: %w", err)
	}
	neighbors, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	return &leaderboard.UserRank{Entry: entry, Neighbors: neighbors}, nil
}

func scanEntries(rows pgx.Rows) ([]*leaderboard.Entry, error) {
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		e := &leaderboard.Entry{}
		err := rows.Scan(
			&e.ID, &e.Scope, &e.CourseID, &e.Period, &e.UserID, &e.Username, &e.ImageURL,
			&e.Rank, &e.Points, &e.BadgeCount, &e.CoursesCompleted, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard entries: %w", err)
	}
	if entries == nil {
		entries = []*leaderboard.Entry{}
	}
	return entries, nil
}

// gatherCandidates finds every user with qualifying signal in the window:
// points earned, badges earned, or courses completed. Users with zero signal
// are excluded entirely, never ranked with zero.
func (s *LeaderboardService) gatherCandidates(ctx context.Context, scope leaderboard.Scope, courseID *uuid.UUID, windowStart, windowEnd time.Time) ([]*lbCandidate, error) {
	query := `
	SELECT u.id,
	       COALESCE(p.pts, 0),
	       COALESCE(b.cnt, 0),
	       COALESCE(c.cnt, 0),
	       COALESCE(e.first_enrolled, u.created_at)
	FROM users u
	LEFT JOIN (
		SELECT user_id, SUM(points) AS pts FROM points_ledger
		WHERE created_at >= $1 AND created_at < $2 AND ($3::uuid IS NULL OR course_id = $3)
		GROUP BY user_id
	) p ON p.user_id = u.id
	LEFT JOIN (
		SELECT user_id, COUNT(*) AS cnt FROM badge_awards
		WHERE earned_at >= $1 AND earned_at < $2
		GROUP BY user_id
	) b ON b.user_id = u.id
	LEFT JOIN (
		SELECT user_id, COUNT(*) AS cnt FROM enrollments
		WHERE completed_at IS NOT NULL AND completed_at >= $1 AND completed_at < $2
			AND ($3::uuid IS NULL OR course_id = $3)
		GROUP BY user_id
	) c ON c.user_id = u.id
	LEFT JOIN (
		SELECT user_id, MIN(enrolled_at) AS first_enrolled FROM enrollments
		WHERE ($3::uuid IS NULL OR course_id = $3)
		GROUP BY user_id
	) e ON e.user_id = u.id
	WHERE COALESCE(p.pts, 0) > 0 OR COALESCE(b.cnt, 0) > 0 OR COALESCE(c.cnt, 0) > 0
	`
	var courseFilter *uuid.UUID
	if scope == leaderboard.ScopeCourse {
		courseFilter = courseID
	}

	rows, err := s.db.Query(ctx, query, windowStart, windowEnd, courseFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to gather leaderboard candidates: %w", err)
	}
	defer rows.Close()

	var cands []*lbCandidate
	for rows.Next() {
		c := &lbCandidate{}
		if err := rows.Scan(&c.UserID, &c.Points, &c.BadgeCount, &c.CoursesCompleted, &c.EnrolledAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		cands = append(cands, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return cands, nil
}

// gatherUserCandidate is the single-user slice of gatherCandidates; nil means
// the user has no qualifying signal in the window.
func (s *LeaderboardService) gatherUserCandidate(ctx context.Context, userID uuid.UUID, scope leaderboard.Scope, courseID *uuid.UUID, windowStart, windowEnd time.Time) (*lbCandidate, error) {
	query := `
	SELECT
		COALESCE((SELECT SUM(points) FROM points_ledger
			WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 AND ($4::uuid IS NULL OR course_id = $4)), 0),
		(SELECT COUNT(*) FROM badge_awards
			WHERE user_id = $1 AND earned_at >= $2 AND earned_at < $3),
		(SELECT COUNT(*) FROM enrollments
			WHERE user_id = $1 AND completed_at IS NOT NULL AND completed_at >= $2 AND completed_at < $3
				AND ($4::uuid IS NULL OR course_id = $4)),
		COALESCE((SELECT MIN(enrolled_at) FROM enrollments
			WHERE user_id = $1 AND ($4::uuid IS NULL OR course_id = $4)),
			(SELECT created_at FROM users WHERE id = $1))
	`
	var courseFilter *uuid.UUID
	if scope == leaderboard.ScopeCourse {
		courseFilter = courseID
	}

	c := &lbCandidate{UserID: userID}
	err := s.db.QueryRow(ctx, query, userID, windowStart, windowEnd, courseFilter).Scan(
		&c.Points, &c.BadgeCount, &c.CoursesCompleted, &c.EnrolledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to gather user candidate: %w", err)
	}
	if c.Points == 0 && c.BadgeCount == 0 && c.CoursesCompleted == 0 {
		return nil, nil
	}
	return c, nil
}

func (s *LeaderboardService) activeCourseIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT course_id FROM enrollments`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course ids: %w", err)
	}
	return ids, nil
}
