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

	"learnQuestAPI/internal/types/badge"
	"learnQuestAPI/internal/types/event"
	"learnQuestAPI/internal/types/points"
)

type BadgeService struct {
	db     *pgxpool.Pool
	points *PointsService
}

func NewBadgeService(db *pgxpool.Pool, pointsService *PointsService) *BadgeService {
	return &BadgeService{db: db, points: pointsService}
}

// LoadMetricsTx gathers the aggregate snapshot badge criteria are evaluated
// against, inside the caller's transaction so awards see a consistent view.
func (s *BadgeService) LoadMetricsTx(ctx context.Context, q DBTX, userID uuid.UUID) (*badge.MetricsSnapshot, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND completed_at IS NOT NULL),
		COALESCE((SELECT MAX(score) FROM quiz_attempts WHERE user_id = $1), 0),
		(SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND score = 100),
		COALESCE((SELECT current_streak FROM streaks WHERE user_id = $1), 0),
		COALESCE((SELECT total FROM points_accounts WHERE user_id = $1), 0),
		(SELECT COUNT(*) FROM assignment_submissions WHERE user_id = $1),
		(SELECT COUNT(*) FROM discussion_comments WHERE user_id = $1),
		COALESCE((SELECT SUM(minutes_spent) FROM lesson_completions WHERE user_id = $1), 0)
	`
	m := &badge.MetricsSnapshot{}
	err := q.QueryRow(ctx, query, userID).Scan(
		&m.CoursesCompleted,
		&m.BestQuizScore,
		&m.PerfectQuizzes,
		&m.CurrentStreak,
		&m.TotalPoints,
		&m.AssignmentsSubmitted,
		&m.DiscussionsPosted,
		&m.LessonMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge metrics: %w", err)
	}
	return m, nil
}

// CheckAndAwardTx evaluates every active badge whose criteria kind the
// trigger can move and awards the ones the user now satisfies. The unique
// constraint on (user_id, badge_id) is the authoritative once-only guard;
// the existing-award pre-check just keeps the common path cheap.
func (s *BadgeService) CheckAndAwardTx(ctx context.Context, q DBTX, userID uuid.UUID, trigger event.Kind) ([]*badge.EarnedBadge, error) {
	kinds, ok := badge.TriggerCriteria[trigger]
	if !ok {
		return nil, nil
	}

	candidates, err := s.candidateBadgesTx(ctx, q, kinds)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	owned, err := s.ownedBadgeIDsTx(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.LoadMetricsTx(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	var earned []*badge.EarnedBadge
	for _, b := range candidates {
		if owned[b.ID] {
			continue
		}
		satisfied, err := b.Satisfied(snapshot)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			continue
		}

		eb, err := s.awardTx(ctx, q, userID, b)
		if err != nil {
			return nil, err
		}
		if eb != nil {
			earned = append(earned, eb)
		}
	}

	return earned, nil
}

// AwardToUser is the manual admin override. It runs in its own transaction
// and stays subject to the once-only uniqueness guard; awarding an already
// owned badge is a silent no-op.
func (s *BadgeService) AwardToUser(ctx context.Context, userID, badgeID uuid.UUID) (*badge.EarnedBadge, error) {
	b, err := s.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	eb, err := s.awardTx(ctx, tx, userID, b)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit badge award: %w", err)
	}
	return eb, nil
}

// awardTx creates the award row and grants the badge's point reward. A nil
// result with nil error means another transaction won the race; the caller's
// intent is already satisfied so that is not an error.
func (s *BadgeService) awardTx(ctx context.Context, q DBTX, userID uuid.UUID, b *badge.Badge) (*badge.EarnedBadge, error) {
	insertQuery := `
	INSERT INTO badge_awards (id, user_id, badge_id, points_granted, earned_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, badge_id) DO NOTHING
	RETURNING earned_at
	`
	var earnedAt time.Time
	err := q.QueryRow(ctx, insertQuery, uuid.New(), userID, b.ID, b.PointsReward).Scan(&earnedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("awardTx: badge %s already awarded to user %s, skipping", b.ID, userID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create badge award: %w", err)
	}

	sourceRef := b.ID.String()
	_, err = s.points.AwardTx(ctx, q, AwardParams{
		UserID:      userID,
		BasePoints:  b.PointsReward,
		Kind:        points.ActivityBadgeEarned,
		SourceRef:   &sourceRef,
		Multiplier:  1.0,
		Description: fmt.Sprintf("Badge earned: %s", b.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant badge points: %w", err)
	}

	badgesAwardedTotal.Inc()

	return &badge.EarnedBadge{
		Badge:         *b,
		PointsGranted: b.PointsReward,
		EarnedAt:      earnedAt,
	}, nil
}

func (s *BadgeService) GetBadge(ctx context.Context, badgeID uuid.UUID) (*badge.Badge, error) {
	query := `
	SELECT id, name, description, category, criteria_kind, criteria_threshold, points_reward, tier, is_active, created_at
	FROM badges
	WHERE id = $1
	`
	b := &badge.Badge{}
	err := s.db.QueryRow(ctx, query, badgeID).Scan(
		&b.ID, &b.Name, &b.Description, &b.Category, &b.CriteriaKind,
		&b.CriteriaThreshold, &b.PointsReward, &b.Tier, &b.IsActive, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("badge not found")
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return b, nil
}

// GetUnlockedBadges returns the badges a user has earned, newest first.
func (s *BadgeService) GetUnlockedBadges(ctx context.Context, userID uuid.UUID) ([]*badge.EarnedBadge, error) {
	query := `
	SELECT b.id, b.name, b.description, b.category, b.criteria_kind, b.criteria_threshold,
	       b.points_reward, b.tier, b.is_active, b.created_at, ba.points_granted, ba.earned_at
	FROM badge_awards ba
	JOIN badges b ON b.id = ba.badge_id
	WHERE ba.user_id = $1
	ORDER BY ba.earned_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlocked badges: %w", err)
	}
	defer rows.Close()

	var earned []*badge.EarnedBadge
	for rows.Next() {
		eb := &badge.EarnedBadge{}
		err := rows.Scan(
			&eb.ID, &eb.Name, &eb.Description, &eb.Category, &eb.CriteriaKind,
			&eb.CriteriaThreshold, &eb.PointsReward, &eb.Tier, &eb.IsActive, &eb.CreatedAt,
			&eb.PointsGranted, &eb.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan earned badge: %w", err)
		}
		earned = append(earned, eb)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating earned badges: %w", err)
	}

	if earned == nil {
		earned = []*badge.EarnedBadge{}
	}
	return earned, nil
}

// GetAvailableBadges returns the active catalog with the user's progress
// toward each threshold.
func (s *BadgeService) GetAvailableBadges(ctx context.Context, userID uuid.UUID) ([]*badge.BadgeWithProgress, error) {
	snapshot, err := s.LoadMetricsTx(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.ownedBadgeIDsTx(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, name, description, category, criteria_kind, criteria_threshold, points_reward, tier, is_active, created_at
	FROM badges
	WHERE is_active = true
	ORDER BY category, criteria_threshold
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badge catalog: %w", err)
	}
	defer rows.Close()

	var result []*badge.BadgeWithProgress
	for rows.Next() {
		bp := &badge.BadgeWithProgress{}
		err := rows.Scan(
			&bp.ID, &bp.Name, &bp.Description, &bp.Category, &bp.CriteriaKind,
			&bp.CriteriaThreshold, &bp.PointsReward, &bp.Tier, &bp.IsActive, &bp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}

		current, err := snapshot.Metric(bp.CriteriaKind)
		if err != nil {
			log.Printf("GetAvailableBadges: skipping badge %s: %v", bp.ID, err)
			continue
		}
		bp.Current = current
		bp.Earned = owned[bp.ID]
		if bp.CriteriaThreshold > 0 {
			bp.Progress = float64(current) / float64(bp.CriteriaThreshold)
			if bp.Progress > 1 {
				bp.Progress = 1
			}
		} else {
			bp.Progress = 1
		}
		result = append(result, bp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badge catalog: %w", err)
	}

	if result == nil {
		result = []*badge.BadgeWithProgress{}
	}
	return result, nil
}

func (s *BadgeService) candidateBadgesTx(ctx context.Context, q DBTX, kinds []badge.CriteriaKind) ([]*badge.Badge, error) {
	kindStrings := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrings[i] = string(k)
	}

	query := `
	SELECT id, name, description, category, criteria_kind, criteria_threshold, points_reward, tier, is_active, created_at
	FROM badges
	WHERE is_active = true AND criteria_kind = ANY($1)
	`
	rows, err := q.Query(ctx, query, kindStrings)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.Badge
	for rows.Next() {
		b := &badge.Badge{}
		err := rows.Scan(
			&b.ID, &b.Name, &b.Description, &b.Category, &b.CriteriaKind,
			&b.CriteriaThreshold, &b.PointsReward, &b.Tier, &b.IsActive, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}
	return badges, nil
}

func (s *BadgeService) ownedBadgeIDsTx(ctx context.Context, q DBTX, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := q.Query(ctx, `SELECT badge_id FROM badge_awards WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch owned badges: %w", err)
	}
	defer rows.Close()

	owned := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge id: %w", err)
		}
		owned[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owned badges: %w", err)
	}
	return owned, nil
}
