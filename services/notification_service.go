package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnQuestAPI/internal/types/notification"
)

// PushProvider delivers a notification to the user's registered devices.
// FCM is the real implementation; tests plug in a fake.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider wires the push backend in. Without one, notifications stay
// in-app only.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

// Notify records an in-app notification and pushes it to the user's devices.
// Delivery is best-effort: a push failure is logged, never surfaced.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, data map[string]any) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
	RETURNING id, created_at
	`
	notif := &notification.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
	}
	err = s.db.QueryRow(ctx, query, uuid.New(), userID, notifType, title, message, dataJSON).
		Scan(&notif.ID, &notif.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.push != nil {
		tokens, err := s.deviceTokens(ctx, userID)
		if err != nil {
			log.Printf("Notify: failed to load device tokens for %s: %v", userID, err)
			return notif, nil
		}
		if err := s.push.SendPush(ctx, tokens, title, message, data); err != nil {
			log.Printf("Notify: push delivery failed for %s: %v", userID, err)
		}
	}

	return notif, nil
}

// GetNotifications returns a page of the user's notifications, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	whereClause := "WHERE user_id = $1"
	if unreadOnly {
		whereClause += " AND is_read = FALSE"
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := s.db.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		notif := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(&notif.ID, &notif.UserID, &notif.Type, &notif.Title, &notif.Message, &dataJSON, &notif.IsRead, &notif.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			json.Unmarshal(dataJSON, &notif.Data)
		}
		notifications = append(notifications, notif)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*notification.Notification{}
	}

	var unreadCount int
	err = s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID).Scan(&unreadCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, unreadCount, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var unreadCount int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID).Scan(&unreadCount)
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return unreadCount, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	query := `
	UPDATE notifications
	SET is_read = TRUE
	WHERE id = $1 AND user_id = $2 AND is_read = FALSE
	`
	result, err := s.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found or already read")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	_, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

// RegisterDevice stores a push token for the user; re-registering the same
// token just refreshes it.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	if token == "" {
		return fmt.Errorf("device token is required")
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3, updated_at = NOW()
	`
	_, err := s.db.Exec(ctx, query, userID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}
	return tokens, nil
}

// NotifyEventOutcome fans the outcome of a processed event into user-facing
// notifications. Called after the event's transaction committed; errors are
// logged only.
func (s *NotificationService) NotifyEventOutcome(ctx context.Context, outcome *EventOutcome) {
	if outcome == nil {
		return
	}

	if outcome.PointsAwarded > 0 {
		_, err := s.Notify(ctx, outcome.UserID, notification.NotificationPointsAwarded,
			"Points earned",
			fmt.Sprintf("You earned %d points! Your total is now %d.", outcome.PointsAwarded, outcome.NewTotal),
			map[string]any{"points": outcome.PointsAwarded, "total": outcome.NewTotal})
		if err != nil {
			log.Printf("NotifyEventOutcome: points notification failed: %v", err)
		}
	}

	if outcome.StreakMilestoneBonus > 0 {
		_, err := s.Notify(ctx, outcome.UserID, notification.NotificationStreakMilestone,
			fmt.Sprintf("%d-day streak!", outcome.Streak.CurrentStreak),
			fmt.Sprintf("You kept your streak alive for %d days and earned a %d point bonus.", outcome.Streak.CurrentStreak, outcome.StreakMilestoneBonus),
			map[string]any{"streak": outcome.Streak.CurrentStreak, "bonus": outcome.StreakMilestoneBonus})
		if err != nil {
			log.Printf("NotifyEventOutcome: streak notification failed: %v", err)
		}
	}

	for _, earned := range outcome.BadgesEarned {
		_, err := s.Notify(ctx, outcome.UserID, notification.NotificationBadgeEarned,
			"Badge earned",
			fmt.Sprintf("You earned the %s badge!", earned.Name),
			map[string]any{"badge_id": earned.ID.String(), "badge_name": earned.Name, "tier": earned.Tier})
		if err != nil {
			log.Printf("NotifyEventOutcome: badge notification failed: %v", err)
		}
	}

	for _, unlock := range outcome.AchievementsUnlocked {
		_, err := s.Notify(ctx, outcome.UserID, notification.NotificationAchievement,
			"Achievement unlocked",
			fmt.Sprintf("Achievement unlocked: %s", unlock.Kind),
			map[string]any{"kind": string(unlock.Kind)})
		if err != nil {
			log.Printf("NotifyEventOutcome: achievement notification failed: %v", err)
		}
	}
}
