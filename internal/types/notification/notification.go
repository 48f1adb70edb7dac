package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationPointsAwarded   NotificationType = "points_awarded"
	NotificationBadgeEarned     NotificationType = "badge_earned"
	NotificationAchievement     NotificationType = "achievement"
	NotificationStreakMilestone NotificationType = "streak_milestone"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      map[string]any   `json:"data" db:"data"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
}
