package model

import "time"

const (
	NotificationNewMessage   = "new_message"
	NotificationTaskAssigned = "task_assigned"
	NotificationIdeaPromoted = "idea_promoted"
)

type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
