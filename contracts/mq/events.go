// Package mq defines the event payloads exchanged between the API service
// and the worker over RabbitMQ. Producers write these through the outbox;
// the worker consumes them by routing key.
package mq

import "time"

const (
	RoutingKeyMessageCreated = "message.created"
	RoutingKeyTaskAssigned   = "task.assigned"
	RoutingKeyIdeaPromoted   = "idea.promoted"
)

// MessageCreatedPayload message.created 事件
type MessageCreatedPayload struct {
	MessageID   int       `json:"message_id"`
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Preview     string    `json:"preview"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskAssignedPayload task.assigned 事件
type TaskAssignedPayload struct {
	AssignmentID int        `json:"assignment_id"`
	TaskID       int        `json:"task_id"`
	ClientID     int        `json:"client_id"`
	CoachID      int        `json:"coach_id"`
	// ClientUserID 为空表示该客户档案未关联平台账号
	ClientUserID *int       `json:"client_user_id,omitempty"`
	Title        string     `json:"title"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// IdeaPromotedPayload idea.promoted 事件
type IdeaPromotedPayload struct {
	EventID        int    `json:"event_id"`
	IdeaID         int    `json:"idea_id"`
	GroupID        int    `json:"group_id"`
	Title          string `json:"title"`
	ScheduledMonth int    `json:"scheduled_month"`
	PromotedBy     int    `json:"promoted_by"`
}
