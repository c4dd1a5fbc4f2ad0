package model

import "time"

const (
	AssignmentPending = "pending"
	AssignmentDone    = "done"
)

type Task struct {
	ID          int       `json:"id"`
	CoachID     int       `json:"coach_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClientTask 任务对客户的指派
type ClientTask struct {
	ID          int        `json:"id"`
	TaskID      int        `json:"task_id"`
	ClientID    int        `json:"client_id"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// TaskTitle 列表展示用，来自 JOIN
	TaskTitle string `json:"task_title,omitempty"`
}
