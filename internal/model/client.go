package model

import "time"

// Client 教练名下的客户档案
// UserID 为空表示该档案未关联平台账号，只是教练自己的记录
type Client struct {
	ID          int       `json:"id"`
	CoachID     int       `json:"coach_id"`
	Identifier  string    `json:"identifier"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Notes       string    `json:"notes"`
	UserID      *int      `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
