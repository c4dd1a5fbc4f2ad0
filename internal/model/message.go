package model

import "time"

type Message struct {
	ID          int       `json:"id"`
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Body        string    `json:"body"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnreadCount 某个对话方向上的未读数
type UnreadCount struct {
	PeerID int   `json:"peer_id"`
	Count  int64 `json:"count"`
}
