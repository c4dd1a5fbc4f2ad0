package model

import "time"

const (
	IdeaOpen     = "open"
	IdeaPromoted = "promoted"
)

// PlanningGroup 年度规划小组，通过 join_token 邀请参与者
type PlanningGroup struct {
	ID        int       `json:"id"`
	OwnerID   int       `json:"owner_id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	JoinToken string    `json:"join_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PlanningParticipant struct {
	ID          int       `json:"id"`
	GroupID     int       `json:"group_id"`
	UserID      int       `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

type PlanningIdea struct {
	ID            int       `json:"id"`
	GroupID       int       `json:"group_id"`
	ParticipantID int       `json:"participant_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	// 列表展示用
	VoteCount int  `json:"vote_count"`
	MyVote    bool `json:"my_vote"`
}

type PlanningEvent struct {
	ID             int       `json:"id"`
	GroupID        int       `json:"group_id"`
	IdeaID         int       `json:"idea_id"`
	Title          string    `json:"title"`
	ScheduledMonth int       `json:"scheduled_month"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlanningGroupDetail 小组详情（含参与者）
type PlanningGroupDetail struct {
	PlanningGroup
	Participants []PlanningParticipant `json:"participants"`
}
