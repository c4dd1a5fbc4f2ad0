package model

import "time"

// WheelAreas 生命之轮的标准区域
var WheelAreas = []string{
	"career",
	"finances",
	"health",
	"relationships",
	"personal_growth",
	"recreation",
	"environment",
	"contribution",
}

// WheelScore 某个区域的最新评分，Previous 用于前端展示变化
type WheelScore struct {
	Area       string    `json:"area"`
	Score      int       `json:"score"`
	Previous   *int      `json:"previous,omitempty"`
	AssessedAt time.Time `json:"assessed_at"`
}
