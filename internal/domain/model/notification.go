package model

import (
	"encoding/json"
	"time"
)

const (
	NotificationAchievement     = "achievement"
	NotificationMilestone       = "milestone"
	NotificationStreakMilestone = "streak_milestone"
	NotificationPvPResult       = "pvp_result"
)

type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}
