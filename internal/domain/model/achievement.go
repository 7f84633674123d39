package model

import "time"

type Achievement struct {
	UserID     string    `json:"user_id"`
	BadgeID    string    `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

type UserMilestone struct {
	UserID      string    `json:"user_id"`
	MilestoneID string    `json:"milestone_id"`
	AchievedAt  time.Time `json:"achieved_at"`
}

// Badge is the presentation of a catalog entry for one user.
type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	XPReward    int        `json:"xp_reward,omitempty"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}
