package model

const DateLayout = "2006-01-02"

type Streak struct {
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	LastLoginDate string `json:"last_login_date"` // UTC, DateLayout
}

type StreakUpdate struct {
	Streak        int           `json:"streak"`
	LongestStreak int           `json:"longest_streak"`
	XPBonus       int           `json:"xp_bonus"`
	Notification  *Notification `json:"notification,omitempty"`
}
