package model

import "time"

type UserProgress struct {
	UserID      string     `json:"user_id"`
	ChallengeID string     `json:"challenge_id"`
	Completed   bool       `json:"completed"`
	Score       int        `json:"score"`
	BestScore   int        `json:"best_score"`
	Attempts    int        `json:"attempts"`
	BestTime    *int       `json:"best_time,omitempty"` // seconds
	LastCode    string     `json:"last_code"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProgressStats feeds the badge evaluator and the profile summary.
type ProgressStats struct {
	Completed       int
	Attempted       int
	Perfect         int // best_score >= PerfectScore
	FastSolves      int // best_time < FastSolveSeconds
	TotalBestScore  int64
	AvgBestScore    float64
	CompletedByIsle map[string]int
	TotalByIsle     map[string]int
}

// ProgressEntry is a progress row with the challenge it belongs to.
type ProgressEntry struct {
	UserProgress
	IslandID   string `json:"island_id"`
	SectionID  string `json:"section_id"`
	Title      string `json:"title"`
	Difficulty int    `json:"difficulty"`
}

type IslandProgress struct {
	Completed  int             `json:"completed"`
	Attempted  int             `json:"attempted"`
	Challenges []ProgressEntry `json:"challenges"`
}

type ProgressReport struct {
	Progress []ProgressEntry            `json:"progress"`
	ByIsland map[string]*IslandProgress `json:"by_island"`
}

const (
	PerfectScore     = 100
	FastSolveSeconds = 60
)
