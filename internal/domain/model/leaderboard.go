package model

type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int64  `json:"total_xp"`
	Tier     string `json:"tier"`
}

// Position is a user's own leaderboard row with the players ranked around it.
type Position struct {
	LeaderboardEntry
	Nearby []LeaderboardEntry `json:"nearby"`
}

// IslandStanding ranks players by the sum of their best scores on one island.
type IslandStanding struct {
	Rank        int64  `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Completed   int    `json:"completed"`
	IslandScore int64  `json:"island_score"`
}

// PvPStanding aggregates completed matches per player.
type PvPStanding struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}
