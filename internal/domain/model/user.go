package model

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	TotalXP        int64     `json:"total_xp"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	TierDataApprentice  = "Data Apprentice"
	TierPipelineBuilder = "Pipeline Builder"
	TierCodeSorcerer    = "Code Sorcerer"
	TierDataMaster      = "Data Master"
)

// TierBand is the XP range [MinXP, MaxXP) of a tier. MaxXP is 0 for the top tier.
type TierBand struct {
	Name  string `json:"name"`
	MinXP int64  `json:"min_xp"`
	MaxXP int64  `json:"max_xp,omitempty"`
}

// Tiers is ordered from lowest to highest.
var Tiers = []TierBand{
	{Name: TierDataApprentice, MinXP: 0, MaxXP: 2000},
	{Name: TierPipelineBuilder, MinXP: 2000, MaxXP: 5000},
	{Name: TierCodeSorcerer, MinXP: 5000, MaxXP: 10000},
	{Name: TierDataMaster, MinXP: 10000},
}

// Tier derives the rank label from total XP.
func Tier(totalXP int64) string {
	for i := len(Tiers) - 1; i > 0; i-- {
		if totalXP >= Tiers[i].MinXP {
			return Tiers[i].Name
		}
	}
	return Tiers[0].Name
}

// LookupTier accepts a tier name in any case, or its dashed form
// ("code-sorcerer").
func LookupTier(name string) (TierBand, bool) {
	want := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", " "))
	for _, t := range Tiers {
		if strings.ToLower(t.Name) == want {
			return t, true
		}
	}
	return TierBand{}, false
}

// UserXP is the projection used to rebuild the leaderboard.
type UserXP struct {
	UserID   string
	Username string
	TotalXP  int64
}

type ProfileStats struct {
	CompletedChallenges int     `json:"completed_challenges"`
	AttemptedChallenges int     `json:"attempted_challenges"`
	TotalScore          int64   `json:"total_score"`
	AvgScore            float64 `json:"avg_score"`
}

// UserProfile is what a user sees about themselves. Rank is 0 until the user
// reaches the leaderboard.
type UserProfile struct {
	User
	Tier         string        `json:"tier"`
	Rank         int64         `json:"rank"`
	Stats        ProfileStats  `json:"stats"`
	Streak       Streak        `json:"streak"`
	Achievements []Achievement `json:"achievements"`
}

// PublicProfile is what other players see.
type PublicProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Tier      string    `json:"tier"`
	TotalXP   int64     `json:"total_xp"`
	CreatedAt time.Time `json:"created_at"`
}
