package badge

import "data_quest/internal/domain/model"

// Achievements is evaluated in order; the order is also the display order.
var Achievements = []Rule{
	{ID: "first_query", Name: "First Query", Description: "Complete your first SQL challenge", Icon: "target",
		Kind: KindCountThreshold, Metric: MetricCompleted, Threshold: 1},
	{ID: "sql_novice", Name: "SQL Novice", Description: "Complete 3 SQL challenges", Icon: "database",
		Kind: KindCountThreshold, Metric: MetricCompleted, Threshold: 3},
	{ID: "streak_5", Name: "5-Day Streak", Description: "Maintain a 5-day login streak", Icon: "flame",
		Kind: KindStreakThreshold, Threshold: 5},
	{ID: "streak_30", Name: "Month Champion", Description: "Maintain a 30-day login streak", Icon: "flame",
		Kind: KindStreakThreshold, Threshold: 30},
	{ID: "perfectionist", Name: "Perfectionist", Description: "Complete 10 challenges with perfect score", Icon: "award",
		Kind: KindCountThreshold, Metric: MetricPerfect, Threshold: 10},
	{ID: "speed_demon", Name: "Speed Demon", Description: "Complete a challenge in under 60 seconds", Icon: "zap",
		Kind: KindCountThreshold, Metric: MetricFastSolves, Threshold: 1},
	{ID: "island_master", Name: "Island Master", Description: "Complete all challenges in an island", Icon: "map",
		Kind: KindCustom, Custom: anyIslandComplete},
	{ID: "python_master", Name: "Python Master", Description: "Complete all Python Peninsula challenges", Icon: "file-code",
		Kind: KindCustom, Custom: func(s Snapshot) bool { return s.IslandComplete(model.IslandPythonPeninsula) }},
	{ID: "xp_1000", Name: "XP Warrior", Description: "Reach 1000 total XP", Icon: "star",
		Kind: KindXPThreshold, Threshold: 1000},
	{ID: "xp_5000", Name: "XP Legend", Description: "Reach 5000 total XP", Icon: "trophy",
		Kind: KindXPThreshold, Threshold: 5000},
}

// Milestones credit XPReward once when reached.
var Milestones = []Rule{
	{ID: "challenges_5", Name: "Getting Started", Description: "Complete 5 challenges", Icon: "flag",
		Kind: KindCountThreshold, Metric: MetricCompleted, Threshold: 5, XPReward: 50},
	{ID: "challenges_25", Name: "Seasoned Explorer", Description: "Complete 25 challenges", Icon: "compass",
		Kind: KindCountThreshold, Metric: MetricCompleted, Threshold: 25, XPReward: 250},
	{ID: "streak_7", Name: "Week Warrior", Description: "Log in 7 days in a row", Icon: "calendar",
		Kind: KindStreakThreshold, Threshold: 7, XPReward: 70},
	{ID: "streak_30", Name: "Unbreakable", Description: "Log in 30 days in a row", Icon: "calendar",
		Kind: KindStreakThreshold, Threshold: 30, XPReward: 300},
	{ID: "xp_2500", Name: "Rising Star", Description: "Reach 2500 total XP", Icon: "star",
		Kind: KindXPThreshold, Threshold: 2500, XPReward: 100},
	{ID: "xp_10000", Name: "Data Legend", Description: "Reach 10000 total XP", Icon: "crown",
		Kind: KindXPThreshold, Threshold: 10000, XPReward: 500},
}

func anyIslandComplete(s Snapshot) bool {
	for island := range s.Progress.TotalByIsle {
		if s.IslandComplete(island) {
			return true
		}
	}
	return false
}

// Lookup finds a rule by id in catalog.
func Lookup(catalog []Rule, id string) (Rule, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
