// Package scoring turns a verdict into a bounded score and an XP award.
package scoring

import "data_quest/internal/domain/model"

const (
	MaxScore = 200

	fastBonus     = 20
	fastLimit     = 300 // seconds
	moderateBonus = 10
	moderateLimit = 600
)

type Result struct {
	Score     int `json:"score"`
	XP        int `json:"xp"`
	TimeBonus int `json:"time_bonus"`
}

// Calculate scores one verdict. XP is derived from the capped score.
func Calculate(v model.Verdict, timeSpentSeconds, difficulty int) Result {
	bonus := TimeBonus(v.Correct, timeSpentSeconds)
	score := clamp(v.CorrectnessScore+v.QualityScore+v.PerformanceScore+bonus, 0, MaxScore)
	return Result{Score: score, XP: XP(score, difficulty), TimeBonus: bonus}
}

// TimeBonus rewards fast correct answers only.
func TimeBonus(correct bool, timeSpentSeconds int) int {
	if !correct {
		return 0
	}
	switch {
	case timeSpentSeconds < fastLimit:
		return fastBonus
	case timeSpentSeconds < moderateLimit:
		return moderateBonus
	default:
		return 0
	}
}

// XP is floor(score * (1 + difficulty*0.1)), kept in integer arithmetic.
func XP(score, difficulty int) int {
	d := clamp(difficulty, 1, 5)
	return score * (10 + d) / 10
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
