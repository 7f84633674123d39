package scoring

import (
	"testing"

	"data_quest/internal/domain/model"
)

func TestCalculateWorkedExamples(t *testing.T) {
	verdict := model.Verdict{Correct: true, CorrectnessScore: 100, QualityScore: 20, PerformanceScore: 30}

	tests := []struct {
		name      string
		timeSpent int
		wantScore int
		wantXP    int
		wantBonus int
	}{
		{"fast solve", 120, 170, 204, 20},
		{"moderate solve", 450, 160, 192, 10},
		{"slow solve", 700, 150, 180, 0},
		{"boundary at 300s gets moderate bonus", 300, 160, 192, 10},
		{"boundary at 600s gets no bonus", 600, 150, 180, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(verdict, tc.timeSpent, 2)
			if got.Score != tc.wantScore || got.XP != tc.wantXP || got.TimeBonus != tc.wantBonus {
				t.Errorf("Calculate() = %+v, want score=%d xp=%d bonus=%d", got, tc.wantScore, tc.wantXP, tc.wantBonus)
			}
		})
	}
}

func TestCalculateNoBonusWhenIncorrect(t *testing.T) {
	v := model.Verdict{Correct: false, CorrectnessScore: 50, QualityScore: 10, PerformanceScore: 10}
	got := Calculate(v, 10, 1)
	if got.TimeBonus != 0 || got.Score != 70 {
		t.Fatalf("Calculate() = %+v, want score 70 without bonus", got)
	}
	if got.XP != 77 {
		t.Errorf("XP = %d, want 77", got.XP)
	}
}

func TestCalculateScoreIsCapped(t *testing.T) {
	v := model.Verdict{Correct: true, CorrectnessScore: 100, QualityScore: 30, PerformanceScore: 50}
	got := Calculate(v, 1, 5)
	if got.Score != MaxScore {
		t.Fatalf("Score = %d, want %d", got.Score, MaxScore)
	}
	if got.XP != 300 {
		t.Errorf("XP = %d, want 300", got.XP)
	}
}

func TestCalculateScoreNeverNegative(t *testing.T) {
	v := model.Verdict{CorrectnessScore: -40}
	if got := Calculate(v, 0, 3); got.Score != 0 || got.XP != 0 {
		t.Fatalf("Calculate() = %+v, want zero score", got)
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	for c := 0; c <= model.MaxCorrectnessScore; c += 10 {
		for q := 0; q <= model.MaxQualityScore; q += 5 {
			for p := 0; p <= model.MaxPerformanceScore; p += 10 {
				for _, correct := range []bool{true, false} {
					v := model.Verdict{Correct: correct, CorrectnessScore: c, QualityScore: q, PerformanceScore: p}
					got := Calculate(v, 0, 5)
					if got.Score < 0 || got.Score > MaxScore {
						t.Fatalf("score %d out of bounds for %+v", got.Score, v)
					}
				}
			}
		}
	}
}

func TestXPMultiplier(t *testing.T) {
	tests := []struct {
		score, difficulty, want int
	}{
		{100, 1, 110},
		{100, 3, 130},
		{100, 5, 150},
		{99, 3, 128},
		{100, 0, 110},
		{100, 9, 150},
	}
	for _, tc := range tests {
		if got := XP(tc.score, tc.difficulty); got != tc.want {
			t.Errorf("XP(%d, %d) = %d, want %d", tc.score, tc.difficulty, got, tc.want)
		}
	}
}
