package grader

import (
	"context"
	"encoding/json"
	"testing"

	"data_quest/internal/domain/model"
)

func TestFallbackGrade(t *testing.T) {
	plain := &model.Challenge{ID: "sql-1", IslandID: model.IslandSQLShore, Description: "List the crew names."}
	allColumns := &model.Challenge{ID: "sql-2", IslandID: model.IslandSQLShore, Description: "Return all columns of the ships table."}
	create := &model.Challenge{ID: "sql-3", IslandID: model.IslandSQLShore, Description: "Create a view and select from it."}

	tests := []struct {
		name            string
		challenge       *model.Challenge
		code            string
		output          string
		wantCorrect     bool
		wantCorrectness int
		wantQuality     int
		wantPerformance int
	}{
		{"empty code and no output", plain, "", "", false, 30, 0, 0},
		{"code without output", plain, "SELECT name FROM crew", "", false, 30, 0, 0},
		{"empty result array", plain, "SELECT name FROM crew", "[]", false, 30, 0, 0},
		{"rows with explicit columns", plain, "select name from crew", `[{"name":"Ada"}]`, true, 70, 20, 30},
		{"wildcard select", plain, "SELECT * FROM crew", `[{"name":"Ada"}]`, true, 70, 20, 15},
		{"wildcard allowed for all columns", allColumns, "SELECT * FROM ships", `[{"id":1}]`, true, 70, 20, 30},
		{"object output has no rows", plain, "SELECT name FROM crew", `{"error":"syntax"}`, false, 30, 20, 30},
		{"select without from on create challenge", create, "SELECT 1", `[{"?column?":1}]`, true, 70, 20, 30},
		{"no select statement", plain, "UPDATE crew SET rank = 1", `[{"rows":1}]`, true, 70, 0, 30},
		{"whitespace code", plain, "   \n", `[{"name":"Ada"}]`, false, 30, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Fallback{}.Grade(context.Background(), Submission{
				Challenge: tc.challenge,
				Code:      tc.code,
				Output:    json.RawMessage(tc.output),
			})
			if err != nil {
				t.Fatalf("Grade: %v", err)
			}
			if v.Correct != tc.wantCorrect || v.CorrectnessScore != tc.wantCorrectness ||
				v.QualityScore != tc.wantQuality || v.PerformanceScore != tc.wantPerformance {
				t.Errorf("Grade() = correct=%v %d/%d/%d, want correct=%v %d/%d/%d",
					v.Correct, v.CorrectnessScore, v.QualityScore, v.PerformanceScore,
					tc.wantCorrect, tc.wantCorrectness, tc.wantQuality, tc.wantPerformance)
			}
			if err := v.Validate(); err != nil {
				t.Errorf("fallback produced invalid verdict: %v", err)
			}
		})
	}
}

func TestFallbackFeedback(t *testing.T) {
	ch := &model.Challenge{ID: "sql-1", IslandID: model.IslandSQLShore, Description: "List names."}

	pass, _ := Fallback{}.Grade(context.Background(), Submission{Challenge: ch, Code: "SELECT name FROM crew", Output: json.RawMessage(`[{"name":"Ada"}]`)})
	if pass.Feedback.Correctness != "Your query produces output!" || pass.Encouragement != "Great job! Keep going!" {
		t.Errorf("unexpected passing feedback: %+v", pass)
	}
	if len(pass.Hints) != 0 {
		t.Errorf("passing verdict should carry no hints, got %v", pass.Hints)
	}

	fail, _ := Fallback{}.Grade(context.Background(), Submission{Challenge: ch})
	if fail.Feedback.Quality != "Consider improving SQL structure." {
		t.Errorf("Quality feedback = %q", fail.Feedback.Quality)
	}
	if fail.Feedback.Performance != "Consider being more specific with column selection." {
		t.Errorf("Performance feedback = %q", fail.Feedback.Performance)
	}
	if len(fail.Hints) != 2 {
		t.Errorf("failing verdict hints = %v, want 2", fail.Hints)
	}
}

func TestFallbackHint(t *testing.T) {
	ch := &model.Challenge{ID: "sql-1", Hints: []model.Hint{
		{Level: 1, Text: "Look at the SELECT clause", Cost: 0},
		{Level: 2, Text: "Filter with WHERE", Cost: 10},
	}}

	h, err := Fallback{}.Hint(context.Background(), ch, "", 3)
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if h.Level != 2 || h.Cost != 10 {
		t.Errorf("Hint(3) = %+v, want the level 2 hint", h)
	}

	h, _ = Fallback{}.Hint(context.Background(), &model.Challenge{ID: "bare"}, "", 1)
	if h.Text == "" || h.Level != 1 {
		t.Errorf("Hint without seeded hints = %+v", h)
	}
}
