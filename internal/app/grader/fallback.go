package grader

import (
	"context"
	"encoding/json"
	"strings"

	"data_quest/internal/domain/model"
)

// Fallback is a deterministic heuristic used when no remote grader is
// configured. Its scoring is kept deliberately simple and stable.
type Fallback struct{}

const (
	fallbackRowsScore      = 70
	fallbackBaselineScore  = 30
	fallbackQualityScore   = 20
	fallbackEfficientScore = 30
	fallbackWildcardScore  = 15
	passingCorrectness     = 60
)

func (Fallback) Grade(_ context.Context, sub Submission) (*model.Verdict, error) {
	hasCode := strings.TrimSpace(sub.Code) != ""
	rows, hasOutput := inspectOutput(sub.Output)

	correctness := fallbackBaselineScore
	quality, performance := 0, 0

	if hasCode && hasOutput {
		if rows > 0 {
			correctness = fallbackRowsScore
		}

		upper := strings.ToUpper(sub.Code)
		description := sub.Challenge.Description
		if strings.Contains(upper, "SELECT") &&
			(strings.Contains(upper, "FROM") || strings.Contains(strings.ToLower(description), "create")) {
			quality = fallbackQualityScore
		}

		if !strings.Contains(upper, "SELECT *") || strings.Contains(description, "all columns") {
			performance = fallbackEfficientScore
		} else {
			performance = fallbackWildcardScore
		}
	}

	correct := correctness >= passingCorrectness
	v := &model.Verdict{
		Correct:          correct,
		CorrectnessScore: correctness,
		QualityScore:     quality,
		PerformanceScore: performance,
		Hints:            []string{},
	}

	if correct {
		v.Feedback.Correctness = "Your query produces output!"
		v.Encouragement = "Great job! Keep going!"
	} else {
		v.Feedback.Correctness = "Query may need adjustments."
		v.Hints = []string{"Review the challenge requirements", "Check your WHERE clause"}
		v.Encouragement = "Keep trying, you're making progress!"
	}
	if quality >= 15 {
		v.Feedback.Quality = "Good SQL structure."
	} else {
		v.Feedback.Quality = "Consider improving SQL structure."
	}
	if performance >= 25 {
		v.Feedback.Performance = "Efficient query."
	} else {
		v.Feedback.Performance = "Consider being more specific with column selection."
	}
	return v, nil
}

// Hint serves the seeded hint for the requested level.
func (Fallback) Hint(_ context.Context, challenge *model.Challenge, _ string, level int) (*model.Hint, error) {
	if h, ok := challenge.HintForLevel(level); ok {
		return &h, nil
	}
	return &model.Hint{Level: level, Text: "Review the challenge requirements and compare your output with the expected columns."}, nil
}

// inspectOutput reports the row count of an executed result and whether it
// carried anything at all. Objects count as output without rows.
func inspectOutput(raw json.RawMessage) (rows int, hasOutput bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return 0, false
	}
	switch out := decoded.(type) {
	case []interface{}:
		return len(out), len(out) > 0
	case map[string]interface{}:
		return 0, len(out) > 0
	default:
		return 0, false
	}
}
