package model

import "encoding/json"

const (
	IslandSQLShore        = "sql_shore"
	IslandPythonPeninsula = "python_peninsula"
)

// Domain selects the grading prompt for a challenge.
type Domain string

const (
	DomainSQL    Domain = "sql"
	DomainPython Domain = "python"
)

type Challenge struct {
	ID             string          `json:"id"`
	IslandID       string          `json:"island_id"`
	SectionID      string          `json:"section_id"`
	OrderIndex     int             `json:"order_index"`
	Title          string          `json:"title"`
	StoryContext   string          `json:"story_context"`
	Description    string          `json:"description"`
	Difficulty     int             `json:"difficulty"`
	ExpectedOutput ExpectedOutput  `json:"expected_output"`
	Datasets       json.RawMessage `json:"datasets,omitempty"`
	Hints          []Hint          `json:"-"` // served one level at a time
	TimeEstimate   int             `json:"time_estimate"`
	XPReward       int             `json:"xp_reward"`
}

// ExpectedOutput describes what a correct result set looks like.
type ExpectedOutput struct {
	RequiredColumns []string `json:"required_columns,omitempty"`
	MinRows         *int     `json:"min_rows,omitempty"`
	ExactRows       *int     `json:"exact_rows,omitempty"`
	RequiresJoin    bool     `json:"requires_join,omitempty"`
}

type Hint struct {
	Level int    `json:"level"`
	Text  string `json:"hint"`
	Cost  int    `json:"cost"`
}

func (c *Challenge) Domain() Domain {
	if c.IslandID == IslandSQLShore {
		return DomainSQL
	}
	return DomainPython
}

// HintForLevel returns the seeded hint for level, or the highest one below it.
func (c *Challenge) HintForLevel(level int) (Hint, bool) {
	var best Hint
	found := false
	for _, h := range c.Hints {
		if h.Level <= level && (!found || h.Level > best.Level) {
			best = h
			found = true
		}
	}
	return best, found
}

// ChallengeWithProgress is a challenge joined with the caller's progress row.
type ChallengeWithProgress struct {
	Challenge
	Completed bool `json:"completed"`
	Score     *int `json:"score,omitempty"`
	BestScore *int `json:"best_score,omitempty"`
}
