// Package badge holds the achievement and milestone catalogs and the single
// evaluator that decides whether a rule is satisfied by a user's snapshot.
package badge

import "data_quest/internal/domain/model"

type Kind string

const (
	KindXPThreshold     Kind = "xp_threshold"
	KindStreakThreshold Kind = "streak_threshold"
	KindCountThreshold  Kind = "count_threshold"
	KindCustom          Kind = "custom"
)

// Metric names the progress counter a count_threshold rule compares.
type Metric string

const (
	MetricCompleted  Metric = "completed"
	MetricPerfect    Metric = "perfect"
	MetricFastSolves Metric = "fast_solves"
)

// Snapshot is everything a rule may look at for one user.
type Snapshot struct {
	TotalXP       int64
	CurrentStreak int
	Progress      model.ProgressStats
}

func (s Snapshot) count(m Metric) int {
	switch m {
	case MetricCompleted:
		return s.Progress.Completed
	case MetricPerfect:
		return s.Progress.Perfect
	case MetricFastSolves:
		return s.Progress.FastSolves
	}
	return 0
}

// IslandComplete reports whether every challenge on the island is completed.
// An island with no challenges is never complete.
func (s Snapshot) IslandComplete(island string) bool {
	total := s.Progress.TotalByIsle[island]
	return total > 0 && s.Progress.CompletedByIsle[island] >= total
}

type Rule struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Kind        Kind
	Metric      Metric
	Threshold   int64
	XPReward    int
	Custom      func(Snapshot) bool
}

// Evaluate is the only place rule kinds are interpreted.
func Evaluate(r Rule, s Snapshot) bool {
	switch r.Kind {
	case KindXPThreshold:
		return s.TotalXP >= r.Threshold
	case KindStreakThreshold:
		return int64(s.CurrentStreak) >= r.Threshold
	case KindCountThreshold:
		return int64(s.count(r.Metric)) >= r.Threshold
	case KindCustom:
		return r.Custom != nil && r.Custom(s)
	}
	return false
}

// Presentation renders a rule for a user, with the unlock time when owned.
func (r Rule) Presentation(unlocked map[string]model.Badge) model.Badge {
	if b, ok := unlocked[r.ID]; ok {
		return b
	}
	return model.Badge{ID: r.ID, Name: r.Name, Description: r.Description, Icon: r.Icon, XPReward: r.XPReward}
}
