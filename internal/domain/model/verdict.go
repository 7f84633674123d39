package model

import "fmt"

const (
	MaxCorrectnessScore = 100
	MaxQualityScore     = 30
	MaxPerformanceScore = 50
)

// Verdict is the structured judgment for one submission.
type Verdict struct {
	Correct          bool     `json:"correct"`
	CorrectnessScore int      `json:"correctnessScore"`
	QualityScore     int      `json:"qualityScore"`
	PerformanceScore int      `json:"performanceScore"`
	Feedback         Feedback `json:"feedback"`
	Hints            []string `json:"hints"`
	Encouragement    string   `json:"encouragement"`
}

type Feedback struct {
	Correctness string `json:"correctness"`
	Quality     string `json:"quality"`
	Performance string `json:"performance"`
}

// Validate rejects scores outside their documented ranges.
func (v *Verdict) Validate() error {
	if v.CorrectnessScore < 0 || v.CorrectnessScore > MaxCorrectnessScore {
		return fmt.Errorf("correctnessScore %d out of range [0,%d]", v.CorrectnessScore, MaxCorrectnessScore)
	}
	if v.QualityScore < 0 || v.QualityScore > MaxQualityScore {
		return fmt.Errorf("qualityScore %d out of range [0,%d]", v.QualityScore, MaxQualityScore)
	}
	if v.PerformanceScore < 0 || v.PerformanceScore > MaxPerformanceScore {
		return fmt.Errorf("performanceScore %d out of range [0,%d]", v.PerformanceScore, MaxPerformanceScore)
	}
	return nil
}
