package eval

import "github.com/danielpatrickdp/flownlg/internal/plan"

// #region eval-config
// EvalConfig holds pass/fail thresholds for a planner evaluation.
type EvalConfig struct {
	MinExactMatch    float32 // fail if fewer repaired plans equal the gold plan
	MinSentenceMatch float32 // fail if fewer plans have the gold sentence count
	MaxRepairRate    float32 // fail if more raw plans needed repair
	MaxRejectRate    float32 // fail if more raw plans had no marker at all
}

// DefaultEvalConfig returns thresholds suited to a freshly trained planner.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinExactMatch:    0.3,
		MinSentenceMatch: 0.5,
		MaxRepairRate:    0.5,
		MaxRejectRate:    0.05,
	}
}

// #endregion eval-config

// #region prediction
// Prediction is one raw planner output paired with the gold plan for the
// same lexicalisation.
type Prediction struct {
	EID  string
	LID  string
	Size int
	Gold string
	Raw  string
}

// #endregion prediction

// #region eval-metric
// EvalMetric captures a single aggregate check.
type EvalMetric struct {
	Name  string
	Value float32
	Pass  bool
}

// #endregion eval-metric

// #region case-result
// CaseResult is the per-prediction outcome.
type CaseResult struct {
	EID           string
	LID           string
	Gold          string
	Repair        plan.Report
	Err           error
	Exact         bool
	SentenceMatch bool
}

// #endregion case-result

// #region eval-result
// EvalResult is the output of an evaluation run.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
	Cases   []CaseResult
}

// Metric returns the named metric and whether it exists.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
