package eval

import (
	"fmt"

	"github.com/danielpatrickdp/flownlg/internal/plan"
)

// Metric names reported by Run.
const (
	MetricExactMatch    = "exact_match"
	MetricSentenceMatch = "sentence_count_match"
	MetricRepairRate    = "repair_rate"
	MetricRejectRate    = "reject_rate"
	MetricMeanExtra     = "mean_extra"
	MetricMeanMissing   = "mean_missing"
)

// #region eval-harness
// EvalHarness scores planner output against gold plans.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run repairs every raw plan against its fact-set size and compares the
// result with the gold plan. Rejected plans count as mismatches.
func (h *EvalHarness) Run(preds []Prediction) EvalResult {
	if len(preds) == 0 {
		return EvalResult{Reason: "eval failed: no predictions"}
	}

	cases := make([]CaseResult, 0, len(preds))
	var exact, sentMatch, repaired, rejected, extra, missing int
	for _, p := range preds {
		c := scoreCase(p)
		switch {
		case c.Err != nil:
			rejected++
		case c.Repair.Changed():
			repaired++
		}
		if c.Exact {
			exact++
		}
		if c.SentenceMatch {
			sentMatch++
		}
		extra += len(c.Repair.Extra)
		missing += len(c.Repair.Missing)
		cases = append(cases, c)
	}

	n := float32(len(preds))
	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float32, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Exact plan match after repair
	v := float32(exact) / n
	check(MetricExactMatch, v, v >= h.config.MinExactMatch,
		fmt.Sprintf("exact match %.4f below %.4f", v, h.config.MinExactMatch))

	// 2. Sentence count match
	v = float32(sentMatch) / n
	check(MetricSentenceMatch, v, v >= h.config.MinSentenceMatch,
		fmt.Sprintf("sentence count match %.4f below %.4f", v, h.config.MinSentenceMatch))

	// 3. Repair and reject rates
	v = float32(repaired) / n
	check(MetricRepairRate, v, v <= h.config.MaxRepairRate,
		fmt.Sprintf("repair rate %.4f exceeds %.4f", v, h.config.MaxRepairRate))
	v = float32(rejected) / n
	check(MetricRejectRate, v, v <= h.config.MaxRejectRate,
		fmt.Sprintf("reject rate %.4f exceeds %.4f", v, h.config.MaxRejectRate))

	// 4. Token-level damage: informational only
	metrics = append(metrics,
		EvalMetric{Name: MetricMeanExtra, Value: float32(extra) / n, Pass: true},
		EvalMetric{Name: MetricMeanMissing, Value: float32(missing) / n, Pass: true},
	)

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
		Cases:   cases,
	}
}

// #endregion eval-harness

// #region helpers
func scoreCase(p Prediction) CaseResult {
	c := CaseResult{EID: p.EID, LID: p.LID, Gold: p.Gold}
	c.Repair, c.Err = plan.Repair(p.Raw, p.Size)
	if c.Err != nil {
		return c
	}
	c.Exact = c.Repair.Plan == p.Gold
	c.SentenceMatch = sentences(c.Repair.Plan) == sentences(p.Gold)
	return c
}

// sentences counts the sentence groups of p. A plan that does not parse
// has none.
func sentences(p string) int {
	groups, err := plan.Parse(p)
	if err != nil {
		return 0
	}
	return len(groups)
}

// #endregion helpers
