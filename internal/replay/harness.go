package replay

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/flownlg/internal/logging"
	"github.com/danielpatrickdp/flownlg/internal/plan"
)

// #region types
// ReplayResult captures the outcome of replaying one case through repair and
// render.
type ReplayResult struct {
	CaseID   string
	Action   string // "accept" | "repair" | "reject"
	ErrKind  string // "" | "malformed" | "unknown_symbol"
	Err      error
	Repair   plan.Report
	Template string

	Match    bool
	Mismatch string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCases int
	Accepts    int
	Repairs    int
	Rejects    int
	Mismatches int
}

// #endregion types

// #region replay
// Replay runs every case offline: repair against the case's fact-set size,
// then render with its index map, then compare with the recorded
// expectations. Deterministic and side-effect free.
func Replay(cases []FixtureCase) []ReplayResult {
	results := make([]ReplayResult, 0, len(cases))
	for _, c := range cases {
		r := replayCase(c)
		r.Match, r.Mismatch = compare(c, r)
		results = append(results, r)
	}
	return results
}

func replayCase(c FixtureCase) ReplayResult {
	r := ReplayResult{CaseID: c.ID}

	// 1. Repair
	rep, err := plan.Repair(c.RawPlan, len(c.Triples))
	if err != nil {
		r.Action = logging.DecisionReject
		r.Err = err
		r.ErrKind = errKind(err)
		return r
	}
	r.Repair = rep
	r.Action = logging.DecisionAccept
	if rep.Changed() {
		r.Action = logging.DecisionRepair
	}

	// 2. Render
	tmpl, err := plan.Render(rep.Plan, c.Triples.IndexMap())
	if err != nil {
		r.Action = logging.DecisionReject
		r.Err = err
		r.ErrKind = errKind(err)
		return r
	}
	r.Template = tmpl
	return r
}

func compare(c FixtureCase, r ReplayResult) (bool, string) {
	if r.ErrKind != c.ExpectError {
		return false, fmt.Sprintf("expected error %q, got %q (%v)", c.ExpectError, r.ErrKind, r.Err)
	}
	if c.ExpectError != "" {
		return true, ""
	}
	if c.ExpectedPlan != "" && r.Repair.Plan != c.ExpectedPlan {
		return false, fmt.Sprintf("expected plan %q, got %q", c.ExpectedPlan, r.Repair.Plan)
	}
	if c.ExpectedTemplate != "" && r.Template != c.ExpectedTemplate {
		return false, fmt.Sprintf("expected template %q, got %q", c.ExpectedTemplate, r.Template)
	}
	return true, ""
}

func errKind(err error) string {
	var mpe *plan.MalformedPlanError
	var use *plan.UnknownPlanSymbolError
	switch {
	case errors.As(err, &mpe):
		return ErrKindMalformed
	case errors.As(err, &use):
		return ErrKindUnknownSymbol
	default:
		return "unknown"
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalCases: len(results)}
	for _, r := range results {
		switch r.Action {
		case logging.DecisionAccept:
			s.Accepts++
		case logging.DecisionRepair:
			s.Repairs++
		case logging.DecisionReject:
			s.Rejects++
		}
		if !r.Match {
			s.Mismatches++
		}
	}
	return s
}

// #endregion replay
