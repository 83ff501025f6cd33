package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/flownlg/internal/plan"
	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region model
// Model is an external sequence-to-sequence generator.
type Model interface {
	Name() string
	Generate(ctx context.Context, input string) (string, error)
}

// #endregion model

// #region request
// Request is one fact set to verbalise. EID, LID and Category are carried
// through to the run record only.
type Request struct {
	EID      string
	LID      string
	Category string
	Triples  triple.TripleSet
}

// #endregion request

// #region results
// PlanResult is the output of the planning half of the pipeline.
type PlanResult struct {
	PlannerInput string
	RawPlan      string
	Repair       plan.Report
	Template     string
}

// Plan returns the repaired plan.
func (p PlanResult) Plan() string {
	return p.Repair.Plan
}

// Result is a completed generation.
type Result struct {
	RunID string
	PlanResult
	Output   string
	Duration time.Duration
}

// BatchItem pairs a batch request's result with its error.
type BatchItem struct {
	Request Request
	Result  Result
	Err     error
}

// #endregion results

// #region stage-error
// StageError reports which pipeline stage aborted a request.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// #endregion stage-error
