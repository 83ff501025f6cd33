package replay

import (
	"fmt"

	"github.com/danielpatrickdp/flownlg/internal/metrics"
	"github.com/danielpatrickdp/flownlg/internal/store"
	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region export

// FixtureFromRuns turns recorded runs into regression cases whose
// expectations are the outcomes the pipeline produced at the time. Runs that
// never got a plan from the planner are skipped, as are runs whose planner
// input no longer parses. It returns the number of skipped runs.
func FixtureFromRuns(description string, runs []store.RunRecord) (*Fixture, int, error) {
	f := &Fixture{Description: description}
	skipped := 0
	for _, run := range runs {
		if run.Stage == metrics.StagePlan {
			skipped++
			continue
		}
		triples, err := triple.ParseSet(run.PlannerInput)
		if err != nil || len(triples) != run.Size {
			skipped++
			continue
		}

		c := FixtureCase{
			ID:      run.RunID,
			EID:     run.EID,
			Triples: triples,
			RawPlan: run.RawPlan,
		}
		switch run.Stage {
		case metrics.StageRepair:
			c.ExpectError = ErrKindMalformed
		case metrics.StageRender:
			c.ExpectError = ErrKindUnknownSymbol
		default:
			c.ExpectedPlan = run.Plan
			c.ExpectedTemplate = run.Template
		}
		f.Cases = append(f.Cases, c)
	}
	if len(f.Cases) == 0 {
		return nil, skipped, fmt.Errorf("no replayable runs among %d", len(runs))
	}
	return f, skipped, nil
}

// #endregion export
