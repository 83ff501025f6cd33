package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/corpus"
	"github.com/danielpatrickdp/flownlg/internal/eval"
	"github.com/danielpatrickdp/flownlg/internal/metrics"
	"github.com/danielpatrickdp/flownlg/internal/orchestrator"
)

// #region command
func newEvalCmd(a *app) *cobra.Command {
	var (
		predictionsPath string
		limit           int
		evalCfg         = eval.DefaultEvalConfig()
	)
	cmd := &cobra.Command{
		Use:   "eval <corpus-dir>",
		Short: "Score planner output against the corpus gold plans",
		Long: `eval compares planner output with the gold plans of every lexicalisation in
a corpus split. Without --predictions the planner is queried live through the
model service; with it, raw plans are read from a JSONL file of
{"eid", "lid", "raw_plan"} objects.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := corpus.ReadDir(args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			var preds []eval.Prediction
			if predictionsPath != "" {
				preds, err = offlinePredictions(entries, predictionsPath)
			} else {
				preds, err = a.livePredictions(cmd, entries)
			}
			if err != nil {
				return err
			}

			result := eval.NewEvalHarness(evalCfg).Run(preds)
			printEval(cmd.OutOrStdout(), len(preds), result)
			if !result.Passed {
				return errors.New(result.Reason)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&predictionsPath, "predictions", "", "JSONL file of recorded raw plans")
	f.IntVar(&limit, "limit", 0, "evaluate at most N entries (0 = all)")
	f.Float32Var(&evalCfg.MinExactMatch, "min-exact-match", evalCfg.MinExactMatch, "minimum exact plan match rate")
	f.Float32Var(&evalCfg.MinSentenceMatch, "min-sentence-match", evalCfg.MinSentenceMatch, "minimum sentence count match rate")
	f.Float32Var(&evalCfg.MaxRepairRate, "max-repair-rate", evalCfg.MaxRepairRate, "maximum share of plans needing repair")
	f.Float32Var(&evalCfg.MaxRejectRate, "max-reject-rate", evalCfg.MaxRejectRate, "maximum share of plans without a marker")
	return cmd
}

// #endregion command

// #region predictions
type predictionLine struct {
	EID     string `json:"eid"`
	LID     string `json:"lid"`
	RawPlan string `json:"raw_plan"`
}

func offlinePredictions(entries []corpus.Entry, path string) ([]eval.Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	raw := make(map[string]string)
	dec := json.NewDecoder(f)
	for {
		var line predictionLine
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		raw[line.EID+"/"+line.LID] = line.RawPlan
	}

	var preds []eval.Prediction
	for _, e := range entries {
		for _, ex := range corpus.Examples(e) {
			r, ok := raw[ex.EID+"/"+ex.LID]
			if !ok {
				continue
			}
			preds = append(preds, eval.Prediction{EID: ex.EID, LID: ex.LID, Size: len(ex.Triples), Gold: ex.Plan, Raw: r})
		}
	}
	return preds, nil
}

// livePredictions plans each entry once and scores that plan against every
// lexicalisation's gold plan.
func (a *app) livePredictions(cmd *cobra.Command, entries []corpus.Entry) ([]eval.Prediction, error) {
	p, err := a.openPipeline(false)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var preds []eval.Prediction
	for _, e := range entries {
		res, err := p.gen.GeneratePlan(cmd.Context(), e.ModifiedTripleSet)
		var se *orchestrator.StageError
		if errors.As(err, &se) && se.Stage == metrics.StagePlan {
			a.log.Warn("planner failed", "eid", e.EID, "error", err)
			continue
		}
		for _, ex := range corpus.Examples(e) {
			preds = append(preds, eval.Prediction{EID: ex.EID, LID: ex.LID, Size: len(ex.Triples), Gold: ex.Plan, Raw: res.RawPlan})
		}
	}
	return preds, nil
}

// #endregion predictions

// #region output
func printEval(w io.Writer, n int, r eval.EvalResult) {
	fmt.Fprintf(w, "Predictions: %d\n\n", n)
	fmt.Fprintf(w, "%-22s  %8s  %s\n", "Metric", "Value", "Pass")
	fmt.Fprintf(w, "%-22s+-%8s+-%s\n", "----------------------", "--------", "----")
	for _, m := range r.Metrics {
		fmt.Fprintf(w, "%-22s  %8.4f  %v\n", m.Name, m.Value, m.Pass)
	}
	fmt.Fprintf(w, "\n%s\n", r.Reason)
}

// #endregion output
