package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/corpus"
	"github.com/danielpatrickdp/flownlg/internal/orchestrator"
	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region command
func newGenerateCmd(a *app) *cobra.Command {
	var (
		corpusDir   string
		facts       []string
		limit       int
		outPath     string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Verbalise fact sets through the planner and realizer",
		Example: `  flownlg generate --corpus data/test --out outputs.jsonl
  flownlg generate --fact "Aarhus_Airport | cityServed | Aarhus" --fact "Aarhus | country | Denmark"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (corpusDir == "") == (len(facts) == 0) {
				return fmt.Errorf("exactly one of --corpus or --fact is required")
			}
			reqs, err := buildRequests(corpusDir, facts, limit)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Concurrency = concurrency
			}
			return a.runGenerate(cmd, reqs, outPath)
		},
	}

	f := cmd.Flags()
	f.StringVar(&corpusDir, "corpus", "", "corpus split directory (<dir>/<size>/<category>.xml)")
	f.StringArrayVar(&facts, "fact", nil, `one fact as "subject | predicate | object" (repeatable)`)
	f.IntVar(&limit, "limit", 0, "generate at most N entries (0 = all)")
	f.StringVar(&outPath, "out", "", "write JSONL results here instead of stdout")
	f.IntVar(&concurrency, "concurrency", 1, "requests in flight")
	return cmd
}

// #endregion command

// #region requests
func buildRequests(corpusDir string, facts []string, limit int) ([]orchestrator.Request, error) {
	if len(facts) > 0 {
		ts := make(triple.TripleSet, 0, len(facts))
		for _, raw := range facts {
			t, err := corpus.ParseTriple(raw)
			if err != nil {
				return nil, err
			}
			ts = append(ts, t)
		}
		return []orchestrator.Request{{Triples: ts}}, nil
	}

	entries, err := corpus.ReadDir(corpusDir)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	reqs := make([]orchestrator.Request, len(entries))
	for i, e := range entries {
		reqs[i] = orchestrator.Request{EID: e.EID, Category: e.Category, Triples: e.ModifiedTripleSet}
	}
	return reqs, nil
}

// #endregion requests

// #region run
type generateLine struct {
	RunID    string `json:"run_id"`
	EID      string `json:"eid,omitempty"`
	Category string `json:"category,omitempty"`
	RawPlan  string `json:"raw_plan,omitempty"`
	Plan     string `json:"plan,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (a *app) runGenerate(cmd *cobra.Command, reqs []orchestrator.Request, outPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, err := a.openPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	if a.cfg.MetricsAddr != "" {
		shutdown := a.serveMetrics(a.cfg.MetricsAddr, p.metrics)
		defer shutdown()
	}

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	a.log.Info("generating", "requests", len(reqs), "concurrency", a.cfg.Concurrency)
	items, batchErr := p.gen.GenerateBatch(ctx, reqs, a.cfg.Concurrency)

	enc := json.NewEncoder(out)
	failed := 0
	for _, it := range items {
		line := generateLine{
			RunID:    it.Result.RunID,
			EID:      it.Request.EID,
			Category: it.Request.Category,
			RawPlan:  it.Result.RawPlan,
			Plan:     it.Result.Plan(),
			Output:   it.Result.Output,
		}
		if it.Err != nil {
			line.Error = it.Err.Error()
			failed++
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	a.log.Info("generation finished", "total", len(items), "failed", failed)
	return batchErr
}

// #endregion run
