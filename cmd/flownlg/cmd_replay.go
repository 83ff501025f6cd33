package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/replay"
	"github.com/danielpatrickdp/flownlg/internal/store"
)

// #region command

func newReplayCmd(a *app) *cobra.Command {
	var (
		fixturePath string
		fromDB      bool
		last        int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded planner outputs through repair and render offline",
		Example: `  flownlg replay --fixture testdata/planner_outputs.json
  flownlg replay --from-db --db flownlg.db --last 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (fixturePath == "") == !fromDB {
				return fmt.Errorf("exactly one of --fixture or --from-db is required")
			}

			var (
				f   *replay.Fixture
				err error
			)
			if fixturePath != "" {
				f, err = replay.LoadFixture(fixturePath)
			} else {
				f, err = a.fixtureFromDB(last)
			}
			if err != nil {
				return err
			}

			results := replay.Replay(f.Cases)
			summary := replay.Summarize(results)
			printReplay(cmd.OutOrStdout(), f.Description, results, summary)
			if summary.Mismatches > 0 {
				return fmt.Errorf("%d of %d cases drifted", summary.Mismatches, summary.TotalCases)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&fixturePath, "fixture", "", "path to fixture JSON (fixture mode)")
	f.BoolVar(&fromDB, "from-db", false, "replay the most recent recorded runs (DB mode)")
	f.IntVar(&last, "last", 20, "number of recent runs to replay in DB mode")
	return cmd
}

// #endregion command

// #region db-extract

func (a *app) fixtureFromDB(last int) (*replay.Fixture, error) {
	st, err := store.NewStore(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	runs, err := st.ListRuns(last)
	if err != nil {
		return nil, err
	}
	f, skipped, err := replay.FixtureFromRuns("runs from "+a.cfg.DBPath, runs)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		a.log.Warn("skipped runs without a replayable plan", "skipped", skipped)
	}
	return f, nil
}

// #endregion db-extract

// #region output

func printReplay(w io.Writer, description string, results []replay.ReplayResult, s replay.ReplaySummary) {
	if description != "" {
		fmt.Fprintf(w, "%s\n\n", description)
	}
	fmt.Fprintf(w, "%-24s  %-8s  %-5s  %s\n", "Case", "Action", "Match", "Plan / Detail")
	fmt.Fprintf(w, "%-24s+-%-8s+-%-5s+-%s\n", "------------------------", "--------", "-----", "-------------")
	for _, r := range results {
		detail := r.Repair.Plan
		if r.Err != nil {
			detail = r.Err.Error()
		}
		if !r.Match {
			detail = r.Mismatch
		}
		fmt.Fprintf(w, "%-24s  %-8s  %-5v  %s\n", truncate(r.CaseID, 24), r.Action, r.Match, detail)
	}
	fmt.Fprintf(w, "\nTotal: %d | Accept: %d | Repair: %d | Reject: %d | Mismatch: %d\n",
		s.TotalCases, s.Accepts, s.Repairs, s.Rejects, s.Mismatches)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// #endregion output
