package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/store"
)

// #region command

func newInspectCmd(a *app) *cobra.Command {
	var (
		last    int
		runID   string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recorded runs and their repair decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.NewStore(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if runID != "" {
				return runDetailMode(w, st, runID, jsonOut)
			}
			return runListMode(w, st, last, jsonOut)
		},
	}

	f := cmd.Flags()
	f.IntVar(&last, "last", 20, "show N most recent runs")
	f.StringVar(&runID, "run", "", "show single run detail")
	f.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region list-mode

type listRow struct {
	RunID      string `json:"run_id"`
	EID        string `json:"eid,omitempty"`
	Size       int    `json:"size"`
	Decision   string `json:"decision,omitempty"`
	Plan       string `json:"plan,omitempty"`
	Stage      string `json:"failed_stage,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(w io.Writer, st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRunsWithRepairs(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:      r.RunID,
			EID:        r.EID,
			Size:       r.Size,
			Decision:   r.Decision,
			Plan:       r.Plan,
			Stage:      r.Stage,
			DurationMS: r.DurationMS,
			CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-8s  %-8s  %4s  %-8s  %-8s  %8s  %-20s  %s\n",
		"Run", "EID", "Size", "Decision", "Failed", "ms", "Time", "Plan")
	fmt.Fprintf(w, "%-8s+-%-8s+-%4s+-%-8s+-%-8s+-%8s+-%-20s+-%s\n",
		"--------", "--------", "----", "--------", "--------", "--------", "--------------------", "----")
	for _, r := range rows {
		fmt.Fprintf(w, "%-8s  %-8s  %4d  %-8s  %-8s  %8d  %-20s  %s\n",
			shortID(r.RunID), dash(r.EID), r.Size, dash(r.Decision), dash(r.Stage), r.DurationMS, r.CreatedAt, r.Plan)
	}

	stats, err := st.RepairStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nRepair decisions (all runs): %d total, %d accept, %d repair, %d reject\n",
		stats.Total, stats.Accept, stats.Repair, stats.Reject)
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID        string          `json:"run_id"`
	EID          string          `json:"eid,omitempty"`
	LID          string          `json:"lid,omitempty"`
	Category     string          `json:"category,omitempty"`
	Size         int             `json:"size"`
	CreatedAt    string          `json:"created_at"`
	DurationMS   int64           `json:"duration_ms"`
	PlannerInput string          `json:"planner_input"`
	RawPlan      string          `json:"raw_plan,omitempty"`
	Plan         string          `json:"plan,omitempty"`
	Template     string          `json:"template,omitempty"`
	Output       string          `json:"output,omitempty"`
	Error        string          `json:"error,omitempty"`
	Decision     string          `json:"decision,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Extra        json.RawMessage `json:"extra,omitempty"`
	Missing      json.RawMessage `json:"missing,omitempty"`
}

func runDetailMode(w io.Writer, st *store.Store, runID string, jsonOut bool) error {
	r, err := st.GetRunWithRepair(runID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:        r.RunID,
		EID:          r.EID,
		LID:          r.LID,
		Category:     r.Category,
		Size:         r.Size,
		CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		DurationMS:   r.DurationMS,
		PlannerInput: r.PlannerInput,
		RawPlan:      r.RawPlan,
		Plan:         r.Plan,
		Template:     r.Template,
		Output:       r.Output,
		Error:        r.Error,
		Decision:     r.Decision,
		Reason:       r.Reason,
	}
	if r.ExtraJSON != "" {
		out.Extra = json.RawMessage(r.ExtraJSON)
	}
	if r.MissingJSON != "" {
		out.Missing = json.RawMessage(r.MissingJSON)
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Run:        %s\n", out.RunID)
	fmt.Fprintf(w, "Entry:      %s %s (%s, %d facts)\n", dash(out.EID), out.LID, dash(out.Category), out.Size)
	fmt.Fprintf(w, "Created:    %s (%d ms)\n", out.CreatedAt, out.DurationMS)
	fmt.Fprintf(w, "Input:      %s\n", out.PlannerInput)
	fmt.Fprintf(w, "Raw plan:   %s\n", out.RawPlan)
	fmt.Fprintf(w, "Plan:       %s\n", out.Plan)
	fmt.Fprintf(w, "Decision:   %s\n", dash(out.Decision))
	if out.Reason != "" {
		fmt.Fprintf(w, "Reason:     %s\n", out.Reason)
	}
	if out.Template != "" {
		fmt.Fprintf(w, "\nTemplate:\n  %s\n", out.Template)
	}
	if out.Output != "" {
		fmt.Fprintf(w, "\nOutput:\n  %s\n", out.Output)
	}
	if out.Error != "" {
		fmt.Fprintf(w, "\nError:\n  %s\n", out.Error)
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
