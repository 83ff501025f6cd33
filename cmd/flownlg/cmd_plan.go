package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/corpus"
)

func newPlanCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "plan <corpus-dir>",
		Short: "Write planner/realizer training examples with gold plans as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := corpus.ReadDir(args[0])
			if err != nil {
				return err
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

			enc := json.NewEncoder(out)
			examples := corpus.AllExamples(entries)
			for _, ex := range examples {
				if err := enc.Encode(ex); err != nil {
					return fmt.Errorf("write example: %w", err)
				}
			}
			a.log.Info("wrote examples", "entries", len(entries), "examples", len(examples))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write JSONL here instead of stdout")
	return cmd
}
