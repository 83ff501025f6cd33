package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/replay"
)

func newExportFixtureCmd(a *app) *cobra.Command {
	var (
		last    int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export-fixture",
		Short: "Export recent runs as a replay fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			f, err := a.fixtureFromDB(last)
			if err != nil {
				return err
			}
			if err := replay.WriteFixture(f, outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cases to %s\n", len(f.Cases), outPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "number of most recent runs to export")
	cmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	return cmd
}
