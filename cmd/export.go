package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/internal/store"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's results to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := loadRunResults(ctx, st, args[0])
		if err != nil {
			return err
		}

		return writeResults(exportOutput, results)
	},
}

func loadRunResults(ctx context.Context, st store.Store, runID string) ([]model.ResearchResult, error) {
	if _, err := st.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return st.ListResults(ctx, runID)
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "destination .csv or .xlsx file (required)")
	_ = exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}
