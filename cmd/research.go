package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timberline-data/enrich-cli/internal/export"
	"github.com/timberline-data/enrich-cli/internal/fetcher"
	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/internal/pipeline"
)

var (
	researchInput      string
	researchNameCol    string
	researchCityCol    string
	researchAddressCol string
	researchLimit      int
	researchResume     string
	researchOutput     string
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research businesses from a spreadsheet",
	Long:  "Loads entities from a CSV/XLSX file (local path or http/ftp URL), researches each via web search and LLM extraction, and stores results per run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		researcher, err := initResearcher()
		if err != nil {
			return err
		}
		if err := researcher.Probe(ctx); err != nil {
			return eris.Wrap(err, "provider probe failed")
		}
		runner := pipeline.NewRunner(researcher, st, time.Duration(cfg.Research.EntityDelaySecs)*time.Second)

		entities, err := fetcher.LoadEntities(ctx, researchInput, researchNameCol, researchCityCol, researchAddressCol)
		if err != nil {
			return err
		}

		report, err := runner.Run(ctx, entities, pipeline.Options{
			MaxEntities: researchLimit,
			ResumeRunID: researchResume,
		})
		if err != nil {
			return err
		}

		if report.State == model.RunStateHaltedOnBilling {
			zap.L().Warn("batch halted on provider billing error; resume later with --resume",
				zap.String("run_id", report.RunID),
			)
		}

		if researchOutput != "" {
			if err := writeResults(researchOutput, report.Results); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID   string         `json:"run_id"`
			State   model.RunState `json:"state"`
			Summary model.Summary  `json:"summary"`
		}{report.RunID, report.State, report.Summary})
	},
}

// writeResults picks the export format from the file extension.
func writeResults(path string, results []model.ResearchResult) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.WriteCSV(path, results)
	case ".xlsx":
		return export.WriteXLSX(path, results)
	default:
		return eris.Errorf("unsupported output format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
}

func init() {
	researchCmd.Flags().StringVar(&researchInput, "input", "", "input table: local path or http/ftp URL (required)")
	researchCmd.Flags().StringVar(&researchNameCol, "name-col", "", "business name column (auto-detected if empty)")
	researchCmd.Flags().StringVar(&researchCityCol, "city-col", "", "expected city column (auto-detected if empty)")
	researchCmd.Flags().StringVar(&researchAddressCol, "address-col", "", "expected address column (auto-detected if empty)")
	researchCmd.Flags().IntVar(&researchLimit, "limit", 0, "research only the first N unique businesses")
	researchCmd.Flags().StringVar(&researchResume, "resume", "", "resume a halted run from its checkpoint")
	researchCmd.Flags().StringVar(&researchOutput, "output", "", "also export results to this .csv or .xlsx file")
	_ = researchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(researchCmd)
}
