package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/timberline-data/enrich-cli/internal/review"
	"github.com/timberline-data/enrich-cli/pkg/notion"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage the manual-review queue",
}

var reviewPushCmd = &cobra.Command{
	Use:   "push <run-id>",
	Short: "Queue a run's manual-fallback businesses in Notion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" || cfg.Notion.ReviewDB == "" {
			return eris.New("notion.token and notion.review_db are required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := loadRunResults(ctx, st, args[0])
		if err != nil {
			return err
		}

		pusher := review.NewPusher(notion.NewClient(cfg.Notion.Token), cfg.Notion.ReviewDB)
		summary, err := pusher.Push(ctx, results)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	reviewCmd.AddCommand(reviewPushCmd)
	rootCmd.AddCommand(reviewCmd)
}
