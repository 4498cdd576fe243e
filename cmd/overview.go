package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var overviewLimit int

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Scrape match overview pages for pending discoveries",
	RunE:  runOverview,
}

func init() {
	overviewCmd.Flags().IntVar(&overviewLimit, "limit", 0, "max matches to process this run (default batch size from config)")
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx, cancel := stageContext()
	defer cancel()

	h, err := openHarness(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	stats, err := h.pipe.RunOverviews(ctx, overviewLimit)
	if stats != nil {
		h.reportStage("overview", stats)
	}
	if err != nil {
		return fmt.Errorf("overview: %w", err)
	}
	return nil
}
