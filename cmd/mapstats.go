package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mapstatsLimit int

var mapstatsCmd = &cobra.Command{
	Use:   "mapstats",
	Short: "Scrape per-map scoreboard and round-history pages",
	RunE:  runMapstats,
}

func init() {
	mapstatsCmd.Flags().IntVar(&mapstatsLimit, "limit", 0, "max maps to process this run (default batch size from config)")
}

func runMapstats(cmd *cobra.Command, args []string) error {
	ctx, cancel := stageContext()
	defer cancel()

	h, err := openHarness(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	stats, err := h.pipe.RunMapStats(ctx, mapstatsLimit)
	if stats != nil {
		h.reportStage("mapstats", stats)
	}
	if err != nil {
		return fmt.Errorf("mapstats: %w", err)
	}
	return nil
}
