package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var perfEconomyLimit int

var perfEconomyCmd = &cobra.Command{
	Use:   "perfeconomy",
	Short: "Scrape performance and economy pages for stored maps",
	RunE:  runPerfEconomy,
}

func init() {
	perfEconomyCmd.Flags().IntVar(&perfEconomyLimit, "limit", 0, "max maps to process this run (default batch size from config)")
}

func runPerfEconomy(cmd *cobra.Command, args []string) error {
	ctx, cancel := stageContext()
	defer cancel()

	h, err := openHarness(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	stats, err := h.pipe.RunPerfEconomy(ctx, perfEconomyLimit)
	if stats != nil {
		h.reportStage("perfeconomy", stats)
	}
	if err != nil {
		return fmt.Errorf("perfeconomy: %w", err)
	}
	return nil
}
