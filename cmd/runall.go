package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runAllMaxOffset int

var runAllCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discovery and all scraping stages until the backlog drains",
	RunE:  runAll,
}

func init() {
	runAllCmd.Flags().IntVar(&runAllMaxOffset, "max-offset", -1, "last results offset to visit (default from config)")
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx, cancel := stageContext()
	defer cancel()

	h, err := openHarness(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	maxOffset := runAllMaxOffset
	if maxOffset < 0 {
		maxOffset = h.cfg.Pipeline.MaxOffset
	}

	stats, err := h.pipe.RunAll(ctx, maxOffset)
	if stats != nil {
		h.reportStage("all", stats)
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
