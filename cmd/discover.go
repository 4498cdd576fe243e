package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var discoverMaxOffset int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Walk the results listing and queue match URLs",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverMaxOffset, "max-offset", -1, "last results offset to visit (default from config)")
}

// stageContext cancels the run on SIGINT/SIGTERM so the browser profile
// and any open transaction shut down cleanly.
func stageContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := stageContext()
	defer cancel()

	h, err := openHarness(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	maxOffset := discoverMaxOffset
	if maxOffset < 0 {
		maxOffset = h.cfg.Pipeline.MaxOffset
	}

	stats, err := h.pipe.RunDiscovery(ctx, maxOffset)
	if stats != nil {
		h.reportStage("discovery", stats)
	}
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	return nil
}
