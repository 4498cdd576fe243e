package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hltv-harvest/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show harvest progress per stage",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	progress, err := db.GetProgress()
	if err != nil {
		return fmt.Errorf("read progress: %w", err)
	}
	report.PrintStatus(os.Stdout, progress)
	return nil
}
