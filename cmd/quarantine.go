package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hltv-harvest/internal/report"
)

var quarantineLimit int

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "List records rejected by the validation gate",
	RunE:  runQuarantine,
}

func init() {
	quarantineCmd.Flags().IntVar(&quarantineLimit, "limit", 20, "max entries to show, newest first")
}

func runQuarantine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.ListQuarantine(quarantineLimit)
	if err != nil {
		return fmt.Errorf("list quarantine: %w", err)
	}
	report.PrintQuarantine(os.Stdout, entries)
	return nil
}
