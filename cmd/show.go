package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show a stored match with its maps and scoreboards",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	matchID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid match id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.GetMatch(matchID)
	if err != nil {
		return fmt.Errorf("read match: %w", err)
	}
	if m == nil {
		fmt.Fprintf(os.Stdout, "Match %d not found.\n", matchID)
		return nil
	}

	maps, err := db.GetMaps(matchID)
	if err != nil {
		return fmt.Errorf("read maps: %w", err)
	}
	stats := make(map[int][]model.PlayerStat, len(maps))
	for _, mp := range maps {
		ps, err := db.GetPlayerStats(matchID, mp.MapNumber)
		if err != nil {
			return fmt.Errorf("read player stats: %w", err)
		}
		if len(ps) > 0 {
			stats[mp.MapNumber] = ps
		}
	}

	report.PrintMatch(os.Stdout, m, maps, stats)
	return nil
}
