// Package report renders harvest state as tables for the CLI.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// PrintStatus renders the per-stage progress counters.
func PrintStatus(w io.Writer, p *storage.Progress) {
	table := newTable(w)
	table.Header("Stage", "Done", "Pending", "Failed")
	table.Append("discovery", p.DiscoveredScraped, p.DiscoveredPending, p.DiscoveredFailed)
	table.Append("overviews", p.Matches, p.DiscoveredPending, "")
	table.Append("map stats", p.MapsWithStats, p.MapsWithStatsID-p.MapsWithStats, "")
	table.Append("perf/economy", p.MapsWithPerf, p.MapsWithStats-p.MapsWithPerf, "")
	table.Render()
	fmt.Fprintf(w, "\n%d records in quarantine\n", p.Quarantined)
}

// PrintQuarantine renders the newest quarantine entries.
func PrintQuarantine(w io.Writer, entries []model.QuarantineEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(quarantine is empty)")
		return
	}
	table := newTable(w)
	table.Header("ID", "Entity", "Match", "Map", "Error", "When")
	for _, e := range entries {
		mapNum := ""
		if e.MapNumber != nil {
			mapNum = fmt.Sprintf("%d", *e.MapNumber)
		}
		table.Append(e.ID, e.EntityType, e.MatchID, mapNum, truncate(e.Error, 60), e.CreatedAt)
	}
	table.Render()
}

// PrintMatch renders one match with its maps and player lines.
func PrintMatch(w io.Writer, m *model.Match, maps []model.Map, stats map[int][]model.PlayerStat) {
	format := fmt.Sprintf("bo%d", m.BestOf)
	if m.LAN {
		format += " LAN"
	}
	score := "forfeit"
	if m.Team1Score != nil && m.Team2Score != nil {
		score = fmt.Sprintf("%d - %d", *m.Team1Score, *m.Team2Score)
	}
	fmt.Fprintf(w, "%s vs %s  %s  (%s, %s, %s)\n\n",
		m.Team1Name, m.Team2Name, score, format, m.MatchDate, m.EventName)

	table := newTable(w)
	table.Header("Map", "Name", "Score", "CT/T Split", "Stats Page")
	for _, mp := range maps {
		score := "-"
		if mp.Team1Rounds != nil && mp.Team2Rounds != nil {
			score = fmt.Sprintf("%d - %d", *mp.Team1Rounds, *mp.Team2Rounds)
		}
		split := ""
		if mp.Team1CTRounds != nil {
			split = fmt.Sprintf("%d/%d vs %d/%d",
				*mp.Team1CTRounds, *mp.Team1TRounds, *mp.Team2CTRounds, *mp.Team2TRounds)
		}
		page := ""
		if mp.MapStatsID != nil {
			page = fmt.Sprintf("%d", *mp.MapStatsID)
		}
		table.Append(mp.MapNumber, mp.MapName, score, split, page)
	}
	table.Render()

	for _, mp := range maps {
		lines := stats[mp.MapNumber]
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nMap %d: %s\n", mp.MapNumber, mp.MapName)
		t := newTable(w)
		t.Header("Player", "K", "D", "A", "ADR", "KAST", "Rating", "KPR")
		for _, s := range lines {
			kpr := ""
			if s.KPR != nil {
				kpr = fmt.Sprintf("%.2f", *s.KPR)
			}
			t.Append(s.PlayerName, s.Kills, s.Deaths, s.Assists,
				fmt.Sprintf("%.1f", s.ADR), fmt.Sprintf("%.1f%%", s.KAST),
				fmt.Sprintf("%.2f", s.Rating), kpr)
		}
		t.Render()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
