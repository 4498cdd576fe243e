package pipeline

import (
	"context"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/archive"
	"github.com/pable/go-hltv-harvest/internal/browser"
	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/parser"
	"github.com/pable/go-hltv-harvest/internal/storage"
)

type fetchedMapStats struct {
	pm   storage.PendingMap
	html string
}

// RunMapStats processes one batch of maps that have a stats page id but no
// player rows yet. There is no status column to flip: persisting the rows is
// what removes the map from the queue, so a failed map simply comes back
// next run.
func (p *Pipeline) RunMapStats(ctx context.Context, limit int) (*Stats, error) {
	if limit <= 0 {
		limit = p.cfg.MapStatsBatchSize
	}
	stats := &Stats{}

	pending, err := p.db.PendingMapStats(limit)
	if err != nil {
		return stats, fmt.Errorf("load pending map stats: %w", err)
	}
	if len(pending) == 0 {
		return stats, nil
	}

	var fetched []fetchedMapStats
	for _, pm := range pending {
		html, err := p.fetch.Fetch(ctx, mapStatsURL(pm.MapStatsID))
		if err != nil {
			if browser.IsBatchFatal(err) {
				stats.FetchErrors++
				return stats, fmt.Errorf("fetch map stats %d: %w", pm.MapStatsID, err)
			}
			p.log.Warn().Int64("mapstatsid", pm.MapStatsID).Err(err).Msg("map stats fetch failed")
			stats.Failed++
			continue
		}
		stats.Fetched++
		if err := p.arc.SaveMapPage(pm.MatchID, pm.MapStatsID, archive.KindStats, html); err != nil {
			return stats, fmt.Errorf("archive map stats %d: %w", pm.MatchID, err)
		}
		fetched = append(fetched, fetchedMapStats{pm: pm, html: html})
	}

	for _, f := range fetched {
		if err := p.persistMapStats(f); err != nil {
			p.log.Warn().Int64("match_id", f.pm.MatchID).Int("map", f.pm.MapNumber).
				Err(err).Msg("map stats rejected")
			stats.Failed++
			continue
		}
		stats.Persisted++
	}

	p.log.Info().Int("fetched", stats.Fetched).Int("persisted", stats.Persisted).
		Int("failed", stats.Failed).Msg("map stats batch done")
	return stats, nil
}

func (p *Pipeline) persistMapStats(f fetchedMapStats) error {
	ms, err := parser.ParseMapStats(f.html, f.pm.MapStatsID)
	if err != nil {
		mapNum := f.pm.MapNumber
		p.quarantineParse("map_stats", f.pm.MatchID, &mapNum,
			p.arc.MapPath(f.pm.MatchID, f.pm.MapStatsID, archive.KindStats), err)
		return err
	}

	// Parsers see only the page, so the match identity comes from the
	// pending map row.
	for i := range ms.PlayerStats {
		ms.PlayerStats[i].MatchID = f.pm.MatchID
		ms.PlayerStats[i].MapNumber = f.pm.MapNumber
	}
	for i := range ms.RoundOutcomes {
		ms.RoundOutcomes[i].MatchID = f.pm.MatchID
		ms.RoundOutcomes[i].MapNumber = f.pm.MapNumber
	}

	// The checker filters bad player lines and outcomes itself, quarantining
	// each offender; an error here means nothing on the page was usable and
	// every line already has its own quarantine entry.
	if err := p.check.CheckMapStats(f.pm.MatchID, f.pm.MapNumber, ms); err != nil {
		return err
	}

	p.crossCheckSides(f.pm, ms)
	return p.db.UpsertMapStats(ms.PlayerStats, ms.RoundOutcomes)
}

// crossCheckSides compares the stats page's regulation side breakdown with
// what the overview stored. Mismatches are logged, not rejected: the
// overview stays the source of truth.
func (p *Pipeline) crossCheckSides(pm storage.PendingMap, ms *model.MapStats) {
	maps, err := p.db.GetMaps(pm.MatchID)
	if err != nil {
		p.log.Error().Int64("match_id", pm.MatchID).Err(err).Msg("side cross-check read failed")
		return
	}
	for _, m := range maps {
		if m.MapNumber != pm.MapNumber {
			continue
		}
		if m.Team1CTRounds == nil || m.Team1TRounds == nil {
			return
		}
		if *m.Team1CTRounds != ms.Team1CTRounds || *m.Team1TRounds != ms.Team1TRounds {
			p.log.Warn().Int64("match_id", pm.MatchID).Int("map", pm.MapNumber).
				Int("overview_ct", *m.Team1CTRounds).Int("stats_ct", ms.Team1CTRounds).
				Msg("side breakdown differs between overview and stats page")
		}
		return
	}
}
