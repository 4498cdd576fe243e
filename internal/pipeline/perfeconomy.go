package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/archive"
	"github.com/pable/go-hltv-harvest/internal/browser"
	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/parser"
	"github.com/pable/go-hltv-harvest/internal/storage"
	"github.com/pable/go-hltv-harvest/internal/validate"
)

type fetchedPerfEconomy struct {
	pm          storage.PendingMap
	perfHTML    string
	economyHTML string
}

// RunPerfEconomy processes one batch of maps whose traditional stats are
// stored but whose performance columns are still empty. Both detail pages
// are fetched and archived before any parsing, so a challenge on the
// economy page never leaves a half-applied map behind.
func (p *Pipeline) RunPerfEconomy(ctx context.Context, limit int) (*Stats, error) {
	if limit <= 0 {
		limit = p.cfg.PerfEconomyBatchSize
	}
	stats := &Stats{}

	pending, err := p.db.PendingPerfEconomy(limit)
	if err != nil {
		return stats, fmt.Errorf("load pending perf/economy: %w", err)
	}
	if len(pending) == 0 {
		return stats, nil
	}

	var fetched []fetchedPerfEconomy
	for _, pm := range pending {
		f := fetchedPerfEconomy{pm: pm}

		f.perfHTML, err = p.fetch.Fetch(ctx, performanceURL(pm.MapStatsID))
		if err != nil {
			if browser.IsBatchFatal(err) {
				stats.FetchErrors++
				return stats, fmt.Errorf("fetch performance %d: %w", pm.MapStatsID, err)
			}
			p.log.Warn().Int64("mapstatsid", pm.MapStatsID).Err(err).Msg("performance fetch failed")
			stats.Failed++
			continue
		}
		stats.Fetched++
		if err := p.arc.SaveMapPage(pm.MatchID, pm.MapStatsID, archive.KindPerformance, f.perfHTML); err != nil {
			return stats, fmt.Errorf("archive performance %d: %w", pm.MatchID, err)
		}

		f.economyHTML, err = p.fetch.Fetch(ctx, economyURL(pm.MapStatsID))
		if err != nil {
			if browser.IsBatchFatal(err) {
				stats.FetchErrors++
				return stats, fmt.Errorf("fetch economy %d: %w", pm.MapStatsID, err)
			}
			p.log.Warn().Int64("mapstatsid", pm.MapStatsID).Err(err).Msg("economy fetch failed")
			stats.Failed++
			continue
		}
		stats.Fetched++
		if err := p.arc.SaveMapPage(pm.MatchID, pm.MapStatsID, archive.KindEconomy, f.economyHTML); err != nil {
			return stats, fmt.Errorf("archive economy %d: %w", pm.MatchID, err)
		}

		fetched = append(fetched, f)
	}

	for _, f := range fetched {
		if err := p.persistPerfEconomy(f); err != nil {
			p.log.Warn().Int64("match_id", f.pm.MatchID).Int("map", f.pm.MapNumber).
				Err(err).Msg("perf/economy rejected")
			stats.Failed++
			continue
		}
		stats.Persisted++
	}

	p.log.Info().Int("fetched", stats.Fetched).Int("persisted", stats.Persisted).
		Int("failed", stats.Failed).Msg("perf/economy batch done")
	return stats, nil
}

func (p *Pipeline) persistPerfEconomy(f fetchedPerfEconomy) error {
	mapNum := f.pm.MapNumber

	pd, err := parser.ParsePerformance(f.perfHTML, f.pm.MapStatsID)
	if err != nil {
		p.quarantineParse("performance", f.pm.MatchID, &mapNum,
			p.arc.MapPath(f.pm.MatchID, f.pm.MapStatsID, archive.KindPerformance), err)
		return err
	}
	ed, err := parser.ParseEconomy(f.economyHTML, f.pm.MapStatsID)
	if err != nil {
		p.quarantineParse("economy", f.pm.MatchID, &mapNum,
			p.arc.MapPath(f.pm.MatchID, f.pm.MapStatsID, archive.KindEconomy), err)
		return err
	}

	for i := range pd.KillMatrix {
		pd.KillMatrix[i].MatchID = f.pm.MatchID
		pd.KillMatrix[i].MapNumber = mapNum
	}
	for i := range ed.Rounds {
		ed.Rounds[i].MatchID = f.pm.MatchID
		ed.Rounds[i].MapNumber = mapNum
	}

	if err := p.check.CheckPerformance(f.pm.MatchID, mapNum, pd); err != nil {
		var ve *validate.ValidationError
		if errors.As(err, &ve) {
			p.check.Quarantine("performance", f.pm.MatchID, &mapNum, pd, err)
		}
		return err
	}
	// Bad economy rounds are quarantined and dropped inside the checker.
	if err := p.check.CheckEconomy(f.pm.MatchID, mapNum, ed); err != nil {
		return err
	}

	merged, err := p.mergePerformance(f.pm, pd)
	if err != nil {
		var ve *validate.ValidationError
		if errors.As(err, &ve) {
			p.check.Quarantine("performance", f.pm.MatchID, &mapNum, pd, err)
		}
		return err
	}

	dropped, err := p.db.UpsertPerfEconomy(merged, pd.KillMatrix, ed.Rounds)
	if err != nil {
		return err
	}
	if dropped > 0 {
		p.log.Warn().Int64("match_id", f.pm.MatchID).Int("map", mapNum).
			Int("dropped", dropped).Msg("economy rounds without outcomes dropped")
	}
	return nil
}

// mergePerformance layers the performance page's rate metrics onto the
// stored stage-one rows. The upsert writes whole rows, so every stored
// column must ride along or it would be zeroed.
func (p *Pipeline) mergePerformance(pm storage.PendingMap, pd *model.PerformanceData) ([]model.PlayerStat, error) {
	stored, err := p.db.GetPlayerStats(pm.MatchID, pm.MapNumber)
	if err != nil {
		return nil, fmt.Errorf("read stored stats: %w", err)
	}

	perf := make(map[int64]model.PlayerPerformance, len(pd.Players))
	for _, pp := range pd.Players {
		perf[pp.PlayerID] = pp
	}

	merged := make([]model.PlayerStat, 0, len(stored))
	for _, ps := range stored {
		pp, ok := perf[ps.PlayerID]
		if !ok {
			return nil, &validate.ValidationError{
				Entity:  "performance",
				MatchID: pm.MatchID,
				Msg:     fmt.Sprintf("map %d player %d missing from performance page", pm.MapNumber, ps.PlayerID),
			}
		}
		kpr, dpr, mk := pp.KPR, pp.DPR, pp.MKRating
		ps.KPR = &kpr
		ps.DPR = &dpr
		ps.MKRating = &mk
		merged = append(merged, ps)
	}
	return merged, nil
}
