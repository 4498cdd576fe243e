package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/browser"
	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/parser"
	"github.com/pable/go-hltv-harvest/internal/validate"
)

type fetchedOverview struct {
	entry model.DiscoveryEntry
	html  string
}

// RunOverviews processes one batch of pending discovery entries: fetch and
// archive every overview page first, then parse, validate and persist each.
// A challenge mid-batch discards the unfetched remainder; per-page parse or
// validation failures mark only that entry failed.
func (p *Pipeline) RunOverviews(ctx context.Context, limit int) (*Stats, error) {
	if limit <= 0 {
		limit = p.cfg.OverviewBatchSize
	}
	stats := &Stats{}

	pending, err := p.db.PendingOverviews(limit)
	if err != nil {
		return stats, fmt.Errorf("load pending overviews: %w", err)
	}
	if len(pending) == 0 {
		return stats, nil
	}

	var fetched []fetchedOverview
	for _, entry := range pending {
		html, err := p.fetch.Fetch(ctx, entry.URL)
		if err != nil {
			if browser.IsBatchFatal(err) {
				stats.FetchErrors++
				return stats, fmt.Errorf("fetch overview %d: %w", entry.MatchID, err)
			}
			p.log.Warn().Int64("match_id", entry.MatchID).Err(err).Msg("overview fetch failed")
			p.markFailed(entry.MatchID, stats)
			continue
		}
		stats.Fetched++
		if err := p.arc.SaveOverview(entry.MatchID, html); err != nil {
			return stats, fmt.Errorf("archive overview %d: %w", entry.MatchID, err)
		}
		fetched = append(fetched, fetchedOverview{entry: entry, html: html})
	}

	for _, f := range fetched {
		if err := p.persistOverview(f); err != nil {
			p.log.Warn().Int64("match_id", f.entry.MatchID).Err(err).Msg("overview rejected")
			p.markFailed(f.entry.MatchID, stats)
			continue
		}
		if err := p.db.MarkDiscoveryStatus(f.entry.MatchID, model.StatusScraped); err != nil {
			return stats, fmt.Errorf("mark overview %d scraped: %w", f.entry.MatchID, err)
		}
		stats.Persisted++
	}

	p.log.Info().Int("fetched", stats.Fetched).Int("persisted", stats.Persisted).
		Int("failed", stats.Failed).Msg("overview batch done")
	return stats, nil
}

func (p *Pipeline) persistOverview(f fetchedOverview) error {
	ov, err := parser.ParseMatchOverview(f.html, f.entry.MatchID)
	if err != nil {
		p.quarantineParse("match_overview", f.entry.MatchID, nil, p.arc.OverviewPath(f.entry.MatchID), err)
		return err
	}
	ov.Match.URL = f.entry.URL
	if f.entry.ForfeitHint && !ov.Match.IsForfeit {
		p.log.Warn().Int64("match_id", f.entry.MatchID).Msg("listing hinted forfeit but overview shows played maps")
	}
	if err := p.check.CheckMatchOverview(ov); err != nil {
		var ve *validate.ValidationError
		if errors.As(err, &ve) {
			p.check.Quarantine("match_overview", f.entry.MatchID, nil, ov, err)
		}
		return err
	}
	return p.db.UpsertMatchOverview(ov)
}

func (p *Pipeline) markFailed(matchID int64, stats *Stats) {
	stats.Failed++
	if err := p.db.MarkDiscoveryStatus(matchID, model.StatusFailed); err != nil {
		p.log.Error().Int64("match_id", matchID).Err(err).Msg("could not mark entry failed")
	}
}
