package pipeline

import (
	"context"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/model"
	"github.com/pable/go-hltv-harvest/internal/parser"
)

// RunDiscovery walks the results listing from offset 0 up to maxOffset,
// persisting each page's match links together with the page's completion
// marker in one transaction. Already-completed offsets are skipped, so an
// interrupted run resumes where it stopped. A page that parses to zero
// entries aborts the walk: either the listing ended early or the markup
// changed, and both need an operator.
func (p *Pipeline) RunDiscovery(ctx context.Context, maxOffset int) (*Stats, error) {
	if maxOffset <= 0 || maxOffset > p.cfg.MaxOffset {
		maxOffset = p.cfg.MaxOffset
	}
	stats := &Stats{}

	for offset := 0; offset <= maxOffset; offset += p.cfg.ResultsPerPage {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		done, err := p.db.DiscoveryPageDone(offset)
		if err != nil {
			return stats, fmt.Errorf("check offset %d: %w", offset, err)
		}
		if done {
			stats.Skipped++
			continue
		}

		html, err := p.fetch.Fetch(ctx, resultsURL(offset))
		if err != nil {
			stats.FetchErrors++
			return stats, fmt.Errorf("fetch results offset %d: %w", offset, err)
		}
		stats.Fetched++
		if err := p.arc.SaveResults(offset, html); err != nil {
			return stats, fmt.Errorf("archive results offset %d: %w", offset, err)
		}

		results, err := parser.ParseResults(html, offset)
		if err != nil {
			return stats, fmt.Errorf("parse results offset %d: %w", offset, err)
		}
		if len(results) == 0 {
			return stats, fmt.Errorf("results offset %d yielded no matches, stopping discovery", offset)
		}

		entries := make([]model.DiscoveryEntry, 0, len(results))
		for _, r := range results {
			entries = append(entries, model.DiscoveryEntry{
				MatchID:      r.MatchID,
				URL:          absoluteURL(r.URL),
				Offset:       offset,
				DiscoveredAt: r.TimestampMS,
				ForfeitHint:  r.ForfeitHint,
			})
		}
		if err := p.db.InsertDiscoveryBatch(entries, offset); err != nil {
			return stats, fmt.Errorf("persist results offset %d: %w", offset, err)
		}
		stats.Persisted += len(entries)
		p.log.Info().Int("offset", offset).Int("matches", len(entries)).Msg("results page discovered")
	}
	return stats, nil
}
