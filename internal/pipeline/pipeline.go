// Package pipeline drives the four harvest stages: discovery of match URLs,
// match overviews, per-map stats, and the performance plus economy pass.
// Each stage fetches a batch of pages, archives them, parses, validates and
// persists. A challenge or transport failure discards the whole in-flight
// batch; what was already committed stays committed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pable/go-hltv-harvest/internal/archive"
	"github.com/pable/go-hltv-harvest/internal/config"
	"github.com/pable/go-hltv-harvest/internal/parser"
	"github.com/pable/go-hltv-harvest/internal/storage"
	"github.com/pable/go-hltv-harvest/internal/validate"
)

const baseURL = "https://www.hltv.org"

// Fetcher is the page source. *browser.Transport satisfies it; tests supply
// a canned one.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Stats counts what one stage run did. FetchErrors counts the batch-fatal
// fetch outcomes that discarded the rest of a batch.
type Stats struct {
	Fetched     int
	Persisted   int
	Skipped     int
	Failed      int
	FetchErrors int
}

// Add accumulates another run's counts.
func (s *Stats) Add(o Stats) {
	s.Fetched += o.Fetched
	s.Persisted += o.Persisted
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.FetchErrors += o.FetchErrors
}

// Pipeline wires the fetcher, archive, validation gate and store together.
type Pipeline struct {
	fetch Fetcher
	db    *storage.DB
	arc   *archive.Archive
	check *validate.Checker
	cfg   config.PipelineConfig
	log   zerolog.Logger
}

// New builds a pipeline over the given collaborators.
func New(fetch Fetcher, db *storage.DB, arc *archive.Archive, check *validate.Checker, cfg config.PipelineConfig, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetch: fetch,
		db:    db,
		arc:   arc,
		check: check,
		cfg:   cfg,
		log:   log.With().Str("component", "pipeline").Logger(),
	}
}

// quarantineParse routes a page with broken markup into quarantine. There is
// no typed record to dump, so the archived page path stands in for the input.
func (p *Pipeline) quarantineParse(entity string, matchID int64, mapNumber *int, archivePath string, err error) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		p.check.Quarantine(entity, matchID, mapNumber, archivePath, err)
	}
}

// absoluteURL resolves the site-relative hrefs the listing parser emits.
func absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return baseURL + href
	}
	return href
}

func resultsURL(offset int) string {
	if offset == 0 {
		return baseURL + "/results"
	}
	return fmt.Sprintf("%s/results?offset=%d", baseURL, offset)
}

func mapStatsURL(mapStatsID int64) string {
	return fmt.Sprintf("%s/stats/matches/mapstatsid/%d/map", baseURL, mapStatsID)
}

func performanceURL(mapStatsID int64) string {
	return fmt.Sprintf("%s/stats/matches/performance/mapstatsid/%d/map", baseURL, mapStatsID)
}

func economyURL(mapStatsID int64) string {
	return fmt.Sprintf("%s/stats/matches/economy/mapstatsid/%d/map", baseURL, mapStatsID)
}
