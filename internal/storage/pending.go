package storage

import (
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// PendingOverviews returns discovery entries whose match overview has not
// been persisted yet, oldest match id first.
func (db *DB) PendingOverviews(limit int) ([]model.DiscoveryEntry, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, url, offset, discovered_at, forfeit_hint, status
		FROM discovery_entries
		WHERE status = 'pending'
		ORDER BY match_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DiscoveryEntry
	for rows.Next() {
		var e model.DiscoveryEntry
		var hint int
		var status string
		if err := rows.Scan(&e.MatchID, &e.URL, &e.Offset, &e.DiscoveredAt, &hint, &status); err != nil {
			return nil, err
		}
		e.ForfeitHint = hint != 0
		e.Status = model.DiscoveryStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PendingMap identifies one map awaiting a detail stage.
type PendingMap struct {
	MatchID    int64
	MapNumber  int
	MapStatsID int64
	BestOf     int
}

// PendingMapStats returns played maps that have a stats page id but no
// player rows yet. Absence of data is the work queue here, there is no
// status column to flip.
func (db *DB) PendingMapStats(limit int) ([]PendingMap, error) {
	return db.pendingMaps(`
		SELECT m.match_id, m.map_number, m.mapstatsid, ma.best_of
		FROM maps m
		JOIN matches ma ON ma.match_id = m.match_id
		WHERE m.mapstatsid IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM player_stats ps
			WHERE ps.match_id = m.match_id AND ps.map_number = m.map_number)
		ORDER BY m.match_id, m.map_number
		LIMIT ?`, limit)
}

// PendingPerfEconomy returns maps whose traditional stats are stored but
// whose performance columns are still empty.
func (db *DB) PendingPerfEconomy(limit int) ([]PendingMap, error) {
	return db.pendingMaps(`
		SELECT m.match_id, m.map_number, m.mapstatsid, ma.best_of
		FROM maps m
		JOIN matches ma ON ma.match_id = m.match_id
		WHERE m.mapstatsid IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM player_stats ps
			WHERE ps.match_id = m.match_id AND ps.map_number = m.map_number
			  AND ps.kpr IS NULL)
		ORDER BY m.match_id, m.map_number
		LIMIT ?`, limit)
}

func (db *DB) pendingMaps(query string, limit int) ([]PendingMap, error) {
	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingMap
	for rows.Next() {
		var p PendingMap
		if err := rows.Scan(&p.MatchID, &p.MapNumber, &p.MapStatsID, &p.BestOf); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Progress summarizes how far the harvest has advanced through each stage.
type Progress struct {
	DiscoveredPending int
	DiscoveredScraped int
	DiscoveredFailed  int
	Matches           int
	MapsWithStatsID   int
	MapsWithStats     int
	MapsWithPerf      int
	Quarantined       int
}

// GetProgress counts rows per stage for the status report.
func (db *DB) GetProgress() (*Progress, error) {
	var p Progress
	counts := []struct {
		dst   *int
		query string
	}{
		{&p.DiscoveredPending, "SELECT COUNT(1) FROM discovery_entries WHERE status = 'pending'"},
		{&p.DiscoveredScraped, "SELECT COUNT(1) FROM discovery_entries WHERE status = 'scraped'"},
		{&p.DiscoveredFailed, "SELECT COUNT(1) FROM discovery_entries WHERE status = 'failed'"},
		{&p.Matches, "SELECT COUNT(1) FROM matches"},
		{&p.MapsWithStatsID, "SELECT COUNT(1) FROM maps WHERE mapstatsid IS NOT NULL"},
		{&p.MapsWithStats, `SELECT COUNT(DISTINCT match_id || '-' || map_number) FROM player_stats`},
		{&p.MapsWithPerf, `SELECT COUNT(DISTINCT match_id || '-' || map_number) FROM player_stats WHERE kpr IS NOT NULL`},
		{&p.Quarantined, "SELECT COUNT(1) FROM quarantine"},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("progress count: %w", err)
		}
	}
	return &p, nil
}
