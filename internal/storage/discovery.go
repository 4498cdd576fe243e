package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// InsertDiscoveryBatch commits one listing page's entries together with the
// page's completion marker in a single transaction. On conflict the entry's
// url, offset and hint are refreshed but status and discovered_at are left
// alone: re-discovery must never clobber a scraped or failed status.
func (db *DB) InsertDiscoveryBatch(entries []model.DiscoveryEntry, offset int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO discovery_entries(match_id, url, offset, discovered_at, forfeit_hint, status)
		VALUES (?,?,?,?,?,'pending')
		ON CONFLICT(match_id) DO UPDATE SET
			url = excluded.url, offset = excluded.offset,
			forfeit_hint = excluded.forfeit_hint,
			updated_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.MatchID, e.URL, e.Offset, e.DiscoveredAt, boolInt(e.ForfeitHint)); err != nil {
			return fmt.Errorf("upsert discovery entry %d: %w", e.MatchID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO discovery_pages(offset) VALUES (?)
		ON CONFLICT(offset) DO UPDATE SET completed_at = datetime('now')`, offset); err != nil {
		return fmt.Errorf("mark discovery page %d: %w", offset, err)
	}

	return tx.Commit()
}

// DiscoveryPageDone reports whether a listing offset was already processed.
func (db *DB) DiscoveryPageDone(offset int) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM discovery_pages WHERE offset = ?", offset).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkDiscoveryStatus sets a discovery entry's status.
func (db *DB) MarkDiscoveryStatus(matchID int64, status model.DiscoveryStatus) error {
	res, err := db.conn.Exec(`
		UPDATE discovery_entries SET status = ?, updated_at = datetime('now')
		WHERE match_id = ?`, string(status), matchID)
	if err != nil {
		return fmt.Errorf("mark discovery entry %d %s: %w", matchID, status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark discovery entry %d %s: no such entry", matchID, status)
	}
	return nil
}

// GetDiscoveryEntry returns one discovery entry, or nil if absent.
func (db *DB) GetDiscoveryEntry(matchID int64) (*model.DiscoveryEntry, error) {
	var e model.DiscoveryEntry
	var hint int
	var status string
	err := db.conn.QueryRow(`
		SELECT match_id, url, offset, discovered_at, forfeit_hint, status
		FROM discovery_entries WHERE match_id = ?`, matchID).
		Scan(&e.MatchID, &e.URL, &e.Offset, &e.DiscoveredAt, &hint, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.ForfeitHint = hint != 0
	e.Status = model.DiscoveryStatus(status)
	return &e, nil
}
