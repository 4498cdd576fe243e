package storage

import (
	"github.com/pable/go-hltv-harvest/internal/model"
)

// InsertQuarantine records a rejected record for later review.
func (db *DB) InsertQuarantine(e model.QuarantineEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO quarantine(entity_type, match_id, map_number, input, error)
		VALUES (?,?,?,?,?)`,
		e.EntityType, e.MatchID, e.MapNumber, e.Input, e.Error)
	return err
}

// ListQuarantine returns the most recent quarantine entries.
func (db *DB) ListQuarantine(limit int) ([]model.QuarantineEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, entity_type, match_id, map_number, input, error, created_at
		FROM quarantine ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuarantineEntry
	for rows.Next() {
		var e model.QuarantineEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.MatchID, &e.MapNumber, &e.Input, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
