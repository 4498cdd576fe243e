package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// UpsertMatchOverview commits a match, its maps, its veto steps and its
// roster in one transaction. Conflicting rows are updated in place;
// updated_at is refreshed, scraped_at keeps the first insert's stamp.
func (db *DB) UpsertMatchOverview(ov *model.MatchOverview) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m := &ov.Match
	_, err = tx.Exec(`
		INSERT INTO matches(match_id, url, team1_id, team1_name, team2_id, team2_name,
			team1_score, team2_score, event_id, event_name, best_of, lan, match_date, is_forfeit)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(match_id) DO UPDATE SET
			url = excluded.url,
			team1_id = excluded.team1_id, team1_name = excluded.team1_name,
			team2_id = excluded.team2_id, team2_name = excluded.team2_name,
			team1_score = excluded.team1_score, team2_score = excluded.team2_score,
			event_id = excluded.event_id, event_name = excluded.event_name,
			best_of = excluded.best_of, lan = excluded.lan,
			match_date = excluded.match_date, is_forfeit = excluded.is_forfeit,
			updated_at = datetime('now')`,
		m.MatchID, m.URL, m.Team1ID, m.Team1Name, m.Team2ID, m.Team2Name,
		m.Team1Score, m.Team2Score, m.EventID, m.EventName, m.BestOf,
		boolInt(m.LAN), m.MatchDate, boolInt(m.IsForfeit),
	)
	if err != nil {
		return fmt.Errorf("upsert match %d: %w", m.MatchID, err)
	}

	mapStmt, err := tx.Prepare(`
		INSERT INTO maps(match_id, map_number, map_name, mapstatsid,
			team1_rounds, team2_rounds, team1_ct_rounds, team1_t_rounds,
			team2_ct_rounds, team2_t_rounds, is_unplayed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(match_id, map_number) DO UPDATE SET
			map_name = excluded.map_name, mapstatsid = excluded.mapstatsid,
			team1_rounds = excluded.team1_rounds, team2_rounds = excluded.team2_rounds,
			team1_ct_rounds = excluded.team1_ct_rounds, team1_t_rounds = excluded.team1_t_rounds,
			team2_ct_rounds = excluded.team2_ct_rounds, team2_t_rounds = excluded.team2_t_rounds,
			is_unplayed = excluded.is_unplayed,
			updated_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer mapStmt.Close()
	for _, mp := range ov.Maps {
		_, err = mapStmt.Exec(mp.MatchID, mp.MapNumber, mp.MapName, mp.MapStatsID,
			mp.Team1Rounds, mp.Team2Rounds, mp.Team1CTRounds, mp.Team1TRounds,
			mp.Team2CTRounds, mp.Team2TRounds, boolInt(mp.IsUnplayed))
		if err != nil {
			return fmt.Errorf("upsert map %d/%d: %w", mp.MatchID, mp.MapNumber, err)
		}
	}

	vetoStmt, err := tx.Prepare(`
		INSERT INTO veto_steps(match_id, step_number, action, team_name, map_name)
		VALUES (?,?,?,?,?)
		ON CONFLICT(match_id, step_number) DO UPDATE SET
			action = excluded.action, team_name = excluded.team_name,
			map_name = excluded.map_name,
			updated_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer vetoStmt.Close()
	for _, v := range ov.Vetoes {
		if _, err := vetoStmt.Exec(v.MatchID, v.StepNumber, string(v.Action), v.TeamName, v.MapName); err != nil {
			return fmt.Errorf("upsert veto %d/%d: %w", v.MatchID, v.StepNumber, err)
		}
	}

	playerStmt, err := tx.Prepare(`
		INSERT INTO match_players(match_id, player_id, player_name, team_id, team_number)
		VALUES (?,?,?,?,?)
		ON CONFLICT(match_id, player_id) DO UPDATE SET
			player_name = excluded.player_name, team_id = excluded.team_id,
			team_number = excluded.team_number,
			updated_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer playerStmt.Close()
	for _, p := range ov.Players {
		if _, err := playerStmt.Exec(p.MatchID, p.PlayerID, p.PlayerName, p.TeamID, p.TeamNumber); err != nil {
			return fmt.Errorf("upsert match player %d/%d: %w", p.MatchID, p.PlayerID, err)
		}
	}

	return tx.Commit()
}

// GetMatch returns one match row, or nil if absent.
func (db *DB) GetMatch(matchID int64) (*model.Match, error) {
	var m model.Match
	var lan, forfeit int
	err := db.conn.QueryRow(`
		SELECT match_id, url, team1_id, team1_name, team2_id, team2_name,
		       team1_score, team2_score, event_id, event_name, best_of, lan,
		       match_date, is_forfeit
		FROM matches WHERE match_id = ?`, matchID).
		Scan(&m.MatchID, &m.URL, &m.Team1ID, &m.Team1Name, &m.Team2ID, &m.Team2Name,
			&m.Team1Score, &m.Team2Score, &m.EventID, &m.EventName, &m.BestOf, &lan,
			&m.MatchDate, &forfeit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.LAN = lan != 0
	m.IsForfeit = forfeit != 0
	return &m, nil
}

// GetMaps returns all maps of a match ordered by map number.
func (db *DB) GetMaps(matchID int64) ([]model.Map, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, map_number, map_name, mapstatsid,
		       team1_rounds, team2_rounds, team1_ct_rounds, team1_t_rounds,
		       team2_ct_rounds, team2_t_rounds, is_unplayed
		FROM maps WHERE match_id = ? ORDER BY map_number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Map
	for rows.Next() {
		var mp model.Map
		var unplayed int
		if err := rows.Scan(&mp.MatchID, &mp.MapNumber, &mp.MapName, &mp.MapStatsID,
			&mp.Team1Rounds, &mp.Team2Rounds, &mp.Team1CTRounds, &mp.Team1TRounds,
			&mp.Team2CTRounds, &mp.Team2TRounds, &unplayed); err != nil {
			return nil, err
		}
		mp.IsUnplayed = unplayed != 0
		out = append(out, mp)
	}
	return out, rows.Err()
}

// GetVetoSteps returns a match's veto sequence ordered by step number.
func (db *DB) GetVetoSteps(matchID int64) ([]model.VetoStep, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, step_number, action, team_name, map_name
		FROM veto_steps WHERE match_id = ? ORDER BY step_number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VetoStep
	for rows.Next() {
		var v model.VetoStep
		var action string
		if err := rows.Scan(&v.MatchID, &v.StepNumber, &action, &v.TeamName, &v.MapName); err != nil {
			return nil, err
		}
		v.Action = model.VetoAction(action)
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetMatchPlayers returns a match's roster ordered by team then player id.
func (db *DB) GetMatchPlayers(matchID int64) ([]model.MatchPlayer, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, player_id, player_name, team_id, team_number
		FROM match_players WHERE match_id = ? ORDER BY team_number, player_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchPlayer
	for rows.Next() {
		var p model.MatchPlayer
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.PlayerName, &p.TeamID, &p.TeamNumber); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
