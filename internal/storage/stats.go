package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/go-hltv-harvest/internal/model"
)

const playerStatUpsert = `
	INSERT INTO player_stats(match_id, map_number, player_id, player_name, team_id,
		kills, deaths, assists, flash_assists, hs_kills, kd_diff, adr, kast,
		fk_diff, rating, opening_kills, opening_deaths, multi_kills, clutch_wins,
		traded_deaths, round_swing, kpr, dpr, mk_rating)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(match_id, map_number, player_id) DO UPDATE SET
		player_name = excluded.player_name, team_id = excluded.team_id,
		kills = excluded.kills, deaths = excluded.deaths, assists = excluded.assists,
		flash_assists = excluded.flash_assists, hs_kills = excluded.hs_kills,
		kd_diff = excluded.kd_diff, adr = excluded.adr, kast = excluded.kast,
		fk_diff = excluded.fk_diff, rating = excluded.rating,
		opening_kills = excluded.opening_kills, opening_deaths = excluded.opening_deaths,
		multi_kills = excluded.multi_kills, clutch_wins = excluded.clutch_wins,
		traded_deaths = excluded.traded_deaths, round_swing = excluded.round_swing,
		kpr = excluded.kpr, dpr = excluded.dpr, mk_rating = excluded.mk_rating,
		updated_at = datetime('now')`

// UpsertMapStats commits a map's player stats and round outcomes in one
// transaction. Because the UPSERT writes every column, callers running
// after the performance stage must pass stats merged with the existing
// rows (see GetPlayerStats) or they will null the later-stage columns.
func (db *DB) UpsertMapStats(stats []model.PlayerStat, outcomes []model.RoundOutcome) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertPlayerStats(tx, stats); err != nil {
		return err
	}
	if err := upsertRoundOutcomes(tx, outcomes); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertPerfEconomy commits the perf-merged player stats, the kill matrix
// and the economy rows in one transaction. Economy rounds without a
// matching round_outcomes row are filtered out inside the same transaction
// (overtime economy data may be legitimately absent); the dropped count is
// returned so the caller can log it.
func (db *DB) UpsertPerfEconomy(stats []model.PlayerStat, matrix []model.KillMatrixEntry, economy []model.RoundEconomy) (dropped int, err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := upsertPlayerStats(tx, stats); err != nil {
		return 0, err
	}

	matrixStmt, err := tx.Prepare(`
		INSERT INTO kill_matrix(match_id, map_number, matrix_type,
			row_player_id, col_player_id, row_kills, col_kills)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(match_id, map_number, matrix_type, row_player_id, col_player_id) DO UPDATE SET
			row_kills = excluded.row_kills, col_kills = excluded.col_kills,
			updated_at = datetime('now')`)
	if err != nil {
		return 0, err
	}
	defer matrixStmt.Close()
	for _, e := range matrix {
		_, err := matrixStmt.Exec(e.MatchID, e.MapNumber, string(e.MatrixType),
			e.RowPlayerID, e.ColPlayerID, e.RowKills, e.ColKills)
		if err != nil {
			return 0, fmt.Errorf("upsert kill matrix %d/%d/%s: %w", e.MatchID, e.MapNumber, e.MatrixType, err)
		}
	}

	kept, err := filterEconomyRounds(tx, economy)
	if err != nil {
		return 0, err
	}
	dropped = len(economy) - len(kept)

	econStmt, err := tx.Prepare(`
		INSERT INTO round_economy(match_id, map_number, round_number, team_id,
			equipment_value, buy_type, side)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(match_id, map_number, round_number, team_id) DO UPDATE SET
			equipment_value = excluded.equipment_value, buy_type = excluded.buy_type,
			side = excluded.side,
			updated_at = datetime('now')`)
	if err != nil {
		return 0, err
	}
	defer econStmt.Close()
	for _, e := range kept {
		_, err := econStmt.Exec(e.MatchID, e.MapNumber, e.RoundNumber, e.TeamID,
			e.EquipmentValue, string(e.BuyType), string(e.Side))
		if err != nil {
			return 0, fmt.Errorf("upsert round economy %d/%d/%d: %w", e.MatchID, e.MapNumber, e.RoundNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return dropped, nil
}

func upsertPlayerStats(tx *sql.Tx, stats []model.PlayerStat) error {
	stmt, err := tx.Prepare(playerStatUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range stats {
		_, err := stmt.Exec(s.MatchID, s.MapNumber, s.PlayerID, s.PlayerName, s.TeamID,
			s.Kills, s.Deaths, s.Assists, s.FlashAssists, s.HSKills, s.KDDiff,
			s.ADR, s.KAST, s.FKDiff, s.Rating, s.OpeningKills, s.OpeningDeaths,
			s.MultiKills, s.ClutchWins, s.TradedDeaths, s.RoundSwing,
			s.KPR, s.DPR, s.MKRating)
		if err != nil {
			return fmt.Errorf("upsert player stat %d/%d/%d: %w", s.MatchID, s.MapNumber, s.PlayerID, err)
		}
	}
	return nil
}

func upsertRoundOutcomes(tx *sql.Tx, outcomes []model.RoundOutcome) error {
	stmt, err := tx.Prepare(`
		INSERT INTO round_outcomes(match_id, map_number, round_number,
			winner_team_id, winner_side, win_type)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(match_id, map_number, round_number) DO UPDATE SET
			winner_team_id = excluded.winner_team_id, winner_side = excluded.winner_side,
			win_type = excluded.win_type,
			updated_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range outcomes {
		_, err := stmt.Exec(o.MatchID, o.MapNumber, o.RoundNumber,
			o.WinnerTeamID, string(o.WinnerSide), string(o.WinType))
		if err != nil {
			return fmt.Errorf("upsert round outcome %d/%d/%d: %w", o.MatchID, o.MapNumber, o.RoundNumber, err)
		}
	}
	return nil
}

// filterEconomyRounds keeps only economy rows whose round exists in
// round_outcomes for the same map, read in the same transaction.
func filterEconomyRounds(tx *sql.Tx, economy []model.RoundEconomy) ([]model.RoundEconomy, error) {
	if len(economy) == 0 {
		return nil, nil
	}

	known := make(map[int]bool)
	rows, err := tx.Query(`
		SELECT round_number FROM round_outcomes
		WHERE match_id = ? AND map_number = ?`,
		economy[0].MatchID, economy[0].MapNumber)
	if err != nil {
		return nil, fmt.Errorf("read round outcomes for economy filter: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		known[n] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kept := economy[:0:0]
	for _, e := range economy {
		if known[e.RoundNumber] {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// GetPlayerStats returns a map's player stat rows ordered by player id.
func (db *DB) GetPlayerStats(matchID int64, mapNumber int) ([]model.PlayerStat, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, map_number, player_id, player_name, team_id,
		       kills, deaths, assists, flash_assists, hs_kills, kd_diff, adr, kast,
		       fk_diff, rating, opening_kills, opening_deaths, multi_kills,
		       clutch_wins, traded_deaths, round_swing, kpr, dpr, mk_rating
		FROM player_stats WHERE match_id = ? AND map_number = ?
		ORDER BY player_id`, matchID, mapNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerStat
	for rows.Next() {
		var s model.PlayerStat
		if err := rows.Scan(&s.MatchID, &s.MapNumber, &s.PlayerID, &s.PlayerName, &s.TeamID,
			&s.Kills, &s.Deaths, &s.Assists, &s.FlashAssists, &s.HSKills, &s.KDDiff,
			&s.ADR, &s.KAST, &s.FKDiff, &s.Rating, &s.OpeningKills, &s.OpeningDeaths,
			&s.MultiKills, &s.ClutchWins, &s.TradedDeaths, &s.RoundSwing,
			&s.KPR, &s.DPR, &s.MKRating); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRoundOutcomes returns a map's round outcomes ordered by round number.
func (db *DB) GetRoundOutcomes(matchID int64, mapNumber int) ([]model.RoundOutcome, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, map_number, round_number, winner_team_id, winner_side, win_type
		FROM round_outcomes WHERE match_id = ? AND map_number = ?
		ORDER BY round_number`, matchID, mapNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundOutcome
	for rows.Next() {
		var o model.RoundOutcome
		var side, win string
		if err := rows.Scan(&o.MatchID, &o.MapNumber, &o.RoundNumber, &o.WinnerTeamID, &side, &win); err != nil {
			return nil, err
		}
		o.WinnerSide = model.Side(side)
		o.WinType = model.WinType(win)
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetRoundEconomy returns a map's economy rows ordered by round then team.
func (db *DB) GetRoundEconomy(matchID int64, mapNumber int) ([]model.RoundEconomy, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, map_number, round_number, team_id, equipment_value, buy_type, side
		FROM round_economy WHERE match_id = ? AND map_number = ?
		ORDER BY round_number, team_id`, matchID, mapNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundEconomy
	for rows.Next() {
		var e model.RoundEconomy
		var buy, side string
		if err := rows.Scan(&e.MatchID, &e.MapNumber, &e.RoundNumber, &e.TeamID,
			&e.EquipmentValue, &buy, &side); err != nil {
			return nil, err
		}
		e.BuyType = model.BuyType(buy)
		e.Side = model.Side(side)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetKillMatrix returns a map's kill matrix entries.
func (db *DB) GetKillMatrix(matchID int64, mapNumber int) ([]model.KillMatrixEntry, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, map_number, matrix_type, row_player_id, col_player_id,
		       row_kills, col_kills
		FROM kill_matrix WHERE match_id = ? AND map_number = ?
		ORDER BY matrix_type, row_player_id, col_player_id`, matchID, mapNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.KillMatrixEntry
	for rows.Next() {
		var e model.KillMatrixEntry
		var typ string
		if err := rows.Scan(&e.MatchID, &e.MapNumber, &typ, &e.RowPlayerID, &e.ColPlayerID,
			&e.RowKills, &e.ColKills); err != nil {
			return nil, err
		}
		e.MatrixType = model.MatrixType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
