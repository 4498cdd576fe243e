// Package validate gates parsed records before they reach storage. Hard
// failures reject the record and route it to quarantine; suspicious but
// plausible values only produce warnings.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// ValidationError marks a record that failed a hard check.
type ValidationError struct {
	Entity  string
	MatchID int64
	Msg     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s (match %d): %s", e.Entity, e.MatchID, e.Msg)
}

func reject(entity string, matchID int64, format string, args ...any) error {
	return &ValidationError{Entity: entity, MatchID: matchID, Msg: fmt.Sprintf(format, args...)}
}

// Quarantiner receives rejected records. *storage.DB satisfies it.
type Quarantiner interface {
	InsertQuarantine(model.QuarantineEntry) error
}

// Checker validates parsed records against structural and cross-field rules.
type Checker struct {
	v   *validator.Validate
	q   Quarantiner
	log zerolog.Logger
}

// New builds a Checker that routes rejects to q.
func New(q Quarantiner, log zerolog.Logger) *Checker {
	return &Checker{
		v:   validator.New(validator.WithRequiredStructEnabled()),
		q:   q,
		log: log.With().Str("component", "validate").Logger(),
	}
}

// Quarantine records a rejected record with a JSON dump of its input.
// Quarantine failures are logged, never fatal: losing the audit copy must
// not take down a batch.
func (c *Checker) Quarantine(entity string, matchID int64, mapNumber *int, record any, cause error) {
	raw, err := json.Marshal(record)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", record))
	}
	qe := model.QuarantineEntry{
		EntityType: entity,
		MatchID:    matchID,
		MapNumber:  mapNumber,
		Input:      string(raw),
		Error:      cause.Error(),
	}
	if err := c.q.InsertQuarantine(qe); err != nil {
		c.log.Error().Err(err).Int64("match_id", matchID).Msg("quarantine insert failed")
	}
	c.log.Warn().Int64("match_id", matchID).Str("entity", entity).Err(cause).Msg("record quarantined")
}

// CheckMatchOverview validates a full overview parse. Forfeit matches get a
// lighter pass: their maps and scores are placeholders by construction.
// Match- and map-level failures reject the whole record; malformed veto
// steps and roster entries are quarantined one by one and dropped so the
// valid rest still persists.
func (c *Checker) CheckMatchOverview(ov *model.MatchOverview) error {
	m := &ov.Match
	if err := c.v.Struct(m); err != nil {
		return reject("match", m.MatchID, "struct: %v", err)
	}
	if m.Team1ID == m.Team2ID {
		return reject("match", m.MatchID, "team1_id and team2_id are both %d", m.Team1ID)
	}

	if !m.IsForfeit {
		// For best-of-1 the match "score" is the single map's round score, so
		// the series cap only applies to longer formats.
		if m.BestOf > 1 {
			max := m.MaxWins()
			if m.Team1Score != nil && *m.Team1Score > max {
				return reject("match", m.MatchID, "team1 score %d exceeds max wins %d for bo%d", *m.Team1Score, max, m.BestOf)
			}
			if m.Team2Score != nil && *m.Team2Score > max {
				return reject("match", m.MatchID, "team2 score %d exceeds max wins %d for bo%d", *m.Team2Score, max, m.BestOf)
			}
		}
		if len(ov.Maps) == 0 {
			return reject("match", m.MatchID, "no maps parsed")
		}
	}

	for i := range ov.Maps {
		if err := c.checkMap(&ov.Maps[i]); err != nil {
			return err
		}
	}
	ov.Vetoes = c.filterVetoes(m.MatchID, ov.Vetoes)
	ov.Players = c.filterMatchPlayers(m.MatchID, ov.Players)

	if m.IsForfeit && m.Team1Score == nil && m.Team2Score == nil {
		c.log.Debug().Int64("match_id", m.MatchID).Msg("forfeit match, scores omitted")
	}
	return nil
}

func (c *Checker) checkMap(mp *model.Map) error {
	if err := c.v.Struct(mp); err != nil {
		return reject("map", mp.MatchID, "map %d struct: %v", mp.MapNumber, err)
	}
	if mp.IsUnplayed || mp.IsForfeit() {
		return nil
	}
	// Side rounds cover regulation only, so their sum may fall short of the
	// total on overtime maps but can never exceed it.
	if mp.Team1Rounds != nil && mp.Team1CTRounds != nil && mp.Team1TRounds != nil {
		if *mp.Team1CTRounds+*mp.Team1TRounds > *mp.Team1Rounds {
			return reject("map", mp.MatchID, "map %d team1 side rounds %d+%d exceed total %d",
				mp.MapNumber, *mp.Team1CTRounds, *mp.Team1TRounds, *mp.Team1Rounds)
		}
	}
	if mp.Team2Rounds != nil && mp.Team2CTRounds != nil && mp.Team2TRounds != nil {
		if *mp.Team2CTRounds+*mp.Team2TRounds > *mp.Team2Rounds {
			return reject("map", mp.MatchID, "map %d team2 side rounds %d+%d exceed total %d",
				mp.MapNumber, *mp.Team2CTRounds, *mp.Team2TRounds, *mp.Team2Rounds)
		}
	}
	return nil
}

// filterVetoes drops malformed veto steps, quarantining each offender, and
// returns the steps that may persist.
func (c *Checker) filterVetoes(matchID int64, steps []model.VetoStep) []model.VetoStep {
	kept := steps[:0]
	for i := range steps {
		s := steps[i]
		if err := c.checkVeto(matchID, &s); err != nil {
			c.Quarantine("veto", matchID, nil, s, err)
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func (c *Checker) checkVeto(matchID int64, s *model.VetoStep) error {
	if err := c.v.Struct(s); err != nil {
		return reject("veto", matchID, "step %d struct: %v", s.StepNumber, err)
	}
	leftOver := s.Action == model.VetoLeftOver
	if leftOver && s.TeamName != nil {
		return reject("veto", matchID, "step %d left_over with team %q", s.StepNumber, *s.TeamName)
	}
	if !leftOver && s.TeamName == nil {
		return reject("veto", matchID, "step %d %s without a team", s.StepNumber, s.Action)
	}
	return nil
}

// filterMatchPlayers drops malformed roster entries the same way.
func (c *Checker) filterMatchPlayers(matchID int64, players []model.MatchPlayer) []model.MatchPlayer {
	kept := players[:0]
	for i := range players {
		p := players[i]
		if err := c.v.Struct(&p); err != nil {
			c.Quarantine("match_player", matchID, nil, p,
				reject("match_player", matchID, "player %d struct: %v", p.PlayerID, err))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// CheckMapStats validates one map's stats page parse. Player lines and round
// outcomes are checked one by one: an offender is quarantined and dropped so
// its valid siblings still persist. Only a page with no usable lines at all
// is rejected outright; shape oddities after filtering warn. Records must
// carry their match identity before this runs.
func (c *Checker) CheckMapStats(matchID int64, mapNumber int, ms *model.MapStats) error {
	kept := ms.PlayerStats[:0]
	for i := range ms.PlayerStats {
		ps := ms.PlayerStats[i]
		if err := c.checkPlayerStat(&ps); err != nil {
			c.Quarantine("player_stat", matchID, &mapNumber, ps, err)
			continue
		}
		kept = append(kept, ps)
	}
	ms.PlayerStats = kept
	if len(ms.PlayerStats) == 0 {
		return reject("map_stats", matchID, "map %d has no valid player lines", mapNumber)
	}
	if len(ms.PlayerStats) != 10 {
		c.log.Warn().Int64("match_id", matchID).Int("map", mapNumber).
			Int("lines", len(ms.PlayerStats)).Msg("map persists with fewer than 10 player lines")
	}
	teams := map[int64]int{}
	for i := range ms.PlayerStats {
		teams[ms.PlayerStats[i].TeamID]++
	}
	if len(teams) != 2 {
		c.log.Warn().Int64("match_id", matchID).Int("map", mapNumber).
			Int("teams", len(teams)).Msg("player lines do not span two teams")
	} else {
		for teamID, n := range teams {
			if n != 5 {
				c.log.Warn().Int64("match_id", matchID).Int("map", mapNumber).
					Int64("team_id", teamID).Int("players", n).Msg("team short of five player lines")
			}
		}
	}

	outcomes := ms.RoundOutcomes[:0]
	for i := range ms.RoundOutcomes {
		ro := ms.RoundOutcomes[i]
		if err := c.v.Struct(&ro); err != nil {
			c.Quarantine("round_outcome", matchID, &mapNumber, ro,
				reject("round_outcome", matchID, "round %d: %v", ro.RoundNumber, err))
			continue
		}
		outcomes = append(outcomes, ro)
	}
	ms.RoundOutcomes = outcomes
	return nil
}

func (c *Checker) checkPlayerStat(ps *model.PlayerStat) error {
	if err := c.v.Struct(ps); err != nil {
		return reject("player_stat", ps.MatchID, "player %d struct: %v", ps.PlayerID, err)
	}
	if ps.HSKills > ps.Kills {
		return reject("player_stat", ps.MatchID, "player %d hs_kills %d exceeds kills %d", ps.PlayerID, ps.HSKills, ps.Kills)
	}
	if ps.KDDiff != ps.Kills-ps.Deaths {
		return reject("player_stat", ps.MatchID, "player %d kd_diff %d does not match %d-%d", ps.PlayerID, ps.KDDiff, ps.Kills, ps.Deaths)
	}
	if ps.FKDiff != ps.OpeningKills-ps.OpeningDeaths {
		return reject("player_stat", ps.MatchID, "player %d fk_diff %d does not match %d-%d", ps.PlayerID, ps.FKDiff, ps.OpeningKills, ps.OpeningDeaths)
	}

	if ps.Rating > 0 && (ps.Rating < 0.1 || ps.Rating > 3.0) {
		c.log.Warn().Int64("match_id", ps.MatchID).Int64("player_id", ps.PlayerID).
			Float64("rating", ps.Rating).Msg("rating outside plausible range")
	}
	if ps.ADR > 200 {
		c.log.Warn().Int64("match_id", ps.MatchID).Int64("player_id", ps.PlayerID).
			Float64("adr", ps.ADR).Msg("adr outside plausible range")
	}
	return nil
}

// CheckPerformance validates a performance page parse. A bad player card
// rejects the whole record: the rate columns merge into stored rows as a
// unit, so a partial roster cannot be applied. Malformed matrix cells are
// quarantined and dropped individually.
func (c *Checker) CheckPerformance(matchID int64, mapNumber int, pd *model.PerformanceData) error {
	if len(pd.Players) == 0 {
		return reject("performance", matchID, "map %d has no player cards", mapNumber)
	}
	for _, p := range pd.Players {
		if p.PlayerID <= 0 {
			return reject("performance", matchID, "map %d has a player card without an id", mapNumber)
		}
		if p.KPR < 0 || p.DPR < 0 || p.MKRating < 0 {
			return reject("performance", matchID, "map %d player %d has negative rate metrics", mapNumber, p.PlayerID)
		}
	}
	cells := pd.KillMatrix[:0]
	for i := range pd.KillMatrix {
		cell := pd.KillMatrix[i]
		if err := c.v.Struct(&cell); err != nil {
			c.Quarantine("kill_matrix", matchID, &mapNumber, cell,
				reject("kill_matrix", matchID, "map %d cell: %v", mapNumber, err))
			continue
		}
		cells = append(cells, cell)
	}
	pd.KillMatrix = cells
	return nil
}

// CheckEconomy validates an economy page parse, quarantining and dropping
// malformed rounds so the rest persist. Round filtering against the stored
// outcomes happens inside the storage transaction, not here.
func (c *Checker) CheckEconomy(matchID int64, mapNumber int, ed *model.EconomyData) error {
	rounds := ed.Rounds[:0]
	for i := range ed.Rounds {
		r := ed.Rounds[i]
		if err := c.v.Struct(&r); err != nil {
			c.Quarantine("round_economy", matchID, &mapNumber, r,
				reject("round_economy", matchID, "map %d round %d: %v", mapNumber, r.RoundNumber, err))
			continue
		}
		rounds = append(rounds, r)
	}
	ed.Rounds = rounds
	return nil
}
