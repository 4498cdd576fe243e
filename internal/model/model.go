package model

// Side represents which side of the map a team is playing.
type Side string

const (
	SideCT Side = "CT"
	SideT  Side = "T"
)

// WinType is how a round ended.
type WinType string

const (
	WinElimination WinType = "elimination"
	WinBombPlanted WinType = "bomb_planted"
	WinDefuse      WinType = "defuse"
	WinTime        WinType = "time"
)

// BuyType buckets a team's round equipment value.
type BuyType string

const (
	BuyFullEco BuyType = "full_eco"
	BuySemiEco BuyType = "semi_eco"
	BuySemiBuy BuyType = "semi_buy"
	BuyFullBuy BuyType = "full_buy"
)

// BuyTypeForEquipment maps a round equipment value (USD) to its buy bucket.
func BuyTypeForEquipment(value int) BuyType {
	switch {
	case value < 5000:
		return BuyFullEco
	case value < 10000:
		return BuySemiEco
	case value < 20000:
		return BuySemiBuy
	default:
		return BuyFullBuy
	}
}

// VetoAction is one step kind of the 7-step map veto.
type VetoAction string

const (
	VetoRemoved  VetoAction = "removed"
	VetoPicked   VetoAction = "picked"
	VetoLeftOver VetoAction = "left_over"
)

// MatrixType scopes a 5x5 head-to-head kill matrix.
type MatrixType string

const (
	MatrixAll       MatrixType = "all"
	MatrixFirstKill MatrixType = "first_kill"
	MatrixAWP       MatrixType = "awp"
)

// DiscoveryStatus is the lifecycle of a discovered match URL.
type DiscoveryStatus string

const (
	StatusPending DiscoveryStatus = "pending"
	StatusScraped DiscoveryStatus = "scraped"
	StatusFailed  DiscoveryStatus = "failed"
)

// ForfeitMapName is the sentinel HLTV uses for an unplayed walkover map.
const ForfeitMapName = "Default"

// Match is one professional match (a best-of-N series).
type Match struct {
	MatchID   int64  `json:"match_id" validate:"gt=0"`
	URL       string `json:"url" validate:"required"`
	Team1ID   int64  `json:"team1_id" validate:"gt=0"`
	Team1Name string `json:"team1_name" validate:"required"`
	Team2ID   int64  `json:"team2_id" validate:"gt=0"`
	Team2Name string `json:"team2_name" validate:"required"`

	// Series score. For best-of-1 these hold the raw round score of the
	// single map (e.g. 16/14); BestOf disambiguates. Null on forfeits.
	Team1Score *int `json:"team1_score" validate:"omitempty,gte=0"`
	Team2Score *int `json:"team2_score" validate:"omitempty,gte=0"`

	EventID   int64  `json:"event_id" validate:"gte=0"`
	EventName string `json:"event_name"`

	BestOf    int    `json:"best_of" validate:"oneof=1 3 5"`
	LAN       bool   `json:"lan"`
	MatchDate string `json:"match_date" validate:"required,datetime=2006-01-02"`
	IsForfeit bool   `json:"is_forfeit"`
}

// MaxWins returns the series score needed to win a best-of-N.
func (m *Match) MaxWins() int {
	return m.BestOf/2 + 1
}

// Map is one map of a match, identified by (match_id, map_number).
type Map struct {
	MatchID   int64  `json:"match_id" validate:"gt=0"`
	MapNumber int    `json:"map_number" validate:"gte=1,lte=5"`
	MapName   string `json:"map_name" validate:"required"`

	// MapStatsID is the site's per-map stats page id; null when the map was
	// forfeited or never played.
	MapStatsID *int64 `json:"mapstatsid"`

	Team1Rounds *int `json:"team1_rounds" validate:"omitempty,gte=0"`
	Team2Rounds *int `json:"team2_rounds" validate:"omitempty,gte=0"`

	// Regulation-only side breakdown: overtime rounds count toward the
	// totals above but not here.
	Team1CTRounds *int `json:"team1_ct_rounds" validate:"omitempty,gte=0"`
	Team1TRounds  *int `json:"team1_t_rounds" validate:"omitempty,gte=0"`
	Team2CTRounds *int `json:"team2_ct_rounds" validate:"omitempty,gte=0"`
	Team2TRounds  *int `json:"team2_t_rounds" validate:"omitempty,gte=0"`

	IsUnplayed bool `json:"is_unplayed"`
}

// IsForfeit reports whether the map carries the walkover sentinel name.
func (m *Map) IsForfeit() bool {
	return m.MapName == ForfeitMapName
}

// VetoStep is one of the exactly seven pre-match veto steps.
type VetoStep struct {
	MatchID    int64      `json:"match_id" validate:"gt=0"`
	StepNumber int        `json:"step_number" validate:"gte=1,lte=7"`
	Action     VetoAction `json:"action" validate:"oneof=removed picked left_over"`

	// TeamName is null exactly when Action is left_over.
	TeamName *string `json:"team_name"`
	MapName  string  `json:"map_name" validate:"required"`
}

// MatchPlayer is a roster entry for a match.
type MatchPlayer struct {
	MatchID    int64  `json:"match_id" validate:"gt=0"`
	PlayerID   int64  `json:"player_id" validate:"gt=0"`
	PlayerName string `json:"player_name" validate:"required"`
	TeamID     int64  `json:"team_id" validate:"gt=0"`
	TeamNumber int    `json:"team_number" validate:"oneof=1 2"`
}

// PlayerStat is one player's line on one map. The map-stats stage fills the
// traditional columns; the performance stage later layers KPR/DPR/MKRating
// onto the same row.
type PlayerStat struct {
	MatchID    int64  `json:"match_id" validate:"gt=0"`
	MapNumber  int    `json:"map_number" validate:"gte=1,lte=5"`
	PlayerID   int64  `json:"player_id" validate:"gt=0"`
	PlayerName string `json:"player_name" validate:"required"`
	TeamID     int64  `json:"team_id" validate:"gt=0"`

	Kills        int     `json:"kills" validate:"gte=0"`
	Deaths       int     `json:"deaths" validate:"gte=0"`
	Assists      int     `json:"assists" validate:"gte=0"`
	FlashAssists int     `json:"flash_assists" validate:"gte=0"`
	HSKills      int     `json:"hs_kills" validate:"gte=0"`
	KDDiff       int     `json:"kd_diff"`
	ADR          float64 `json:"adr" validate:"gte=0"`
	KAST         float64 `json:"kast" validate:"gte=0,lte=100"`
	FKDiff       int     `json:"fk_diff"`
	Rating       float64 `json:"rating" validate:"gte=0"`

	OpeningKills  int `json:"opening_kills" validate:"gte=0"`
	OpeningDeaths int `json:"opening_deaths" validate:"gte=0"`
	MultiKills    int `json:"multi_kills" validate:"gte=0"`
	ClutchWins    int `json:"clutch_wins" validate:"gte=0"`
	TradedDeaths  int `json:"traded_deaths" validate:"gte=0"`

	// RoundSwing exists only under the rating 3.0 schema; null on 2.0 pages.
	RoundSwing *float64 `json:"round_swing"`

	// Performance-page columns; null until the perf+economy stage runs.
	KPR      *float64 `json:"kpr" validate:"omitempty,gte=0"`
	DPR      *float64 `json:"dpr" validate:"omitempty,gte=0"`
	MKRating *float64 `json:"mk_rating" validate:"omitempty,gte=0"`
}

// KD returns kills/deaths, with deaths=0 treated as a whole-number ratio.
func (s *PlayerStat) KD() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

// RoundOutcome records who won one round and how.
type RoundOutcome struct {
	MatchID      int64   `json:"match_id" validate:"gt=0"`
	MapNumber    int     `json:"map_number" validate:"gte=1,lte=5"`
	RoundNumber  int     `json:"round_number" validate:"gte=1"`
	WinnerTeamID int64   `json:"winner_team_id" validate:"gt=0"`
	WinnerSide   Side    `json:"winner_side" validate:"oneof=CT T"`
	WinType      WinType `json:"win_type" validate:"oneof=elimination bomb_planted defuse time"`
}

// RoundEconomy records one team's buy for one round.
type RoundEconomy struct {
	MatchID        int64   `json:"match_id" validate:"gt=0"`
	MapNumber      int     `json:"map_number" validate:"gte=1,lte=5"`
	RoundNumber    int     `json:"round_number" validate:"gte=1"`
	TeamID         int64   `json:"team_id" validate:"gt=0"`
	EquipmentValue int     `json:"equipment_value" validate:"gte=0"`
	BuyType        BuyType `json:"buy_type" validate:"oneof=full_eco semi_eco semi_buy full_buy"`
	Side           Side    `json:"side" validate:"oneof=CT T"`
}

// KillMatrixEntry is one cell of a 5x5 head-to-head kill matrix.
type KillMatrixEntry struct {
	MatchID     int64      `json:"match_id" validate:"gt=0"`
	MapNumber   int        `json:"map_number" validate:"gte=1,lte=5"`
	MatrixType  MatrixType `json:"matrix_type" validate:"oneof=all first_kill awp"`
	RowPlayerID int64      `json:"row_player_id" validate:"gt=0"`
	ColPlayerID int64      `json:"col_player_id" validate:"gt=0"`
	RowKills    int        `json:"row_kills" validate:"gte=0"`
	ColKills    int        `json:"col_kills" validate:"gte=0"`
}

// DiscoveryEntry is a match URL found on a results listing page. This is the
// only explicit work queue: match URLs cannot be reconstructed later.
type DiscoveryEntry struct {
	MatchID      int64           `json:"match_id" validate:"gt=0"`
	URL          string          `json:"url" validate:"required"`
	Offset       int             `json:"offset" validate:"gte=0"`
	DiscoveredAt int64           `json:"discovered_at"` // unix ms from the listing timestamp
	ForfeitHint  bool            `json:"forfeit_hint"`
	Status       DiscoveryStatus `json:"status" validate:"oneof=pending scraped failed"`
}

// QuarantineEntry is a validation reject kept for operator review.
type QuarantineEntry struct {
	ID         int64  `json:"id"`
	EntityType string `json:"entity_type"`
	MatchID    int64  `json:"match_id"`
	MapNumber  *int   `json:"map_number"`
	Input      string `json:"input"` // JSON dump of the rejected record
	Error      string `json:"error"`
	CreatedAt  string `json:"created_at"`
}
