package model

// ---- Typed records emitted by the parsers ----

// ResultEntry is one match link scraped from a results listing page.
type ResultEntry struct {
	MatchID     int64  `json:"match_id"`
	URL         string `json:"url"`
	ForfeitHint bool   `json:"forfeit_hint"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// MatchOverview is everything the match overview page yields: the match row
// plus its maps, veto steps and roster.
type MatchOverview struct {
	Match   Match         `json:"match"`
	Maps    []Map         `json:"maps"`
	Vetoes  []VetoStep    `json:"vetoes"`
	Players []MatchPlayer `json:"players"`
}

// MapStats is the parse result of one per-map stats page: ten player lines,
// the round history, and the regulation side breakdown.
type MapStats struct {
	MapStatsID    int64          `json:"mapstatsid"`
	RatingVersion string         `json:"rating_version"` // "2.0" or "3.0"
	PlayerStats   []PlayerStat   `json:"player_stats"`
	RoundOutcomes []RoundOutcome `json:"round_outcomes"`

	Team1CTRounds int `json:"team1_ct_rounds"`
	Team1TRounds  int `json:"team1_t_rounds"`
	Team2CTRounds int `json:"team2_ct_rounds"`
	Team2TRounds  int `json:"team2_t_rounds"`
}

// PlayerPerformance carries the per-player rate metrics from the
// performance page.
type PlayerPerformance struct {
	PlayerID int64   `json:"player_id"`
	KPR      float64 `json:"kpr"`
	DPR      float64 `json:"dpr"`
	MKRating float64 `json:"mk_rating"`
}

// PerformanceData is the parse result of one performance page.
type PerformanceData struct {
	MapStatsID    int64               `json:"mapstatsid"`
	RatingVersion string              `json:"rating_version"`
	Players       []PlayerPerformance `json:"players"`
	KillMatrix    []KillMatrixEntry   `json:"kill_matrix"`
}

// EconomyData is the parse result of one economy page: two rows per round
// actually present in the page's embedded JSON (overtime rounds may be
// absent on shorter regulation formats).
type EconomyData struct {
	MapStatsID int64          `json:"mapstatsid"`
	Rounds     []RoundEconomy `json:"rounds"`
}
