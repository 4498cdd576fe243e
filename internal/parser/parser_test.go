package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pable/go-hltv-harvest/internal/model"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("load fixture %s: %v", name, err)
	}
	return string(data)
}

func TestParseResults(t *testing.T) {
	entries, err := ParseResults(loadFixture(t, "results.html"), 0)
	if err != nil {
		t.Fatalf("parse results: %v", err)
	}
	// The featured block at the top carries no timestamp attribute and must
	// not produce a duplicate entry.
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	first := entries[0]
	if first.MatchID != 2370931 {
		t.Fatalf("first match id = %d, want 2370931", first.MatchID)
	}
	if first.URL != "/matches/2370931/natus-vincere-vs-faze-iem-cologne-2024" {
		t.Fatalf("first url = %q", first.URL)
	}
	if first.TimestampMS != 1723996800000 {
		t.Fatalf("first timestamp = %d", first.TimestampMS)
	}
	if first.ForfeitHint {
		t.Fatal("played match flagged as forfeit")
	}

	if !entries[2].ForfeitHint {
		t.Fatal("walkover entry not flagged as forfeit")
	}
}

func TestParseResultsEmptyPage(t *testing.T) {
	entries, err := ParseResults("<html><body></body></html>", 9800)
	if err != nil {
		t.Fatalf("parse empty results: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries from an empty page", len(entries))
	}
}

func TestParseMatchOverviewBO3(t *testing.T) {
	ov, err := ParseMatchOverview(loadFixture(t, "overview_bo3.html"), 2370931)
	if err != nil {
		t.Fatalf("parse overview: %v", err)
	}

	m := ov.Match
	if m.Team1ID != 4608 || m.Team1Name != "Natus Vincere" {
		t.Fatalf("team1 = %d %q", m.Team1ID, m.Team1Name)
	}
	if m.Team2ID != 6667 || m.Team2Name != "FaZe" {
		t.Fatalf("team2 = %d %q", m.Team2ID, m.Team2Name)
	}
	if m.Team1Score == nil || *m.Team1Score != 2 || m.Team2Score == nil || *m.Team2Score != 1 {
		t.Fatalf("series score = %v-%v", m.Team1Score, m.Team2Score)
	}
	if m.MatchDate != "2024-08-18" {
		t.Fatalf("date = %q", m.MatchDate)
	}
	if m.EventID != 7148 || m.EventName != "IEM Cologne 2024" {
		t.Fatalf("event = %d %q", m.EventID, m.EventName)
	}
	if m.BestOf != 3 || !m.LAN || m.IsForfeit {
		t.Fatalf("format = bo%d lan=%v forfeit=%v", m.BestOf, m.LAN, m.IsForfeit)
	}

	if len(ov.Maps) != 3 {
		t.Fatalf("got %d maps, want 3", len(ov.Maps))
	}
	m1 := ov.Maps[0]
	if m1.MapName != "Mirage" || m1.MapStatsID == nil || *m1.MapStatsID != 171001 {
		t.Fatalf("map 1 = %+v", m1)
	}
	if *m1.Team1Rounds != 13 || *m1.Team2Rounds != 7 {
		t.Fatalf("map 1 score = %d-%d", *m1.Team1Rounds, *m1.Team2Rounds)
	}
	if *m1.Team1CTRounds != 8 || *m1.Team1TRounds != 5 || *m1.Team2CTRounds != 3 || *m1.Team2TRounds != 4 {
		t.Fatalf("map 1 sides = ct%d t%d / ct%d t%d",
			*m1.Team1CTRounds, *m1.Team1TRounds, *m1.Team2CTRounds, *m1.Team2TRounds)
	}

	// Overtime spans carry no side class: the totals include overtime but
	// the side breakdown covers regulation only.
	m3 := ov.Maps[2]
	if *m3.Team1Rounds != 16 || *m3.Team2Rounds != 14 {
		t.Fatalf("map 3 score = %d-%d", *m3.Team1Rounds, *m3.Team2Rounds)
	}
	if *m3.Team1CTRounds+*m3.Team1TRounds != 12 || *m3.Team2CTRounds+*m3.Team2TRounds != 12 {
		t.Fatalf("map 3 regulation sides = %d / %d",
			*m3.Team1CTRounds+*m3.Team1TRounds, *m3.Team2CTRounds+*m3.Team2TRounds)
	}

	if len(ov.Vetoes) != 7 {
		t.Fatalf("got %d veto steps, want 7", len(ov.Vetoes))
	}
	if ov.Vetoes[0].Action != model.VetoRemoved || *ov.Vetoes[0].TeamName != "Natus Vincere" || ov.Vetoes[0].MapName != "Vertigo" {
		t.Fatalf("veto 1 = %+v", ov.Vetoes[0])
	}
	if ov.Vetoes[2].Action != model.VetoPicked || ov.Vetoes[2].MapName != "Mirage" {
		t.Fatalf("veto 3 = %+v", ov.Vetoes[2])
	}
	last := ov.Vetoes[6]
	if last.Action != model.VetoLeftOver || last.TeamName != nil || last.MapName != "Nuke" {
		t.Fatalf("veto 7 = %+v", last)
	}

	if len(ov.Players) != 10 {
		t.Fatalf("got %d players, want 10", len(ov.Players))
	}
	if ov.Players[0].PlayerID != 7998 || ov.Players[0].PlayerName != "s1mple" || ov.Players[0].TeamNumber != 1 {
		t.Fatalf("player 1 = %+v", ov.Players[0])
	}
	if ov.Players[5].TeamID != 6667 || ov.Players[5].TeamNumber != 2 {
		t.Fatalf("player 6 = %+v", ov.Players[5])
	}
}

func TestParseMatchOverviewForfeit(t *testing.T) {
	ov, err := ParseMatchOverview(loadFixture(t, "overview_forfeit.html"), 2370929)
	if err != nil {
		t.Fatalf("parse forfeit overview: %v", err)
	}
	if !ov.Match.IsForfeit {
		t.Fatal("forfeit not detected")
	}
	if ov.Match.Team1Score != nil || ov.Match.Team2Score != nil {
		t.Fatalf("forfeit scores = %v-%v, want nil", ov.Match.Team1Score, ov.Match.Team2Score)
	}
	if len(ov.Maps) != 1 || !ov.Maps[0].IsForfeit() || !ov.Maps[0].IsUnplayed {
		t.Fatalf("forfeit maps = %+v", ov.Maps)
	}
	if ov.Maps[0].MapStatsID != nil {
		t.Fatal("forfeit map has a mapstatsid")
	}
	// The veto and roster blocks predate the walkover and still parse.
	if len(ov.Vetoes) != 7 {
		t.Fatalf("got %d vetoes, want 7", len(ov.Vetoes))
	}
	if ov.Vetoes[0].Action != model.VetoRemoved || *ov.Vetoes[0].TeamName != "Spirit" {
		t.Fatalf("veto 1 = %+v", ov.Vetoes[0])
	}
	if ov.Vetoes[6].Action != model.VetoLeftOver || ov.Vetoes[6].TeamName != nil {
		t.Fatalf("veto 7 = %+v", ov.Vetoes[6])
	}
	if len(ov.Players) != 10 {
		t.Fatalf("got %d players, want 10", len(ov.Players))
	}
	if ov.Players[0].PlayerID != 25491 || ov.Players[0].TeamID != 7020 {
		t.Fatalf("player 1 = %+v", ov.Players[0])
	}
	if ov.Players[5].TeamID != 7175 || ov.Players[5].TeamNumber != 2 {
		t.Fatalf("player 6 = %+v", ov.Players[5])
	}
}

func TestParseMatchOverviewForfeitBarePage(t *testing.T) {
	// Some walkover pages carry neither veto lines nor lineups; both are
	// tolerated only because the match is a forfeit.
	ov, err := ParseMatchOverview(loadFixture(t, "overview_forfeit_bare.html"), 2370929)
	if err != nil {
		t.Fatalf("parse bare forfeit overview: %v", err)
	}
	if !ov.Match.IsForfeit {
		t.Fatal("forfeit not detected")
	}
	if len(ov.Vetoes) != 0 || len(ov.Players) != 0 {
		t.Fatalf("bare page yielded %d vetoes, %d players", len(ov.Vetoes), len(ov.Players))
	}
}

func TestParseMatchOverviewBO1(t *testing.T) {
	ov, err := ParseMatchOverview(loadFixture(t, "overview_bo1.html"), 2370930)
	if err != nil {
		t.Fatalf("parse bo1 overview: %v", err)
	}
	if ov.Match.BestOf != 1 || ov.Match.LAN {
		t.Fatalf("format = bo%d lan=%v", ov.Match.BestOf, ov.Match.LAN)
	}
	// Best-of-1 pages show the single map's round score at match level.
	if *ov.Match.Team1Score != 16 || *ov.Match.Team2Score != 14 {
		t.Fatalf("bo1 score = %d-%d", *ov.Match.Team1Score, *ov.Match.Team2Score)
	}
	if len(ov.Maps) != 1 || ov.Maps[0].MapName != "Nuke" {
		t.Fatalf("bo1 maps = %+v", ov.Maps)
	}
}

func TestParseMapStatsRating30(t *testing.T) {
	ms, err := ParseMapStats(loadFixture(t, "mapstats_30.html"), 171001)
	if err != nil {
		t.Fatalf("parse map stats: %v", err)
	}
	if ms.RatingVersion != "3.0" {
		t.Fatalf("rating version = %q, want 3.0", ms.RatingVersion)
	}
	if len(ms.PlayerStats) != 10 {
		t.Fatalf("got %d player lines, want 10", len(ms.PlayerStats))
	}

	s := ms.PlayerStats[0]
	if s.PlayerID != 7998 || s.PlayerName != "s1mple" || s.TeamID != 4608 {
		t.Fatalf("player 1 = %+v", s)
	}
	if s.Kills != 24 || s.HSKills != 12 || s.Assists != 5 || s.FlashAssists != 2 {
		t.Fatalf("player 1 kills line = %+v", s)
	}
	if s.Deaths != 15 || s.TradedDeaths != 3 || s.KDDiff != 9 || s.FKDiff != 2 {
		t.Fatalf("player 1 diff line = %+v", s)
	}
	if s.KAST != 72.4 || s.ADR != 88.6 || s.Rating != 1.35 {
		t.Fatalf("player 1 rates = %+v", s)
	}
	if s.OpeningKills != 4 || s.OpeningDeaths != 2 || s.MultiKills != 3 || s.ClutchWins != 1 {
		t.Fatalf("player 1 extras = %+v", s)
	}
	if s.RoundSwing == nil || *s.RoundSwing != 2.14 {
		t.Fatalf("player 1 round swing = %v", s.RoundSwing)
	}
	if ms.PlayerStats[5].TeamID != 6667 {
		t.Fatalf("player 6 team = %d", ms.PlayerStats[5].TeamID)
	}

	if ms.Team1CTRounds != 8 || ms.Team1TRounds != 5 || ms.Team2CTRounds != 3 || ms.Team2TRounds != 4 {
		t.Fatalf("side breakdown = %d/%d %d/%d",
			ms.Team1CTRounds, ms.Team1TRounds, ms.Team2CTRounds, ms.Team2TRounds)
	}

	if len(ms.RoundOutcomes) != 20 {
		t.Fatalf("got %d rounds, want 20", len(ms.RoundOutcomes))
	}
	r1 := ms.RoundOutcomes[0]
	if r1.RoundNumber != 1 || r1.WinnerTeamID != 4608 || r1.WinnerSide != model.SideCT || r1.WinType != model.WinElimination {
		t.Fatalf("round 1 = %+v", r1)
	}
	r4 := ms.RoundOutcomes[3]
	if r4.WinnerTeamID != 6667 || r4.WinnerSide != model.SideT || r4.WinType != model.WinBombPlanted {
		t.Fatalf("round 4 = %+v", r4)
	}
	r6 := ms.RoundOutcomes[5]
	if r6.WinType != model.WinTime || r6.WinnerSide != model.SideCT {
		t.Fatalf("round 6 = %+v", r6)
	}
}

func TestParseMapStatsRating20Overtime(t *testing.T) {
	ms, err := ParseMapStats(loadFixture(t, "mapstats_20.html"), 171003)
	if err != nil {
		t.Fatalf("parse map stats: %v", err)
	}
	if ms.RatingVersion != "2.0" {
		t.Fatalf("rating version = %q, want 2.0", ms.RatingVersion)
	}
	for _, s := range ms.PlayerStats {
		if s.RoundSwing != nil {
			t.Fatalf("player %d has a round swing on a 2.0 page", s.PlayerID)
		}
	}

	// 24 regulation rounds in the first container plus 6 overtime rounds in
	// the second, numbered sequentially.
	if len(ms.RoundOutcomes) != 30 {
		t.Fatalf("got %d rounds, want 30", len(ms.RoundOutcomes))
	}
	last := ms.RoundOutcomes[29]
	if last.RoundNumber != 30 || last.WinnerTeamID != 4608 || last.WinnerSide != model.SideT {
		t.Fatalf("round 30 = %+v", last)
	}

	t1Wins := 0
	for _, r := range ms.RoundOutcomes {
		if r.WinnerTeamID == 4608 {
			t1Wins++
		}
	}
	if t1Wins != 16 {
		t.Fatalf("team1 won %d rounds, want 16", t1Wins)
	}
}

func TestParseMapStatsMissingTables(t *testing.T) {
	_, err := ParseMapStats(`<html><body>
		<div class="match-info-box">
			<a class="team-left" href="/team/1/a">A</a>
			<a class="team-right" href="/team/2/b">B</a>
		</div>
	</body></html>`, 171001)
	if err == nil {
		t.Fatal("expected error for page without stats tables")
	}
}

func TestParsePerformance(t *testing.T) {
	pd, err := ParsePerformance(loadFixture(t, "performance.html"), 171001)
	if err != nil {
		t.Fatalf("parse performance: %v", err)
	}
	if pd.RatingVersion != "3.0" {
		t.Fatalf("rating version = %q, want 3.0", pd.RatingVersion)
	}
	if len(pd.Players) != 10 {
		t.Fatalf("got %d players, want 10", len(pd.Players))
	}

	p := pd.Players[0]
	if p.PlayerID != 7998 || p.KPR != 0.80 || p.DPR != 0.50 || p.MKRating != 1.21 {
		t.Fatalf("player 1 = %+v", p)
	}

	// The "-" sentinel means no datapoint and parses to zero.
	if pd.Players[4].PlayerID != 21698 || pd.Players[4].MKRating != 0.0 {
		t.Fatalf("sentinel player = %+v", pd.Players[4])
	}

	if len(pd.KillMatrix) != 75 {
		t.Fatalf("got %d matrix cells, want 75", len(pd.KillMatrix))
	}
	first := pd.KillMatrix[0]
	if first.MatrixType != model.MatrixAll || first.RowPlayerID != 7998 || first.ColPlayerID != 9960 {
		t.Fatalf("first cell = %+v", first)
	}
	if first.RowKills != 5 || first.ColKills != 3 {
		t.Fatalf("first cell kills = %d:%d", first.RowKills, first.ColKills)
	}

	byType := map[model.MatrixType]int{}
	for _, e := range pd.KillMatrix {
		byType[e.MatrixType]++
	}
	if byType[model.MatrixAll] != 25 || byType[model.MatrixFirstKill] != 25 || byType[model.MatrixAWP] != 25 {
		t.Fatalf("matrix split = %+v", byType)
	}
}

func TestParsePerformanceBadConfig(t *testing.T) {
	_, err := ParsePerformance(`<html><body>
		<div class="player-card" data-player-id="7998" data-graph-config="not json"></div>
	</body></html>`, 171001)
	if err == nil {
		t.Fatal("expected error for invalid graph config")
	}
}

func TestParseEconomy(t *testing.T) {
	ed, err := ParseEconomy(loadFixture(t, "economy.html"), 171001)
	if err != nil {
		t.Fatalf("parse economy: %v", err)
	}
	if len(ed.Rounds) != 8 {
		t.Fatalf("got %d economy rows, want 8", len(ed.Rounds))
	}

	r1t1 := ed.Rounds[0]
	if r1t1.RoundNumber != 1 || r1t1.TeamID != 4608 || r1t1.EquipmentValue != 4200 {
		t.Fatalf("round 1 team 1 = %+v", r1t1)
	}
	if r1t1.BuyType != model.BuyFullEco || r1t1.Side != model.SideCT {
		t.Fatalf("round 1 team 1 buy = %s %s", r1t1.BuyType, r1t1.Side)
	}
	if ed.Rounds[1].Side != model.SideT {
		t.Fatalf("round 1 team 2 side = %s", ed.Rounds[1].Side)
	}

	// Round 3: FaZe wins by detonation, so they are T and NAVI is CT.
	r3t1, r3t2 := ed.Rounds[4], ed.Rounds[5]
	if r3t1.Side != model.SideCT || r3t2.Side != model.SideT {
		t.Fatalf("round 3 sides = %s / %s", r3t1.Side, r3t2.Side)
	}
	if r3t1.EquipmentValue != 27500 || r3t1.BuyType != model.BuyFullBuy {
		t.Fatalf("round 3 team 1 = %+v", r3t1)
	}
	if r3t2.BuyType != model.BuySemiBuy {
		t.Fatalf("round 3 team 2 buy = %s", r3t2.BuyType)
	}
}

func TestParseEconomyMissingBlob(t *testing.T) {
	_, err := ParseEconomy("<html><body><div>nothing here</div></body></html>", 171001)
	if err == nil {
		t.Fatal("expected error for page without the economy blob")
	}
}

func TestBuyTypeBuckets(t *testing.T) {
	cases := []struct {
		value int
		want  model.BuyType
	}{
		{0, model.BuyFullEco},
		{4999, model.BuyFullEco},
		{5000, model.BuySemiEco},
		{9999, model.BuySemiEco},
		{10000, model.BuySemiBuy},
		{19999, model.BuySemiBuy},
		{20000, model.BuyFullBuy},
		{31500, model.BuyFullBuy},
	}
	for _, tc := range cases {
		if got := model.BuyTypeForEquipment(tc.value); got != tc.want {
			t.Errorf("BuyTypeForEquipment(%d) = %s, want %s", tc.value, got, tc.want)
		}
	}
}
