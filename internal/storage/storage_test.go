package storage

import (
	"path/filepath"
	"testing"

	"github.com/pable/go-hltv-harvest/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "harvest.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(v int) *int          { return &v }
func int64Ptr(v int64) *int64    { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string    { return &v }

func testOverview(matchID int64) *model.MatchOverview {
	ov := &model.MatchOverview{
		Match: model.Match{
			MatchID:    matchID,
			URL:        "https://www.hltv.org/matches/2370931/navi-vs-faze",
			Team1ID:    4608,
			Team1Name:  "Natus Vincere",
			Team2ID:    6667,
			Team2Name:  "FaZe",
			Team1Score: intPtr(2),
			Team2Score: intPtr(1),
			EventID:    7148,
			EventName:  "IEM Cologne 2024",
			BestOf:     3,
			LAN:        true,
			MatchDate:  "2024-08-18",
		},
		Maps: []model.Map{
			{
				MatchID: matchID, MapNumber: 1, MapName: "Mirage",
				MapStatsID:  int64Ptr(171001),
				Team1Rounds: intPtr(13), Team2Rounds: intPtr(7),
				Team1CTRounds: intPtr(8), Team1TRounds: intPtr(5),
				Team2CTRounds: intPtr(4), Team2TRounds: intPtr(3),
			},
			{
				MatchID: matchID, MapNumber: 2, MapName: "Inferno",
				MapStatsID:  int64Ptr(171002),
				Team1Rounds: intPtr(9), Team2Rounds: intPtr(13),
				Team1CTRounds: intPtr(5), Team1TRounds: intPtr(4),
				Team2CTRounds: intPtr(6), Team2TRounds: intPtr(7),
			},
			{
				MatchID: matchID, MapNumber: 3, MapName: "Nuke",
				MapStatsID:  int64Ptr(171003),
				Team1Rounds: intPtr(13), Team2Rounds: intPtr(11),
				Team1CTRounds: intPtr(7), Team1TRounds: intPtr(6),
				Team2CTRounds: intPtr(5), Team2TRounds: intPtr(6),
			},
		},
		Vetoes: []model.VetoStep{
			{MatchID: matchID, StepNumber: 1, Action: model.VetoRemoved, TeamName: strPtr("Natus Vincere"), MapName: "Vertigo"},
			{MatchID: matchID, StepNumber: 2, Action: model.VetoRemoved, TeamName: strPtr("FaZe"), MapName: "Anubis"},
			{MatchID: matchID, StepNumber: 3, Action: model.VetoPicked, TeamName: strPtr("Natus Vincere"), MapName: "Mirage"},
			{MatchID: matchID, StepNumber: 4, Action: model.VetoPicked, TeamName: strPtr("FaZe"), MapName: "Inferno"},
			{MatchID: matchID, StepNumber: 5, Action: model.VetoRemoved, TeamName: strPtr("Natus Vincere"), MapName: "Ancient"},
			{MatchID: matchID, StepNumber: 6, Action: model.VetoRemoved, TeamName: strPtr("FaZe"), MapName: "Dust2"},
			{MatchID: matchID, StepNumber: 7, Action: model.VetoLeftOver, MapName: "Nuke"},
		},
		Players: []model.MatchPlayer{
			{MatchID: matchID, PlayerID: 7998, PlayerName: "s1mple", TeamID: 4608, TeamNumber: 1},
			{MatchID: matchID, PlayerID: 9960, PlayerName: "frozen", TeamID: 6667, TeamNumber: 2},
		},
	}
	return ov
}

func testPlayerStat(matchID int64, mapNumber int, playerID, teamID int64) model.PlayerStat {
	return model.PlayerStat{
		MatchID: matchID, MapNumber: mapNumber,
		PlayerID: playerID, PlayerName: "player", TeamID: teamID,
		Kills: 20, Deaths: 15, Assists: 4, HSKills: 10,
		KDDiff: 5, ADR: 82.4, KAST: 71.2, FKDiff: 2, Rating: 1.21,
		OpeningKills: 4, OpeningDeaths: 2, MultiKills: 3, ClutchWins: 1,
		TradedDeaths: 5,
	}
}

func TestMigrateSetsSchemaVersion(t *testing.T) {
	db := openTestDB(t)
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 1 {
		t.Fatalf("schema version = %d, want 1", v)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harvest.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()
	if v, _ := db.SchemaVersion(); v != 1 {
		t.Fatalf("schema version after reopen = %d, want 1", v)
	}
}

func TestUpsertMatchOverviewRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ov := testOverview(2370931)
	if err := db.UpsertMatchOverview(ov); err != nil {
		t.Fatalf("upsert overview: %v", err)
	}

	m, err := db.GetMatch(2370931)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if m == nil {
		t.Fatal("match not found after upsert")
	}
	if m.Team1Name != "Natus Vincere" || m.BestOf != 3 || !m.LAN {
		t.Fatalf("match mismatch: %+v", m)
	}
	if m.Team1Score == nil || *m.Team1Score != 2 {
		t.Fatalf("team1 score = %v, want 2", m.Team1Score)
	}

	maps, err := db.GetMaps(2370931)
	if err != nil {
		t.Fatalf("get maps: %v", err)
	}
	if len(maps) != 3 {
		t.Fatalf("got %d maps, want 3", len(maps))
	}
	if maps[0].MapStatsID == nil || *maps[0].MapStatsID != 171001 {
		t.Fatalf("map 1 mapstatsid = %v, want 171001", maps[0].MapStatsID)
	}

	vetoes, err := db.GetVetoSteps(2370931)
	if err != nil {
		t.Fatalf("get vetoes: %v", err)
	}
	if len(vetoes) != 7 {
		t.Fatalf("got %d veto steps, want 7", len(vetoes))
	}
	if vetoes[6].Action != model.VetoLeftOver || vetoes[6].TeamName != nil {
		t.Fatalf("step 7 = %+v, want left_over with nil team", vetoes[6])
	}

	players, err := db.GetMatchPlayers(2370931)
	if err != nil {
		t.Fatalf("get players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
}

func TestUpsertMatchOverviewIdempotent(t *testing.T) {
	db := openTestDB(t)
	ov := testOverview(2370931)
	if err := db.UpsertMatchOverview(ov); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	ov.Match.EventName = "IEM Cologne 2024 (corrected)"
	if err := db.UpsertMatchOverview(ov); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	m, err := db.GetMatch(2370931)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if m.EventName != "IEM Cologne 2024 (corrected)" {
		t.Fatalf("event name = %q, not updated", m.EventName)
	}
	maps, _ := db.GetMaps(2370931)
	if len(maps) != 3 {
		t.Fatalf("got %d maps after re-upsert, want 3", len(maps))
	}
}

func TestForfeitMatchStoresNullScores(t *testing.T) {
	db := openTestDB(t)
	ov := &model.MatchOverview{
		Match: model.Match{
			MatchID: 2370999, URL: "https://www.hltv.org/matches/2370999/a-vs-b",
			Team1ID: 1, Team1Name: "A", Team2ID: 2, Team2Name: "B",
			BestOf: 3, MatchDate: "2024-08-18", IsForfeit: true,
		},
		Maps: []model.Map{
			{MatchID: 2370999, MapNumber: 1, MapName: model.ForfeitMapName},
		},
	}
	if err := db.UpsertMatchOverview(ov); err != nil {
		t.Fatalf("upsert forfeit: %v", err)
	}
	m, err := db.GetMatch(2370999)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if !m.IsForfeit || m.Team1Score != nil || m.Team2Score != nil {
		t.Fatalf("forfeit stored wrong: %+v", m)
	}
	maps, _ := db.GetMaps(2370999)
	if len(maps) != 1 || !maps[0].IsForfeit() || maps[0].MapStatsID != nil {
		t.Fatalf("forfeit map stored wrong: %+v", maps)
	}
}

func TestDiscoveryBatchPreservesStatus(t *testing.T) {
	db := openTestDB(t)
	entries := []model.DiscoveryEntry{
		{MatchID: 100, URL: "https://www.hltv.org/matches/100/a-vs-b", Offset: 0, DiscoveredAt: 1723968000000},
		{MatchID: 101, URL: "https://www.hltv.org/matches/101/c-vs-d", Offset: 0, ForfeitHint: true},
	}
	if err := db.InsertDiscoveryBatch(entries, 0); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	done, err := db.DiscoveryPageDone(0)
	if err != nil {
		t.Fatalf("page done: %v", err)
	}
	if !done {
		t.Fatal("offset 0 not marked complete")
	}
	if done, _ := db.DiscoveryPageDone(100); done {
		t.Fatal("offset 100 should not be complete")
	}

	if err := db.MarkDiscoveryStatus(100, model.StatusScraped); err != nil {
		t.Fatalf("mark scraped: %v", err)
	}

	// Re-running discovery over the same page must not reset scraped entries.
	entries[0].URL = "https://www.hltv.org/matches/100/a-vs-b-rematch"
	if err := db.InsertDiscoveryBatch(entries, 0); err != nil {
		t.Fatalf("re-insert batch: %v", err)
	}
	e, err := db.GetDiscoveryEntry(100)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if e.Status != model.StatusScraped {
		t.Fatalf("status = %s after re-discovery, want scraped", e.Status)
	}
	if e.URL != "https://www.hltv.org/matches/100/a-vs-b-rematch" {
		t.Fatalf("url not refreshed: %s", e.URL)
	}

	pending, err := db.PendingOverviews(10)
	if err != nil {
		t.Fatalf("pending overviews: %v", err)
	}
	if len(pending) != 1 || pending[0].MatchID != 101 {
		t.Fatalf("pending = %+v, want only match 101", pending)
	}
	if !pending[0].ForfeitHint {
		t.Fatal("forfeit hint lost")
	}
}

func TestMarkDiscoveryStatusUnknownEntry(t *testing.T) {
	db := openTestDB(t)
	if err := db.MarkDiscoveryStatus(999, model.StatusFailed); err == nil {
		t.Fatal("expected error marking unknown entry")
	}
}

func TestPendingQueuesAdvanceThroughStages(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertMatchOverview(testOverview(2370931)); err != nil {
		t.Fatalf("upsert overview: %v", err)
	}

	pending, err := db.PendingMapStats(10)
	if err != nil {
		t.Fatalf("pending map stats: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d pending maps, want 3", len(pending))
	}
	if pending[0].MapNumber != 1 || pending[0].MapStatsID != 171001 || pending[0].BestOf != 3 {
		t.Fatalf("first pending map = %+v", pending[0])
	}

	// Stage 1 for map 1 only.
	stats := []model.PlayerStat{testPlayerStat(2370931, 1, 7998, 4608)}
	outcomes := []model.RoundOutcome{
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 1, WinnerTeamID: 4608, WinnerSide: model.SideCT, WinType: model.WinElimination},
	}
	if err := db.UpsertMapStats(stats, outcomes); err != nil {
		t.Fatalf("upsert map stats: %v", err)
	}

	pending, _ = db.PendingMapStats(10)
	if len(pending) != 2 || pending[0].MapNumber != 2 {
		t.Fatalf("pending map stats after stage 1 = %+v", pending)
	}

	perf, err := db.PendingPerfEconomy(10)
	if err != nil {
		t.Fatalf("pending perf: %v", err)
	}
	if len(perf) != 1 || perf[0].MapNumber != 1 {
		t.Fatalf("pending perf = %+v, want only map 1", perf)
	}

	// Stage 2 fills the performance columns on the same row.
	merged := stats[0]
	merged.KPR = floatPtr(0.78)
	merged.DPR = floatPtr(0.61)
	merged.MKRating = floatPtr(1.05)
	if _, err := db.UpsertPerfEconomy([]model.PlayerStat{merged}, nil, nil); err != nil {
		t.Fatalf("upsert perf: %v", err)
	}
	perf, _ = db.PendingPerfEconomy(10)
	if len(perf) != 0 {
		t.Fatalf("pending perf after stage 2 = %+v, want none", perf)
	}
}

func TestPerfUpsertPreservesTraditionalColumns(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertMatchOverview(testOverview(2370931)); err != nil {
		t.Fatalf("upsert overview: %v", err)
	}

	base := testPlayerStat(2370931, 1, 7998, 4608)
	base.Kills = 27
	base.RoundSwing = floatPtr(2.4)
	if err := db.UpsertMapStats([]model.PlayerStat{base}, nil); err != nil {
		t.Fatalf("stage 1: %v", err)
	}

	// The perf stage writes whole rows, so it must carry stage-1 values.
	merged := base
	merged.KPR = floatPtr(0.81)
	if _, err := db.UpsertPerfEconomy([]model.PlayerStat{merged}, nil, nil); err != nil {
		t.Fatalf("stage 2: %v", err)
	}

	got, err := db.GetPlayerStats(2370931, 1)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Kills != 27 {
		t.Fatalf("kills = %d after perf upsert, want 27", got[0].Kills)
	}
	if got[0].RoundSwing == nil || *got[0].RoundSwing != 2.4 {
		t.Fatalf("round swing = %v, want 2.4", got[0].RoundSwing)
	}
	if got[0].KPR == nil || *got[0].KPR != 0.81 {
		t.Fatalf("kpr = %v, want 0.81", got[0].KPR)
	}
}

func TestEconomyRoundsFilteredAgainstOutcomes(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertMatchOverview(testOverview(2370931)); err != nil {
		t.Fatalf("upsert overview: %v", err)
	}
	outcomes := []model.RoundOutcome{
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 1, WinnerTeamID: 4608, WinnerSide: model.SideCT, WinType: model.WinElimination},
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 2, WinnerTeamID: 6667, WinnerSide: model.SideT, WinType: model.WinBombPlanted},
	}
	if err := db.UpsertMapStats([]model.PlayerStat{testPlayerStat(2370931, 1, 7998, 4608)}, outcomes); err != nil {
		t.Fatalf("stage 1: %v", err)
	}

	economy := []model.RoundEconomy{
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 1, TeamID: 4608, EquipmentValue: 4200, BuyType: model.BuyFullEco, Side: model.SideCT},
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 2, TeamID: 4608, EquipmentValue: 21500, BuyType: model.BuyFullBuy, Side: model.SideCT},
		// Round 3 has no outcome row and must be dropped, not error.
		{MatchID: 2370931, MapNumber: 1, RoundNumber: 3, TeamID: 4608, EquipmentValue: 26000, BuyType: model.BuyFullBuy, Side: model.SideCT},
	}
	dropped, err := db.UpsertPerfEconomy(nil, nil, economy)
	if err != nil {
		t.Fatalf("upsert economy: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	rows, err := db.GetRoundEconomy(2370931, 1)
	if err != nil {
		t.Fatalf("get economy: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d economy rows, want 2", len(rows))
	}
	if rows[1].EquipmentValue != 21500 || rows[1].BuyType != model.BuyFullBuy {
		t.Fatalf("round 2 economy = %+v", rows[1])
	}
}

func TestKillMatrixRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertMatchOverview(testOverview(2370931)); err != nil {
		t.Fatalf("upsert overview: %v", err)
	}
	matrix := []model.KillMatrixEntry{
		{MatchID: 2370931, MapNumber: 1, MatrixType: model.MatrixAll, RowPlayerID: 7998, ColPlayerID: 9960, RowKills: 5, ColKills: 3},
		{MatchID: 2370931, MapNumber: 1, MatrixType: model.MatrixAWP, RowPlayerID: 7998, ColPlayerID: 9960, RowKills: 2, ColKills: 0},
	}
	if _, err := db.UpsertPerfEconomy(nil, matrix, nil); err != nil {
		t.Fatalf("upsert matrix: %v", err)
	}
	got, err := db.GetKillMatrix(2370931, 1)
	if err != nil {
		t.Fatalf("get matrix: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matrix cells, want 2", len(got))
	}
}

func TestQuarantineInsertAndList(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertQuarantine(model.QuarantineEntry{
		EntityType: "player_stat",
		MatchID:    2370931,
		MapNumber:  intPtr(2),
		Input:      `{"kills":5,"hs_kills":9}`,
		Error:      "hs_kills 9 exceeds kills 5",
	})
	if err != nil {
		t.Fatalf("insert quarantine: %v", err)
	}
	err = db.InsertQuarantine(model.QuarantineEntry{
		EntityType: "match",
		MatchID:    2370999,
		Input:      `{}`,
		Error:      "team1_id equals team2_id",
	})
	if err != nil {
		t.Fatalf("insert quarantine: %v", err)
	}

	list, err := db.ListQuarantine(10)
	if err != nil {
		t.Fatalf("list quarantine: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d entries, want 2", len(list))
	}
	// Newest first.
	if list[0].EntityType != "match" || list[1].MapNumber == nil || *list[1].MapNumber != 2 {
		t.Fatalf("quarantine order wrong: %+v", list)
	}
}

func TestGetProgress(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertDiscoveryBatch([]model.DiscoveryEntry{
		{MatchID: 2370931, URL: "https://www.hltv.org/matches/2370931/navi-vs-faze", Offset: 0},
	}, 0); err != nil {
		t.Fatalf("discovery: %v", err)
	}
	if err := db.UpsertMatchOverview(testOverview(2370931)); err != nil {
		t.Fatalf("overview: %v", err)
	}
	if err := db.MarkDiscoveryStatus(2370931, model.StatusScraped); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := db.UpsertMapStats([]model.PlayerStat{testPlayerStat(2370931, 1, 7998, 4608)}, nil); err != nil {
		t.Fatalf("stats: %v", err)
	}

	p, err := db.GetProgress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.DiscoveredScraped != 1 || p.DiscoveredPending != 0 {
		t.Fatalf("discovery counts wrong: %+v", p)
	}
	if p.Matches != 1 || p.MapsWithStatsID != 3 {
		t.Fatalf("match counts wrong: %+v", p)
	}
	if p.MapsWithStats != 1 || p.MapsWithPerf != 0 {
		t.Fatalf("stage counts wrong: %+v", p)
	}
}
