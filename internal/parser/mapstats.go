package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// roundIcons maps a round-history icon basename to the winner's side and
// the win type.
var roundIcons = map[string]struct {
	side model.Side
	win  model.WinType
}{
	"ct_win":        {model.SideCT, model.WinElimination},
	"t_win":         {model.SideT, model.WinElimination},
	"bomb_exploded": {model.SideT, model.WinBombPlanted},
	"bomb_defused":  {model.SideCT, model.WinDefuse},
	"stopwatch":     {model.SideCT, model.WinTime},
}

// emptyRoundIcon fills the loser's row in the round history.
const emptyRoundIcon = "emptyHistory"

// ParseMapStats extracts the ten player lines, the flattened round history
// and the regulation side breakdown from a per-map stats page.
//
// Two rating schemas coexist: pages with a "Round swing" column are rating
// 3.0; older pages lack it and RoundSwing stays null on every line.
func ParseMapStats(html string, mapStatsID int64) (*model.MapStats, error) {
	doc, err := newDoc("mapstats", mapStatsID, html)
	if err != nil {
		return nil, err
	}

	ms := &model.MapStats{MapStatsID: mapStatsID}

	team1ID, team2ID, err := parseStatsTeams(doc, mapStatsID)
	if err != nil {
		return nil, err
	}

	half := parseHalfSpans(doc.Find(".match-info-box .half-scores").First())
	ms.Team1CTRounds, ms.Team1TRounds = half.team1CT, half.team1T
	ms.Team2CTRounds, ms.Team2TRounds = half.team2CT, half.team2T

	tables := doc.Find("table.stats-table")
	if tables.Length() != 2 {
		return nil, parseErr("mapstats", mapStatsID, "expected 2 stats tables, found %d", tables.Length())
	}

	ms.RatingVersion = "2.0"
	if headerHasSwing(tables.First()) {
		ms.RatingVersion = "3.0"
	}

	teamIDs := []int64{team1ID, team2ID}
	var bad error
	tables.EachWithBreak(func(ti int, table *goquery.Selection) bool {
		table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			stat, err := parsePlayerRow(row, teamIDs[ti], ms.RatingVersion, mapStatsID)
			if err != nil {
				bad = err
				return false
			}
			ms.PlayerStats = append(ms.PlayerStats, *stat)
			return true
		})
		return bad == nil
	})
	if bad != nil {
		return nil, bad
	}
	if len(ms.PlayerStats) == 0 {
		return nil, parseErr("mapstats", mapStatsID, "stats tables without player rows")
	}

	outcomes, err := parseRoundHistory(doc, mapStatsID, team1ID, team2ID)
	if err != nil {
		return nil, err
	}
	ms.RoundOutcomes = outcomes
	return ms, nil
}

// parseStatsTeams reads the two team links off the match info box.
func parseStatsTeams(doc *goquery.Document, mapStatsID int64) (int64, int64, error) {
	box := doc.Find(".match-info-box")
	team1ID, ok1 := pathID(box.Find("a.team-left").First().AttrOr("href", ""), "team")
	team2ID, ok2 := pathID(box.Find("a.team-right").First().AttrOr("href", ""), "team")
	if !ok1 || !ok2 {
		return 0, 0, parseErr("mapstats", mapStatsID, "match info box without both team links")
	}
	return team1ID, team2ID, nil
}

// headerHasSwing detects the rating 3.0 schema from the stable header text.
func headerHasSwing(table *goquery.Selection) bool {
	found := false
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		if strings.Contains(th.Text(), "Round swing") {
			found = true
		}
	})
	return found
}

// parsePlayerRow reads one player line. Cell contracts:
// st-kills "24 (12)" is kills (headshots), st-assists "5 (2)" is assists
// (flash assists), st-deaths "15 (3)" is deaths (traded deaths),
// st-opening "3 : 1" is opening kills : opening deaths.
func parsePlayerRow(row *goquery.Selection, teamID int64, ratingVersion string, mapStatsID int64) (*model.PlayerStat, error) {
	link := row.Find("td.st-player a[href]").First()
	playerID, ok := pathID(link.AttrOr("href", ""), "players")
	if !ok {
		return nil, parseErr("mapstats", mapStatsID, "player row without a player href")
	}

	stat := &model.PlayerStat{
		PlayerID:   playerID,
		PlayerName: strings.TrimSpace(link.Text()),
		TeamID:     teamID,
	}

	var ok2 bool
	if stat.Kills, stat.HSKills, ok2 = intPair(row.Find("td.st-kills").Text()); !ok2 {
		return nil, parseErr("mapstats", mapStatsID, "bad kills cell for player %d", playerID)
	}
	if stat.Assists, stat.FlashAssists, ok2 = intPair(row.Find("td.st-assists").Text()); !ok2 {
		return nil, parseErr("mapstats", mapStatsID, "bad assists cell for player %d", playerID)
	}
	if stat.Deaths, stat.TradedDeaths, ok2 = intPair(row.Find("td.st-deaths").Text()); !ok2 {
		return nil, parseErr("mapstats", mapStatsID, "bad deaths cell for player %d", playerID)
	}

	var err error
	if stat.KAST, err = atofLoose(row.Find("td.st-kdratio").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad KAST cell for player %d", playerID)
	}
	if stat.KDDiff, err = atoiLoose(row.Find("td.st-kddiff").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad K-D diff cell for player %d", playerID)
	}
	if stat.ADR, err = atofLoose(row.Find("td.st-adr").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad ADR cell for player %d", playerID)
	}
	if stat.FKDiff, err = atoiLoose(row.Find("td.st-fkdiff").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad FK diff cell for player %d", playerID)
	}
	if stat.OpeningKills, stat.OpeningDeaths, ok2 = intPair(row.Find("td.st-opening").Text()); !ok2 {
		return nil, parseErr("mapstats", mapStatsID, "bad opening cell for player %d", playerID)
	}
	if stat.MultiKills, err = atoiLoose(row.Find("td.st-multikills").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad multi-kills cell for player %d", playerID)
	}
	if stat.ClutchWins, err = atoiLoose(row.Find("td.st-clutches").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad clutches cell for player %d", playerID)
	}
	if stat.Rating, err = atofLoose(row.Find("td.st-rating").Text()); err != nil {
		return nil, parseErr("mapstats", mapStatsID, "bad rating cell for player %d", playerID)
	}

	if ratingVersion == "3.0" {
		swing, err := atofLoose(row.Find("td.st-swing").Text())
		if err != nil {
			return nil, parseErr("mapstats", mapStatsID, "bad round-swing cell for player %d", playerID)
		}
		stat.RoundSwing = &swing
	}
	return stat, nil
}

// parseRoundHistory flattens the round containers into a sequential round
// list. Three shapes occur: one container with no overtime, one container
// with inline single overtime, or two containers where the second is the
// extended overtime.
func parseRoundHistory(doc *goquery.Document, mapStatsID, team1ID, team2ID int64) ([]model.RoundOutcome, error) {
	containers := doc.Find(".round-history-con")
	if containers.Length() == 0 {
		return nil, parseErr("mapstats", mapStatsID, "no round history")
	}

	var outcomes []model.RoundOutcome
	roundNumber := 0
	var bad error
	containers.EachWithBreak(func(_ int, con *goquery.Selection) bool {
		rows := con.Find(".round-history-team-row")
		if rows.Length() != 2 {
			bad = parseErr("mapstats", mapStatsID, "round history container with %d team rows", rows.Length())
			return false
		}
		row1 := rows.Eq(0).Find("img.round-history-outcome")
		row2 := rows.Eq(1).Find("img.round-history-outcome")
		if row1.Length() != row2.Length() {
			bad = parseErr("mapstats", mapStatsID, "uneven round history rows (%d vs %d)", row1.Length(), row2.Length())
			return false
		}

		for col := 0; col < row1.Length(); col++ {
			icon1 := iconName(row1.Eq(col))
			icon2 := iconName(row2.Eq(col))

			var winner int64
			var icon string
			switch {
			case icon1 != emptyRoundIcon && icon2 == emptyRoundIcon:
				winner, icon = team1ID, icon1
			case icon2 != emptyRoundIcon && icon1 == emptyRoundIcon:
				winner, icon = team2ID, icon2
			default:
				// Trailing padding columns on the shorter half.
				continue
			}

			info, known := roundIcons[icon]
			if !known {
				bad = parseErr("mapstats", mapStatsID, "unknown round icon %q", icon)
				return false
			}
			roundNumber++
			outcomes = append(outcomes, model.RoundOutcome{
				RoundNumber:  roundNumber,
				WinnerTeamID: winner,
				WinnerSide:   info.side,
				WinType:      info.win,
			})
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(outcomes) == 0 {
		return nil, parseErr("mapstats", mapStatsID, "round history without rounds")
	}
	return outcomes, nil
}

// iconName returns the basename of a round icon src, without extension.
func iconName(img *goquery.Selection) string {
	src := img.AttrOr("src", "")
	if i := strings.LastIndex(src, "/"); i >= 0 {
		src = src[i+1:]
	}
	if i := strings.Index(src, "."); i >= 0 {
		src = src[:i]
	}
	return src
}
