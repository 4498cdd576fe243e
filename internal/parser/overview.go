package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pable/go-hltv-harvest/internal/model"
)

var bestOfRe = regexp.MustCompile(`Best of (\d+)`)

// ParseMatchOverview extracts the match row, its maps, the veto sequence and
// both rosters from a match overview page.
func ParseMatchOverview(html string, matchID int64) (*model.MatchOverview, error) {
	doc, err := newDoc("overview", matchID, html)
	if err != nil {
		return nil, err
	}

	ov := &model.MatchOverview{}
	ov.Match.MatchID = matchID

	if err := parseTeamsBox(doc, &ov.Match); err != nil {
		return nil, err
	}
	if err := parseMatchMeta(doc, &ov.Match); err != nil {
		return nil, err
	}

	maps, err := parseMapHolders(doc, matchID)
	if err != nil {
		return nil, err
	}
	ov.Maps = maps

	// A walkover carries the sentinel map name; the match-level flag drives
	// the lighter validation model and excludes the match from later stages.
	for _, m := range ov.Maps {
		if m.IsForfeit() {
			ov.Match.IsForfeit = true
			break
		}
	}

	vetoes, err := parseVetoBox(doc, matchID)
	if err != nil {
		return nil, err
	}
	ov.Vetoes = vetoes

	players, err := parseLineups(doc, matchID, ov.Match.IsForfeit)
	if err != nil {
		return nil, err
	}
	ov.Players = players
	return ov, nil
}

// parseTeamsBox reads the two team blocks: id, name and series score.
func parseTeamsBox(doc *goquery.Document, m *model.Match) error {
	teams := doc.Find(".teamsBox .team")
	if teams.Length() != 2 {
		return parseErr("overview", m.MatchID, "expected 2 team blocks, found %d", teams.Length())
	}

	var bad error
	teams.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href := sel.Find("a[href]").First().AttrOr("href", "")
		id, ok := pathID(href, "team")
		if !ok {
			bad = parseErr("overview", m.MatchID, "team block %d without a team href (%q)", i+1, href)
			return false
		}
		name := strings.TrimSpace(sel.Find(".teamName").Text())
		if name == "" {
			bad = parseErr("overview", m.MatchID, "team block %d without a name", i+1)
			return false
		}

		// The score div is absent on some forfeit pages; the score stays null.
		var score *int
		scoreText := strings.TrimSpace(sel.Find(".won, .lost, .tie").First().Text())
		if scoreText != "" {
			v, err := strconv.Atoi(scoreText)
			if err != nil {
				bad = parseErr("overview", m.MatchID, "bad score %q for team block %d", scoreText, i+1)
				return false
			}
			score = &v
		}

		if i == 0 {
			m.Team1ID, m.Team1Name, m.Team1Score = id, name, score
		} else {
			m.Team2ID, m.Team2Name, m.Team2Score = id, name, score
		}
		return true
	})
	return bad
}

// parseMatchMeta reads the date, the event, and the best-of / LAN line.
func parseMatchMeta(doc *goquery.Document, m *model.Match) error {
	unixAttr := doc.Find(".timeAndEvent .date").First().AttrOr("data-unix", "")
	ms, err := strconv.ParseInt(strings.TrimSpace(unixAttr), 10, 64)
	if err != nil {
		return parseErr("overview", m.MatchID, "bad date attribute %q", unixAttr)
	}
	m.MatchDate = time.UnixMilli(ms).UTC().Format("2006-01-02")

	eventLink := doc.Find(".timeAndEvent .event a[href]").First()
	if id, ok := pathID(eventLink.AttrOr("href", ""), "events"); ok {
		m.EventID = id
		m.EventName = strings.TrimSpace(eventLink.Text())
	}

	desc := doc.Find(".maps .veto-box").First().Text()
	bo := bestOfRe.FindStringSubmatch(desc)
	if bo == nil {
		return parseErr("overview", m.MatchID, "no best-of in match description %q", strings.TrimSpace(desc))
	}
	m.BestOf, _ = strconv.Atoi(bo[1])
	m.LAN = strings.Contains(desc, "LAN")
	return nil
}

// parseMapHolders reads each map: name, optional mapstatsid, total scores
// and the regulation-only CT/T half breakdown.
func parseMapHolders(doc *goquery.Document, matchID int64) ([]model.Map, error) {
	holders := doc.Find(".mapholder")
	if holders.Length() == 0 {
		return nil, parseErr("overview", matchID, "no map holders")
	}

	var maps []model.Map
	var bad error
	holders.Each(func(i int, sel *goquery.Selection) {
		if bad != nil {
			return
		}
		mp := model.Map{
			MatchID:   matchID,
			MapNumber: i + 1,
			MapName:   strings.TrimSpace(sel.Find(".mapname").First().Text()),
		}
		if mp.MapName == "" {
			bad = parseErr("overview", matchID, "map holder %d without a map name", i+1)
			return
		}

		if href, ok := sel.Find("a.results-stats").First().Attr("href"); ok {
			if id, found := pathID(href, "mapstatsid"); found {
				mp.MapStatsID = &id
			}
		}

		scores := sel.Find(".results-team-score")
		if scores.Length() >= 2 {
			t1, err1 := atoiLoose(scores.Eq(0).Text())
			t2, err2 := atoiLoose(scores.Eq(1).Text())
			if err1 != nil || err2 != nil {
				// A dash here means the map was never played.
				mp.IsUnplayed = true
			} else {
				mp.Team1Rounds, mp.Team2Rounds = &t1, &t2
			}
		} else {
			mp.IsUnplayed = true
		}

		if !mp.IsUnplayed && mp.MapStatsID != nil {
			half := sel.Find(".results-center-half-score").First()
			if half.Length() > 0 {
				h := parseHalfSpans(half)
				mp.Team1CTRounds, mp.Team1TRounds = &h.team1CT, &h.team1T
				mp.Team2CTRounds, mp.Team2TRounds = &h.team2CT, &h.team2T
			}
		}
		maps = append(maps, mp)
	})
	if bad != nil {
		return nil, bad
	}
	return maps, nil
}

// halfBreakdown accumulates per-team regulation CT/T rounds.
type halfBreakdown struct {
	team1CT, team1T, team2CT, team2T int
}

// parseHalfSpans walks the half-score spans in document order. Spans
// alternate team1/team2 within each half and carry a "ct" or "t" class for
// regulation halves only; overtime spans have no side class and contribute
// nothing here (they still count in the map totals).
func parseHalfSpans(sel *goquery.Selection) halfBreakdown {
	var h halfBreakdown
	sel.Find("span").Each(func(i int, span *goquery.Selection) {
		v, err := atoiLoose(span.Text())
		if err != nil {
			return
		}
		isTeam1 := i%2 == 0
		switch {
		case span.HasClass("ct"):
			if isTeam1 {
				h.team1CT += v
			} else {
				h.team2CT += v
			}
		case span.HasClass("t"):
			if isTeam1 {
				h.team1T += v
			} else {
				h.team2T += v
			}
		}
	})
	return h
}

// parseVetoBox reads the seven numbered veto lines, e.g.
// "1. NAVI removed Anubis" or "7. Nuke was left over".
func parseVetoBox(doc *goquery.Document, matchID int64) ([]model.VetoStep, error) {
	// Forfeit pages and some best-of-1s carry no veto box at all.
	box := doc.Find(".maps .veto-box").Eq(1)
	if box.Length() == 0 {
		return nil, nil
	}

	var steps []model.VetoStep
	var bad error
	box.Find("div").Each(func(_ int, line *goquery.Selection) {
		if bad != nil {
			return
		}
		text := strings.TrimSpace(line.Text())
		if text == "" || line.Children().Length() > 0 {
			return
		}
		dot := strings.Index(text, ".")
		if dot < 1 {
			return
		}
		step, err := strconv.Atoi(text[:dot])
		if err != nil {
			return
		}
		rest := strings.TrimSpace(text[dot+1:])

		vs := model.VetoStep{MatchID: matchID, StepNumber: step}
		switch {
		case strings.HasSuffix(rest, "was left over"):
			vs.Action = model.VetoLeftOver
			vs.MapName = strings.TrimSpace(strings.TrimSuffix(rest, "was left over"))
		case strings.Contains(rest, " removed "):
			team, mapName, _ := strings.Cut(rest, " removed ")
			vs.Action = model.VetoRemoved
			vs.TeamName = &team
			vs.MapName = mapName
		case strings.Contains(rest, " picked "):
			team, mapName, _ := strings.Cut(rest, " picked ")
			vs.Action = model.VetoPicked
			vs.TeamName = &team
			vs.MapName = mapName
		default:
			bad = parseErr("overview", matchID, "unrecognised veto line %q", text)
			return
		}
		steps = append(steps, vs)
	})
	if bad != nil {
		return nil, bad
	}
	return steps, nil
}

// parseLineups reads the two roster blocks. Forfeit pages often omit them.
func parseLineups(doc *goquery.Document, matchID int64, forfeit bool) ([]model.MatchPlayer, error) {
	lineups := doc.Find(".lineups .lineup")
	if lineups.Length() != 2 {
		if forfeit {
			return nil, nil
		}
		return nil, parseErr("overview", matchID, "expected 2 lineups, found %d", lineups.Length())
	}

	var players []model.MatchPlayer
	var bad error
	lineups.EachWithBreak(func(i int, lineup *goquery.Selection) bool {
		teamHref := lineup.Find(".box-headline a[href]").First().AttrOr("href", "")
		teamID, ok := pathID(teamHref, "team")
		if !ok {
			bad = parseErr("overview", matchID, "lineup %d without a team href (%q)", i+1, teamHref)
			return false
		}
		lineup.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			playerID, found := pathID(link.AttrOr("href", ""), "player")
			if !found {
				return
			}
			name := strings.TrimSpace(link.Text())
			players = append(players, model.MatchPlayer{
				MatchID:    matchID,
				PlayerID:   playerID,
				PlayerName: name,
				TeamID:     teamID,
				TeamNumber: i + 1,
			})
		})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(players) == 0 && !forfeit {
		return nil, parseErr("overview", matchID, "lineups without players")
	}
	return players, nil
}
