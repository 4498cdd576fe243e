package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// matrixPanes maps the kill-matrix tab pane ids to matrix types.
var matrixPanes = []struct {
	pane string
	typ  model.MatrixType
}{
	{"#ALL-content", model.MatrixAll},
	{"#FIRST_KILL-content", model.MatrixFirstKill},
	{"#AWP-content", model.MatrixAWP},
}

// ParsePerformance extracts the per-player rate metrics and the three 5x5
// kill matrices from a performance page.
//
// The rate metrics live in a JSON graph configuration attached to each
// player card. The "displayValue" field carries the real number (the
// normalised "value" field is scaled for bar rendering); the sentinel "-"
// means no datapoint and maps to 0.0. The rating schema is read off the
// last bar's label.
func ParsePerformance(html string, mapStatsID int64) (*model.PerformanceData, error) {
	doc, err := newDoc("performance", mapStatsID, html)
	if err != nil {
		return nil, err
	}

	pd := &model.PerformanceData{MapStatsID: mapStatsID}

	cards := doc.Find(".player-card[data-player-id]")
	if cards.Length() == 0 {
		return nil, parseErr("performance", mapStatsID, "no player cards")
	}

	var bad error
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		player, err := parsePlayerCard(card, mapStatsID)
		if err != nil {
			bad = err
			return false
		}
		pd.Players = append(pd.Players, *player)

		cfg := card.AttrOr("data-graph-config", "")
		bars := gjson.Get(cfg, "bars").Array()
		if len(bars) > 0 {
			label := bars[len(bars)-1].Get("label").String()
			if strings.Contains(label, "2.0") {
				pd.RatingVersion = "2.0"
			} else {
				pd.RatingVersion = "3.0"
			}
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}

	matrix, err := parseKillMatrices(doc, mapStatsID)
	if err != nil {
		return nil, err
	}
	pd.KillMatrix = matrix
	return pd, nil
}

// parsePlayerCard reads one card's embedded graph config.
func parsePlayerCard(card *goquery.Selection, mapStatsID int64) (*model.PlayerPerformance, error) {
	idAttr := card.AttrOr("data-player-id", "")
	playerID, ok := pathID("/players/"+idAttr, "players")
	if !ok {
		return nil, parseErr("performance", mapStatsID, "bad player id attribute %q", idAttr)
	}

	cfg := card.AttrOr("data-graph-config", "")
	if !gjson.Valid(cfg) {
		return nil, parseErr("performance", mapStatsID, "invalid graph config for player %d", playerID)
	}

	p := &model.PlayerPerformance{PlayerID: playerID}
	found := 0
	for _, bar := range gjson.Get(cfg, "bars").Array() {
		label := bar.Get("label").String()
		value := displayValue(bar)
		switch {
		case strings.Contains(label, "Kills per round"):
			p.KPR = value
			found++
		case strings.Contains(label, "Deaths per round"):
			p.DPR = value
			found++
		case strings.Contains(label, "Multi-kill rating"):
			p.MKRating = value
			found++
		}
	}
	if found < 3 {
		return nil, parseErr("performance", mapStatsID, "graph config for player %d has %d of 3 metrics", playerID, found)
	}
	return p, nil
}

// displayValue reads a bar's display value; "-" means no datapoint.
func displayValue(bar gjson.Result) float64 {
	dv := strings.TrimSpace(bar.Get("displayValue").String())
	if dv == "" || dv == "-" {
		return 0.0
	}
	v, err := atofLoose(dv)
	if err != nil {
		return 0.0
	}
	return v
}

// parseKillMatrices reads the three tab panes into flat matrix entries.
func parseKillMatrices(doc *goquery.Document, mapStatsID int64) ([]model.KillMatrixEntry, error) {
	var entries []model.KillMatrixEntry
	for _, pane := range matrixPanes {
		table := doc.Find(pane.pane + " table").First()
		if table.Length() == 0 {
			return nil, parseErr("performance", mapStatsID, "missing kill matrix pane %s", pane.pane)
		}

		// Column players from the header row.
		var colIDs []int64
		table.Find("thead a[href]").Each(func(_ int, link *goquery.Selection) {
			if id, ok := pathID(link.AttrOr("href", ""), "players"); ok {
				colIDs = append(colIDs, id)
			}
		})
		if len(colIDs) != 5 {
			return nil, parseErr("performance", mapStatsID, "matrix %s has %d column players", pane.typ, len(colIDs))
		}

		var bad error
		rows := table.Find("tbody tr")
		if rows.Length() != 5 {
			return nil, parseErr("performance", mapStatsID, "matrix %s has %d rows", pane.typ, rows.Length())
		}
		rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
			rowID, ok := pathID(row.Find("a[href]").First().AttrOr("href", ""), "players")
			if !ok {
				bad = parseErr("performance", mapStatsID, "matrix %s row without a player href", pane.typ)
				return false
			}
			cells := row.Find("td.matrix-cell")
			if cells.Length() != 5 {
				bad = parseErr("performance", mapStatsID, "matrix %s row for player %d has %d cells", pane.typ, rowID, cells.Length())
				return false
			}
			for c := 0; c < 5; c++ {
				rowKills, colKills, ok := intPair(cells.Eq(c).Text())
				if !ok {
					bad = parseErr("performance", mapStatsID, "bad matrix cell for %d vs %d", rowID, colIDs[c])
					return false
				}
				entries = append(entries, model.KillMatrixEntry{
					MatrixType:  pane.typ,
					RowPlayerID: rowID,
					ColPlayerID: colIDs[c],
					RowKills:    rowKills,
					ColKills:    colKills,
				})
			}
			return true
		})
		if bad != nil {
			return nil, bad
		}
	}
	return entries, nil
}
