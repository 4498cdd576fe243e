package parser

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// ParseEconomy extracts per-round equipment values and buy types from an
// economy page. The data lives in one JSON blob embedded in the page:
//
//	{"teams": [{"teamId": ...}, {"teamId": ...}],
//	 "rounds": [{"round": 1,
//	             "equipment": {"<teamId>": 4200, "<teamId>": 4350},
//	             "winnerTeamId": ...,
//	             "winnerIcon": ".../ct_win.svg"}, ...]}
//
// The winner's icon URL gives the winner's side for the round; the other
// team is on the opposite side. Overtime rounds may be absent from the
// blob on shorter regulation formats; only what is present is emitted.
func ParseEconomy(html string, mapStatsID int64) (*model.EconomyData, error) {
	doc, err := newDoc("economy", mapStatsID, html)
	if err != nil {
		return nil, err
	}

	blob := strings.TrimSpace(doc.Find("script#economy-data").First().Text())
	if blob == "" {
		return nil, parseErr("economy", mapStatsID, "no embedded economy blob")
	}
	if !gjson.Valid(blob) {
		return nil, parseErr("economy", mapStatsID, "invalid economy blob")
	}

	teams := gjson.Get(blob, "teams").Array()
	if len(teams) != 2 {
		return nil, parseErr("economy", mapStatsID, "economy blob with %d teams", len(teams))
	}
	team1ID := teams[0].Get("teamId").Int()
	team2ID := teams[1].Get("teamId").Int()
	if team1ID == 0 || team2ID == 0 {
		return nil, parseErr("economy", mapStatsID, "economy blob without team ids")
	}

	ed := &model.EconomyData{MapStatsID: mapStatsID}
	for _, round := range gjson.Get(blob, "rounds").Array() {
		roundNumber := int(round.Get("round").Int())
		if roundNumber < 1 {
			return nil, parseErr("economy", mapStatsID, "economy round with bad number %d", roundNumber)
		}

		winnerID := round.Get("winnerTeamId").Int()
		winnerSide, ok := sideFromIcon(round.Get("winnerIcon").String())
		if !ok {
			return nil, parseErr("economy", mapStatsID, "round %d without a winner side icon", roundNumber)
		}
		if winnerID != team1ID && winnerID != team2ID {
			return nil, parseErr("economy", mapStatsID, "round %d winner %d is neither team", roundNumber, winnerID)
		}

		for _, teamID := range []int64{team1ID, team2ID} {
			eq := round.Get("equipment").Get(strconv.FormatInt(teamID, 10))
			if !eq.Exists() {
				return nil, parseErr("economy", mapStatsID, "round %d missing equipment for team %d", roundNumber, teamID)
			}
			side := winnerSide
			if teamID != winnerID {
				side = otherSide(winnerSide)
			}
			value := int(eq.Int())
			ed.Rounds = append(ed.Rounds, model.RoundEconomy{
				RoundNumber:    roundNumber,
				TeamID:         teamID,
				EquipmentValue: value,
				BuyType:        model.BuyTypeForEquipment(value),
				Side:           side,
			})
		}
	}
	if len(ed.Rounds) == 0 {
		return nil, parseErr("economy", mapStatsID, "economy blob without rounds")
	}
	return ed, nil
}

// sideFromIcon infers a side from a winner icon URL.
func sideFromIcon(iconURL string) (model.Side, bool) {
	base := iconURL
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	switch {
	case strings.HasPrefix(base, "ct_"):
		return model.SideCT, true
	case strings.HasPrefix(base, "t_"):
		return model.SideT, true
	case strings.HasPrefix(base, "bomb_defused") || strings.HasPrefix(base, "stopwatch"):
		return model.SideCT, true
	case strings.HasPrefix(base, "bomb_exploded"):
		return model.SideT, true
	}
	return "", false
}

func otherSide(s model.Side) model.Side {
	if s == model.SideCT {
		return model.SideT
	}
	return model.SideCT
}
