package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pable/go-hltv-harvest/internal/model"
)

// forfeitMarker appears in the score cell of walkover results.
const forfeitMarker = "def"

// ParseResults extracts the match links from a results listing page.
//
// Only entries carrying the zoned-grouping unix timestamp attribute are
// selected; the "featured results" block duplicated at the top of the first
// listing page lacks it and is thereby suppressed.
func ParseResults(html string, offset int) ([]model.ResultEntry, error) {
	doc, err := newDoc("results", int64(offset), html)
	if err != nil {
		return nil, err
	}

	var entries []model.ResultEntry
	var bad error
	doc.Find("div.result-con[data-zonedgrouping-entry-unix]").Each(func(_ int, sel *goquery.Selection) {
		if bad != nil {
			return
		}
		tsAttr := sel.AttrOr("data-zonedgrouping-entry-unix", "")
		ts, err := strconv.ParseInt(strings.TrimSpace(tsAttr), 10, 64)
		if err != nil {
			bad = parseErr("results", int64(offset), "bad timestamp attribute %q", tsAttr)
			return
		}

		link := sel.Find("a.a-reset").First()
		href := link.AttrOr("href", "")
		matchID, ok := pathID(href, "matches")
		if !ok {
			bad = parseErr("results", int64(offset), "entry without a match href (%q)", href)
			return
		}

		score := strings.ToLower(sel.Find(".result-score").Text())
		entries = append(entries, model.ResultEntry{
			MatchID:     matchID,
			URL:         href,
			ForfeitHint: strings.Contains(score, forfeitMarker),
			TimestampMS: ts,
		})
	})
	if bad != nil {
		return nil, bad
	}
	return entries, nil
}
