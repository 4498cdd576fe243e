// Package parser turns archived HLTV pages into typed records. Every parser
// is a pure function over static HTML (or JSON embedded in it): no network,
// no retries, no store access, deterministic output.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseError reports a structural problem with a page. It is item-fatal:
// the orchestrator quarantines the page and marks its work item failed.
type ParseError struct {
	Page string // "results", "overview", "mapstats", "performance", "economy"
	ID   int64  // match id, mapstatsid or offset, whichever identifies the page
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s %d: %s: %v", e.Page, e.ID, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s %d: %s", e.Page, e.ID, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(page string, id int64, format string, args ...any) *ParseError {
	return &ParseError{Page: page, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// newDoc parses html into a goquery document.
func newDoc(page string, id int64, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Page: page, ID: id, Msg: "invalid html", Err: err}
	}
	return doc, nil
}

// pathID extracts the numeric id that follows segment in an href, e.g.
// pathID("/matches/2370931/faze-vs-navi", "matches") == 2370931.
func pathID(href, segment string) (int64, bool) {
	parts := strings.Split(strings.TrimPrefix(href, "/"), "/")
	for i, p := range parts {
		if p == segment && i+1 < len(parts) {
			id, err := strconv.ParseInt(parts[i+1], 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		}
	}
	return 0, false
}

// atoiLoose parses an integer out of text, tolerating surrounding
// whitespace and a leading '+'.
func atoiLoose(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	return strconv.Atoi(s)
}

// atofLoose parses a float out of text, tolerating whitespace and a
// trailing '%'.
func atofLoose(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	return strconv.ParseFloat(s, 64)
}

var pairRe = regexp.MustCompile(`(-?\d+)\s*[(:]\s*(-?\d+)\)?`)

// intPair parses "24 (12)" or "3 : 2" shaped cells into two ints.
func intPair(s string) (int, int, bool) {
	m := pairRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(m[1])
	b, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}
