package wikifetch

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// DefaultSectionFallbackLength is how many characters ExtractSection returns
// when the body has none of the start headings.
const DefaultSectionFallbackLength = 5000

// CareerHeadings are the start headings tried, in priority order, when
// extracting the career section of a player article.
var CareerHeadings = []string{
	"== Club career ==",
	"== Career ==",
	"== Professional career ==",
	"== Playing career ==",
}

// CareerEndHeadings mark the sections that follow a career section.
var CareerEndHeadings = []string{
	"\n== International",
	"\n== Personal",
	"\n== Honours",
	"\n== Career statistics",
	"\n== References",
	"\n== External",
	"\n== Style",
	"\n== Playing style",
}

// Section is a heading of a plain-text article body. Anchor is the URL
// fragment MediaWiki assigns to it.
type Section struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

var headingRe = regexp.MustCompile(`(?m)^(={2,6})[ \t]*(.+?)[ \t]*={2,6}[ \t]*$`)

// ExtractHeadings returns the "== Title ==" headings (levels 2-6) of body in
// order. Repeated anchors get "_2", "_3" suffixes like MediaWiki does.
func ExtractHeadings(body string) []Section {
	var headings []Section
	seen := make(map[string]int)
	for _, m := range headingRe.FindAllStringSubmatch(body, -1) {
		title := strings.TrimSpace(m[2])
		anchor := headingAnchor(title)
		seen[anchor]++
		if n := seen[anchor]; n > 1 {
			anchor += "_" + strconv.Itoa(n)
		}
		headings = append(headings, Section{Level: len(m[1]), Title: title, Anchor: anchor})
	}
	return headings
}

// TopHeadings returns the titles of the level 2 headings of body.
func TopHeadings(body string) []string {
	var titles []string
	for _, h := range ExtractHeadings(body) {
		if h.Level == 2 {
			titles = append(titles, h.Title)
		}
	}
	return titles
}

// ExtractSection returns the part of body that starts at the first of the
// start headings found (tried in order, case-insensitive) and ends right
// before the earliest end heading after it. Without any start heading it
// returns the first DefaultSectionFallbackLength characters of body.
func ExtractSection(body string, starts, ends []string) string {
	start := -1
	for _, marker := range starts {
		if idx := indexFold(body, marker); idx != -1 {
			start = idx
			break
		}
	}
	if start == -1 {
		return truncateRunes(body, DefaultSectionFallbackLength)
	}

	section := body[start:]
	end := len(section)
	for _, marker := range ends {
		if idx := indexFold(section, marker); idx != -1 && idx < end {
			end = idx
		}
	}
	return section[:end]
}

// indexFold is a case-insensitive strings.Index returning a byte offset
// into s.
func indexFold(s, substr string) int {
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(substr)).FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// headingAnchor collapses whitespace runs in title to single underscores.
func headingAnchor(title string) string {
	return strings.Join(strings.FieldsFunc(title, unicode.IsSpace), "_")
}
