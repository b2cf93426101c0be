// Package query translates free-text questions into cache queries and
// formats textual answers. Matching is an ordered chain of (pattern, intent)
// matchers: the first matcher that fires wins, and its tagged result is
// rendered by a single formatter. No matcher firing yields a help message.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"trackdash/internal/store"
	"trackdash/internal/timecalc"
)

// Router answers free-text questions against the local cache.
type Router struct {
	store *store.Store
	now   func() time.Time
}

// New builds a Router over the given store.
func New(st *store.Store) *Router {
	return &Router{store: st, now: time.Now}
}

type intentKind int

const (
	intentCompare intentKind = iota
	intentSpecificDate
	intentDateAcrossYears
	intentWeek
	intentMonth
	intentTotals
	intentTopProjects
	intentTopTags
	intentTag
	intentProject
	intentSearch
	intentYear
)

// intent is the tagged result of a successful match. Unused fields are zero.
type intent struct {
	kind         intentKind
	yearA, yearB int    // compare
	year         int    // 0 = all years
	month, day   int
	week         int
	name         string // project/tag name or search keyword, as typed
	resolved     bool   // name is already a known project name
}

// matcher inspects a lowercased question and either declines or yields an
// intent. Matchers are mutually exclusive by chain order, not semantics.
type matcher func(q string, projects, tags []string) (intent, bool)

var (
	reCompare  = regexp.MustCompile(`(?:compare\s+)?(20\d{2})\s+(?:and|vs|to|with|versus)\s+(20\d{2})`)
	reOnDate   = regexp.MustCompile(`(?:on|for)\s+([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:[,\s]+(\d{4}))?`)
	reWeekNum  = regexp.MustCompile(`week\s*(\d{1,2})`)
	reInMonth  = regexp.MustCompile(`(?:in|last|for)\s+([a-z]+)(?:\s+(20\d{2}))?`)
	reYear     = regexp.MustCompile(`\b(20\d{2})\b`)
	reTagName  = regexp.MustCompile(`(?:tagged|tag)\s+["']?(.+?)["']?(?:\s+in\s+(20\d{2}))?$`)
	reProjName = regexp.MustCompile(`project\s+["']?(.+?)["']?(?:\s+in\s+(20\d{2}))?$`)
	reSearch   = regexp.MustCompile(`(?:search|find|look for|when did i)\s+(.+)`)
)

var totalsKeywords = []string{"total", "overall", "how much time", "all time", "lifetime"}

var topProjectKeywords = []string{
	"top project", "biggest project", "most project", "best project", "main project",
}

var topTagKeywords = []string{
	"top tag", "biggest tag", "most tag", "best tag", "main tag", "what tag",
}

// Answer parses a question and returns a formatted answer. An unmatched
// question is not an error: it returns the help message.
func (r *Router) Answer(question string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))

	projects, err := r.store.ProjectNames()
	if err != nil {
		return "", err
	}
	tags, err := r.store.TagNames()
	if err != nil {
		return "", err
	}

	if it, ok := r.route(q, projects, tags); ok {
		return r.render(it, projects, tags)
	}
	return helpMessage(projects, tags), nil
}

// route runs the matcher chain in priority order.
func (r *Router) route(q string, projects, tags []string) (intent, bool) {
	chain := []matcher{
		matchCompare,
		matchSpecificDate,
		r.matchNamedPeriod,
		matchTop,
		matchTag,
		matchProject,
		matchSearch,
		matchYear,
		matchBareProject,
	}
	for _, m := range chain {
		if it, ok := m(q, projects, tags); ok {
			return it, true
		}
	}
	return intent{}, false
}

func matchCompare(q string, _, _ []string) (intent, bool) {
	m := reCompare.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	yearA, _ := strconv.Atoi(m[1])
	yearB, _ := strconv.Atoi(m[2])
	return intent{kind: intentCompare, yearA: yearA, yearB: yearB}, true
}

func matchSpecificDate(q string, _, _ []string) (intent, bool) {
	m := reOnDate.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	month := timecalc.MonthNumber(m[1])
	if month == 0 {
		return intent{}, false
	}
	day, _ := strconv.Atoi(m[2])
	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		return intent{kind: intentSpecificDate, year: year, month: month, day: day}, true
	}
	return intent{kind: intentDateAcrossYears, month: month, day: day}, true
}

// matchNamedPeriod covers weeks, today/yesterday, all-time totals, and
// month summaries. Totals scoped by a mentioned known project or tag route
// to that project or tag instead.
func (r *Router) matchNamedPeriod(q string, projects, tags []string) (intent, bool) {
	if strings.Contains(q, "this week") {
		return intent{kind: intentWeek, week: timecalc.ISOWeek(r.now())}, true
	}
	if strings.Contains(q, "last week") {
		return intent{kind: intentWeek, week: timecalc.ISOWeek(r.now().AddDate(0, 0, -7))}, true
	}
	if m := reWeekNum.FindStringSubmatch(q); m != nil {
		week, _ := strconv.Atoi(m[1])
		return intent{kind: intentWeek, week: week}, true
	}

	if strings.Contains(q, "today") {
		now := r.now()
		return intent{kind: intentDateAcrossYears, month: int(now.Month()), day: now.Day()}, true
	}
	if strings.Contains(q, "yesterday") {
		y := r.now().AddDate(0, 0, -1)
		return intent{kind: intentDateAcrossYears, month: int(y.Month()), day: y.Day()}, true
	}

	for _, kw := range totalsKeywords {
		if !strings.Contains(q, kw) {
			continue
		}
		year := 0
		if m := reYear.FindStringSubmatch(q); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
		// Scoped totals defer to the mentioned project or tag.
		for _, proj := range projects {
			if strings.Contains(q, strings.ToLower(proj)) {
				return intent{kind: intentProject, name: proj, resolved: true, year: year}, true
			}
		}
		for _, tag := range tags {
			if strings.Contains(q, strings.ToLower(tag)) {
				return intent{kind: intentTag, name: tag, year: year}, true
			}
		}
		return intent{kind: intentTotals}, true
	}

	if m := reInMonth.FindStringSubmatch(q); m != nil {
		if month := timecalc.MonthNumber(m[1]); month != 0 {
			year := 0
			if m[2] != "" {
				year, _ = strconv.Atoi(m[2])
			}
			return intent{kind: intentMonth, month: month, year: year}, true
		}
	}
	return intent{}, false
}

func matchTop(q string, _, _ []string) (intent, bool) {
	year := 0
	if m := reYear.FindStringSubmatch(q); m != nil {
		year, _ = strconv.Atoi(m[1])
	}
	for _, kw := range topProjectKeywords {
		if strings.Contains(q, kw) {
			return intent{kind: intentTopProjects, year: year}, true
		}
	}
	for _, kw := range topTagKeywords {
		if strings.Contains(q, kw) {
			return intent{kind: intentTopTags, year: year}, true
		}
	}
	return intent{}, false
}

func matchTag(q string, _, _ []string) (intent, bool) {
	m := reTagName.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	year := 0
	if m[2] != "" {
		year, _ = strconv.Atoi(m[2])
	}
	return intent{kind: intentTag, name: strings.TrimSpace(m[1]), year: year}, true
}

func matchProject(q string, _, _ []string) (intent, bool) {
	m := reProjName.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	year := 0
	if m[2] != "" {
		year, _ = strconv.Atoi(m[2])
	}
	return intent{kind: intentProject, name: strings.TrimSpace(m[1]), year: year}, true
}

func matchSearch(q string, _, _ []string) (intent, bool) {
	m := reSearch.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	keyword := strings.Trim(strings.TrimSpace(m[1]), `"'`)
	if keyword == "" {
		return intent{}, false
	}
	return intent{kind: intentSearch, name: keyword}, true
}

func matchYear(q string, _, _ []string) (intent, bool) {
	m := reYear.FindStringSubmatch(q)
	if m == nil {
		return intent{}, false
	}
	year, _ := strconv.Atoi(m[1])
	return intent{kind: intentYear, year: year}, true
}

func matchBareProject(q string, projects, _ []string) (intent, bool) {
	for _, proj := range projects {
		if q == strings.ToLower(proj) {
			return intent{kind: intentProject, name: proj, resolved: true}, true
		}
	}
	return intent{}, false
}

// fuzzyMatch resolves user input against known names: exact case-insensitive
// match first, then substring containment in either direction. The first
// match in list order wins; there is no ranking, so overlapping names
// resolve to whichever is stored first.
func fuzzyMatch(input string, known []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, name := range known {
		if strings.ToLower(name) == lower {
			return name, true
		}
	}
	for _, name := range known {
		ln := strings.ToLower(name)
		if strings.Contains(ln, lower) || strings.Contains(lower, ln) {
			return name, true
		}
	}
	return "", false
}
