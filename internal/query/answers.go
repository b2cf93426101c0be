package query

import (
	"fmt"
	"sort"
	"strings"

	"trackdash/internal/model"
	"trackdash/internal/store"
	"trackdash/internal/timecalc"
)

// render turns a routed intent into answer text. All formatting lives here;
// matchers never build output.
func (r *Router) render(it intent, projects, tags []string) (string, error) {
	switch it.kind {
	case intentCompare:
		return r.answerCompare(it.yearA, it.yearB)
	case intentSpecificDate:
		return r.answerSpecificDate(it.year, it.month, it.day)
	case intentDateAcrossYears:
		return r.answerDateAcrossYears(it.month, it.day)
	case intentWeek:
		return r.answerWeek(it.week)
	case intentMonth:
		return r.answerMonth(it.month, it.year)
	case intentTotals:
		return r.answerTotals()
	case intentTopProjects:
		return r.answerTopProjects(it.year)
	case intentTopTags:
		return r.answerTopTags(it.year)
	case intentTag:
		return r.answerTag(it.name, it.year, tags)
	case intentProject:
		return r.answerProject(it.name, it.year, projects, it.resolved)
	case intentSearch:
		return r.answerSearch(it.name)
	case intentYear:
		return r.answerYear(it.year)
	}
	return helpMessage(projects, tags), nil
}

// nameHours is one aggregation bucket: hours and entry count per name.
type nameHours struct {
	name    string
	hours   float64
	entries int
}

func sumHours(rows []model.EntryRow) float64 {
	var total float64
	for _, e := range rows {
		total += e.DurationHours
	}
	return total
}

func distinctDates(rows []model.EntryRow) int {
	seen := make(map[string]struct{})
	for _, e := range rows {
		seen[e.StartDate] = struct{}{}
	}
	return len(seen)
}

func distinctProjects(rows []model.EntryRow) int {
	seen := make(map[string]struct{})
	for _, e := range rows {
		if e.ProjectName != "" {
			seen[e.ProjectName] = struct{}{}
		}
	}
	return len(seen)
}

// groupBy buckets rows by key, sorted by hours descending with name as the
// tiebreak so equal-hour buckets order deterministically.
func groupBy(rows []model.EntryRow, key func(model.EntryRow) string) []nameHours {
	buckets := make(map[string]*nameHours)
	for _, e := range rows {
		k := key(e)
		b, ok := buckets[k]
		if !ok {
			b = &nameHours{name: k}
			buckets[k] = b
		}
		b.hours += e.DurationHours
		b.entries++
	}
	out := make([]nameHours, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hours != out[j].hours {
			return out[i].hours > out[j].hours
		}
		return out[i].name < out[j].name
	})
	return out
}

func groupByProject(rows []model.EntryRow) []nameHours {
	return groupBy(rows, func(e model.EntryRow) string { return e.ProjectName })
}

func groupByDescription(rows []model.EntryRow) []nameHours {
	var withDesc []model.EntryRow
	for _, e := range rows {
		if e.Description != "" {
			withDesc = append(withDesc, e)
		}
	}
	return groupBy(withDesc, func(e model.EntryRow) string { return e.Description })
}

// groupByTag explodes multi-tag entries: each entry counts fully toward every
// tag it carries, so tag hours intentionally do not sum to total hours.
func groupByTag(rows []model.EntryRow) []nameHours {
	buckets := make(map[string]*nameHours)
	for _, e := range rows {
		for _, tag := range e.Tags {
			b, ok := buckets[tag]
			if !ok {
				b = &nameHours{name: tag}
				buckets[tag] = b
			}
			b.hours += e.DurationHours
			b.entries++
		}
	}
	out := make([]nameHours, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hours != out[j].hours {
			return out[i].hours > out[j].hours
		}
		return out[i].name < out[j].name
	})
	return out
}

func head(groups []nameHours, n int) []nameHours {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func dateRange(rows []model.EntryRow) (first, last string) {
	for _, e := range rows {
		if e.StartDate == "" {
			continue
		}
		if first == "" || e.StartDate < first {
			first = e.StartDate
		}
		if e.StartDate > last {
			last = e.StartDate
		}
	}
	return first, last
}

func orDash(name string) string {
	if name == "" {
		return "(no project)"
	}
	return name
}

func (r *Router) answerYear(year int) (string, error) {
	rows, err := r.store.Entries(store.EntryFilter{Year: year})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No data found for %d.", year), nil
	}

	totalHours := sumHours(rows)
	activeDays := distinctDates(rows)
	avg := 0.0
	if activeDays > 0 {
		avg = totalHours / float64(activeDays)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d summary:\n\n", year)
	fmt.Fprintf(&b, "- Total hours: %.1f\n", totalHours)
	fmt.Fprintf(&b, "- Entries: %d\n", len(rows))
	fmt.Fprintf(&b, "- Active days: %d\n", activeDays)
	fmt.Fprintf(&b, "- Avg hours per active day: %.1f\n", avg)
	b.WriteString("\nTop 5 projects:\n")
	for _, p := range head(groupByProject(rows), 5) {
		fmt.Fprintf(&b, "  - %s: %s\n", orDash(p.name), timecalc.FormatHours(p.hours))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerCompare(yearA, yearB int) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d vs %d:\n", yearA, yearB)
	for _, year := range []int{yearA, yearB} {
		rows, err := r.store.Entries(store.EntryFilter{Year: year})
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n%d:\n", year)
		if len(rows) == 0 {
			b.WriteString("  no data\n")
			continue
		}
		fmt.Fprintf(&b, "  - Hours: %.1f\n", sumHours(rows))
		fmt.Fprintf(&b, "  - Entries: %d\n", len(rows))
		fmt.Fprintf(&b, "  - Active days: %d\n", distinctDates(rows))
		fmt.Fprintf(&b, "  - Projects: %d\n", distinctProjects(rows))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerSpecificDate(year, month, day int) (string, error) {
	date := fmt.Sprintf("%d-%02d-%02d", year, month, day)
	rows, err := r.store.Entries(store.EntryFilter{StartDate: date, EndDate: date})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found on %s.", date), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f hours, %d entries:\n", date, sumHours(rows), len(rows))
	for _, e := range rows {
		desc := e.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", orDash(e.ProjectName), desc, timecalc.FormatDuration(e.Duration))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerDateAcrossYears(month, day int) (string, error) {
	rows, err := r.store.EntriesForMonthDay(month, day)
	if err != nil {
		return "", err
	}
	label := fmt.Sprintf("%s %d", timecalc.MonthName(month), day)
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found on %s in any year.", label), nil
	}

	byYear := make(map[int][]model.EntryRow)
	var years []int
	for _, e := range rows {
		if _, ok := byYear[e.StartYear]; !ok {
			years = append(years, e.StartYear)
		}
		byYear[e.StartYear] = append(byYear[e.StartYear], e)
	}
	sort.Ints(years)

	var b strings.Builder
	fmt.Fprintf(&b, "%s across all years:\n", label)
	for _, year := range years {
		yearRows := byYear[year]
		line := fmt.Sprintf("- %d: %s, %d entries", year, timecalc.FormatHours(sumHours(yearRows)), len(yearRows))
		if top := head(groupByProject(yearRows), 1); len(top) > 0 && top[0].name != "" {
			line += ", mostly " + top[0].name
		}
		if descs := head(groupByDescription(yearRows), 1); len(descs) > 0 {
			line += ", main activity: " + descs[0].name
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerWeek(week int) (string, error) {
	rows, err := r.store.EntriesForWeek(week)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found for week %d.", week), nil
	}

	byYear := make(map[int][]model.EntryRow)
	var years []int
	for _, e := range rows {
		if _, ok := byYear[e.StartYear]; !ok {
			years = append(years, e.StartYear)
		}
		byYear[e.StartYear] = append(byYear[e.StartYear], e)
	}
	sort.Ints(years)

	var b strings.Builder
	fmt.Fprintf(&b, "Week %d across all years:\n", week)
	for _, year := range years {
		yearRows := byYear[year]
		fmt.Fprintf(&b, "- %d: %s (%d entries)\n",
			year, timecalc.FormatHours(sumHours(yearRows)), len(yearRows))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// answerMonth summarizes one month. With a year the filter is a date range
// whose upper bound is the first day of the next month, inclusive, matching
// how the dashboard has always cut months. Without a year the month is
// aggregated across all years.
func (r *Router) answerMonth(month, year int) (string, error) {
	var (
		rows  []model.EntryRow
		label string
		err   error
	)
	if year != 0 {
		start := fmt.Sprintf("%d-%02d-01", year, month)
		var end string
		if month == 12 {
			end = fmt.Sprintf("%d-12-31", year)
		} else {
			end = fmt.Sprintf("%d-%02d-01", year, month+1)
		}
		rows, err = r.store.Entries(store.EntryFilter{StartDate: start, EndDate: end})
		label = fmt.Sprintf("%s %d", timecalc.MonthName(month), year)
	} else {
		var all []model.EntryRow
		all, err = r.store.Entries(store.EntryFilter{})
		if err == nil {
			for _, e := range all {
				if e.StartMonth == month {
					rows = append(rows, e)
				}
			}
		}
		label = fmt.Sprintf("%s (all years)", timecalc.MonthName(month))
	}
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found for %s.", label), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f hours, %d entries, %d active days\n",
		label, sumHours(rows), len(rows), distinctDates(rows))
	b.WriteString("\nTop projects:\n")
	for _, p := range head(groupByProject(rows), 5) {
		fmt.Fprintf(&b, "  - %s: %s\n", orDash(p.name), timecalc.FormatHours(p.hours))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerTotals() (string, error) {
	stats, err := r.store.TotalStats()
	if err != nil {
		return "", err
	}
	if stats.TotalEntries == 0 {
		return "No data found. Run a sync first.", nil
	}

	var b strings.Builder
	b.WriteString("All-time stats:\n\n")
	fmt.Fprintf(&b, "- Total hours: %.1f\n", stats.TotalHours)
	fmt.Fprintf(&b, "- Total entries: %d\n", stats.TotalEntries)
	fmt.Fprintf(&b, "- Years tracked: %d\n", stats.YearsTracked)
	fmt.Fprintf(&b, "- Unique projects: %d\n", stats.UniqueProjects)
	fmt.Fprintf(&b, "- Date range: %s to %s", stats.EarliestDate, stats.LatestDate)
	return b.String(), nil
}

func (r *Router) answerTopProjects(year int) (string, error) {
	rows, err := r.store.Entries(store.EntryFilter{Year: year})
	if err != nil {
		return "", err
	}
	scope := "all time"
	if year != 0 {
		scope = fmt.Sprintf("%d", year)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No data found for %s.", scope), nil
	}

	total := sumHours(rows)
	var b strings.Builder
	fmt.Fprintf(&b, "Top 10 projects (%s):\n", scope)
	for _, p := range head(groupByProject(rows), 10) {
		pct := 0.0
		if total > 0 {
			pct = p.hours / total * 100
		}
		fmt.Fprintf(&b, "  - %s: %s (%.1f%%), %d entries\n",
			orDash(p.name), timecalc.FormatHours(p.hours), pct, p.entries)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerTopTags(year int) (string, error) {
	rows, err := r.store.Entries(store.EntryFilter{Year: year})
	if err != nil {
		return "", err
	}
	tags := groupByTag(rows)
	if len(tags) == 0 {
		return "No tagged entries found.", nil
	}

	scope := "all time"
	if year != 0 {
		scope = fmt.Sprintf("%d", year)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top tags (%s):\n", scope)
	for _, t := range head(tags, 10) {
		fmt.Fprintf(&b, "  - %s: %s, %d entries\n", t.name, timecalc.FormatHours(t.hours), t.entries)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerTag(raw string, year int, known []string) (string, error) {
	name, ok := fuzzyMatch(raw, known)
	if !ok {
		if len(known) == 0 {
			return fmt.Sprintf("No tag matching %q found. No tags are stored yet.", raw), nil
		}
		return fmt.Sprintf("No tag matching %q found. Known tags: %s",
			raw, strings.Join(head2(known, 10), ", ")), nil
	}

	rows, err := r.store.EntriesByTag(name, year)
	if err != nil {
		return "", err
	}
	label := fmt.Sprintf("Tag %q (all time)", name)
	if year != 0 {
		label = fmt.Sprintf("Tag %q in %d", name, year)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found with tag %q.", name), nil
	}

	first, last := dateRange(rows)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f hours, %d entries\n", label, sumHours(rows), len(rows))
	fmt.Fprintf(&b, "- Date range: %s to %s\n", first, last)
	b.WriteString("\nTop projects:\n")
	for _, p := range head(groupByProject(rows), 5) {
		fmt.Fprintf(&b, "  - %s: %s\n", orDash(p.name), timecalc.FormatHours(p.hours))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerProject(raw string, year int, known []string, resolved bool) (string, error) {
	name := raw
	if !resolved {
		var ok bool
		if name, ok = fuzzyMatch(raw, known); !ok {
			if len(known) == 0 {
				return fmt.Sprintf("No project matching %q found. No projects are stored yet.", raw), nil
			}
			return fmt.Sprintf("No project matching %q found. Known projects: %s",
				raw, strings.Join(head2(known, 10), ", ")), nil
		}
	}

	all, err := r.store.Entries(store.EntryFilter{Year: year})
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(name)
	var rows []model.EntryRow
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.ProjectName), lower) {
			rows = append(rows, e)
		}
	}

	label := fmt.Sprintf("%s (all time)", name)
	if year != 0 {
		label = fmt.Sprintf("%s in %d", name, year)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found for project %q.", name), nil
	}

	first, last := dateRange(rows)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f hours, %d entries, %d active days\n",
		label, sumHours(rows), len(rows), distinctDates(rows))
	fmt.Fprintf(&b, "- Date range: %s to %s\n", first, last)
	if descs := head(groupByDescription(rows), 5); len(descs) > 0 {
		b.WriteString("\nTop activities:\n")
		for _, d := range descs {
			fmt.Fprintf(&b, "  - %s: %s\n", d.name, timecalc.FormatHours(d.hours))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) answerSearch(keyword string) (string, error) {
	rows, err := r.store.SearchEntries(keyword, 20)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No entries found matching %q.", keyword), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q (%d entries, %s total):\n",
		keyword, len(rows), timecalc.FormatHours(sumHours(rows)))
	shown := rows
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, e := range shown {
		desc := e.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&b, "- %s: %s [%s] (%s)\n",
			e.StartDate, desc, orDash(e.ProjectName), timecalc.FormatHours(e.DurationHours))
	}
	if len(rows) > len(shown) {
		fmt.Fprintf(&b, "...and %d more entries\n", len(rows)-len(shown))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// head2 is head for plain string lists.
func head2(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}

// helpMessage lists the supported phrasings, with examples drawn from the
// user's own projects and tags when any are stored.
func helpMessage(projects, tags []string) string {
	var b strings.Builder
	b.WriteString("I can answer questions about your tracked time. Try:\n\n")
	b.WriteString(`- "How was 2024?" for a year summary
- "Compare 2023 and 2024" or "2023 vs 2024"
- "What did I do on March 15, 2023?"
- "Today" or "Yesterday" for that date across all years
- "This week", "Last week", or "Week 12"
- "In February 2024" for a month summary
- "Total hours" for all-time stats
- "Top projects" or "Top projects in 2024"
- "Top tags"
- "Project <name>" or just a project name
- "Tag <name>" or "Tagged <name> in 2024"
- "Search <keyword>"
`)
	if len(projects) > 0 {
		fmt.Fprintf(&b, "\nYour projects include: %s", strings.Join(head2(projects, 5), ", "))
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "\nYour tags include: %s", strings.Join(head2(tags, 5), ", "))
	}
	return b.String()
}
