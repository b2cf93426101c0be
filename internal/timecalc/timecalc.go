package timecalc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts covers the shapes vendor timestamps arrive in: RFC3339
// from the JSON API, and bare date+time concatenations from CSV exports.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DateParts holds the calendar fields derived from a start timestamp.
// Zero-valued fields mean the source string was too short to derive them.
type DateParts struct {
	Date  string // YYYY-MM-DD
	Year  int
	Month int
	Day   int
	Week  int // ISO week number; 0 when the timestamp did not parse
}

// DeriveDateParts extracts calendar fields from an ISO-ish timestamp string.
// When the string does not parse as a timestamp, fields are recovered by
// fixed-position substring extraction so that rows with slightly malformed
// timestamps still land in the right year and month.
func DeriveDateParts(ts string) DateParts {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err != nil {
			continue
		}
		_, week := t.ISOWeek()
		return DateParts{
			Date:  t.Format("2006-01-02"),
			Year:  t.Year(),
			Month: int(t.Month()),
			Day:   t.Day(),
			Week:  week,
		}
	}

	var p DateParts
	if len(ts) >= 10 {
		p.Date = ts[:10]
	}
	if len(ts) >= 4 {
		p.Year, _ = strconv.Atoi(ts[:4])
	}
	if len(ts) >= 7 {
		p.Month, _ = strconv.Atoi(ts[5:7])
	}
	if len(ts) >= 10 {
		p.Day, _ = strconv.Atoi(ts[8:10])
	}
	return p
}

// ParseClockDuration converts an "H:MM:SS" string into seconds.
// Malformed values yield 0 rather than an error: export rows are kept
// even when individual fields are unparsable.
func ParseClockDuration(s string) int64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0
	}
	m, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	sec, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0
	}
	return h*3600 + m*60 + sec
}

// MonthNumber maps an English month name or abbreviation to 1..12.
// Returns 0 for unknown names.
func MonthNumber(name string) int {
	switch strings.ToLower(name) {
	case "january", "jan":
		return 1
	case "february", "feb":
		return 2
	case "march", "mar":
		return 3
	case "april", "apr":
		return 4
	case "may":
		return 5
	case "june", "jun":
		return 6
	case "july", "jul":
		return 7
	case "august", "aug":
		return 8
	case "september", "sep", "sept":
		return 9
	case "october", "oct":
		return 10
	case "november", "nov":
		return 11
	case "december", "dec":
		return 12
	}
	return 0
}

// MonthName returns the full English name for a month number 1..12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

// FormatHours renders fractional hours with one decimal, e.g. "12.5h".
func FormatHours(hours float64) string {
	return fmt.Sprintf("%.1fh", hours)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// ISOWeek returns the ISO week number of the week containing t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
