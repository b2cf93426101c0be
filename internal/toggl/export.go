package toggl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trackdash/internal/model"
	"trackdash/internal/timecalc"
)

// FetchYearEntries fetches all time entries for a year via CSV export.
// The range is [Jan 1, Dec 31], clamped to today for the current year.
func (c *Client) FetchYearEntries(ctx context.Context, year int) ([]model.TimeEntry, error) {
	today := c.now()
	end := fmt.Sprintf("%d-12-31", year)
	if year >= today.Year() {
		end = today.Format("2006-01-02")
	}

	data, err := c.exportDetailedCSV(ctx, fmt.Sprintf("%d-01-01", year), end)
	if err != nil {
		return nil, fmt.Errorf("exporting %d: %w", year, err)
	}
	return ParseExportCSV(data)
}

// ParseExportCSV converts a detailed-report CSV export into normalized time
// entries. Malformed duration or date fields default to zero values rather
// than rejecting the row. An empty export yields an empty slice.
func ParseExportCSV(data []byte) ([]model.TimeEntry, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // exports may carry a BOM
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.TimeEntry{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading export header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var entries []model.TimeEntry
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading export row: %w", err)
		}

		duration := timecalc.ParseClockDuration(field(record, "Duration"))

		start := joinTimestamp(field(record, "Start date"), field(record, "Start time"))
		stop := joinTimestamp(field(record, "End date"), field(record, "End time"))

		description := field(record, "Description")
		project := field(record, "Project")

		entries = append(entries, model.TimeEntry{
			ID:          SurrogateID(start, stop, description, project, duration),
			Description: description,
			Start:       start,
			Stop:        stop,
			Duration:    duration,
			ProjectName: project,
			Tags:        splitTags(field(record, "Tags")),
			TagIDs:      []int64{},
			Billable:    field(record, "Billable") == "Yes",
		})
	}
	return entries, nil
}

// joinTimestamp combines separate date and time export fields into one ISO
// timestamp string. An absent date yields an empty timestamp.
func joinTimestamp(date, clock string) string {
	if date == "" {
		return ""
	}
	if clock == "" {
		clock = "00:00:00"
	}
	return date + "T" + clock
}

// splitTags splits a comma-separated tag field, trimming whitespace and
// dropping empties.
func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// SurrogateID derives a deterministic identifier for an export row. The CSV
// export carries no vendor entry id, so the key fields are hashed into a
// stable integer: the same logical entry re-syncs to the same id as long as
// none of the five fields changed. A changed field makes the entry look new
// and orphans the previously stored row.
func SurrogateID(start, stop, description, project string, duration int64) int64 {
	seed := fmt.Sprintf("%s|%s|%s|%s|%d", start, stop, description, project, duration)
	sum := sha256.Sum256([]byte(seed))
	id, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:15], 16, 64)
	return id
}
