package store

import (
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"trackdash/internal/model"
)

// entryColumns is the column order every entry read uses.
const entryColumns = `id, description, start, stop, duration, project_id, project_name,
	workspace_id, tags, tag_ids, billable, at,
	start_date, start_year, start_month, start_day, start_week, duration_hours`

// EntryFilter narrows entry reads. Zero values mean "no filter".
// Date bounds are YYYY-MM-DD strings and inclusive on both ends.
type EntryFilter struct {
	Year      int
	StartDate string
	EndDate   string
}

// Entries returns entries matching the filter, ordered by start ascending.
// Like every read, entries with non-positive duration are excluded.
func (s *Store) Entries(f EntryFilter) ([]model.EntryRow, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE duration > 0"
	var params []any

	if f.Year != 0 {
		query += " AND start_year = ?"
		params = append(params, f.Year)
	}
	if f.StartDate != "" {
		query += " AND start_date >= ?"
		params = append(params, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND start_date <= ?"
		params = append(params, f.EndDate)
	}
	query += " ORDER BY start ASC"

	return s.queryEntries(query, params...)
}

// EntriesForMonthDay returns entries on a specific month/day across all
// years, ordered by year then start.
func (s *Store) EntriesForMonthDay(month, day int) ([]model.EntryRow, error) {
	return s.queryEntries(
		"SELECT "+entryColumns+` FROM time_entries
		 WHERE start_month = ? AND start_day = ? AND duration > 0
		 ORDER BY start_year ASC, start ASC`, month, day)
}

// EntriesForWeek returns entries in a given ISO week across all years.
func (s *Store) EntriesForWeek(week int) ([]model.EntryRow, error) {
	return s.queryEntries(
		"SELECT "+entryColumns+` FROM time_entries
		 WHERE start_week = ? AND duration > 0
		 ORDER BY start_year ASC, start ASC`, week)
}

// SearchEntries matches a keyword as a substring of the description, project
// name, or stored tag text, most recent first.
func (s *Store) SearchEntries(keyword string, limit int) ([]model.EntryRow, error) {
	pattern := "%" + keyword + "%"
	return s.queryEntries(
		"SELECT "+entryColumns+` FROM time_entries
		 WHERE (description LIKE ? OR project_name LIKE ? OR tags LIKE ?)
		   AND duration > 0
		 ORDER BY start DESC
		 LIMIT ?`, pattern, pattern, pattern, limit)
}

// EntriesByTag returns entries carrying the given tag, optionally scoped to a
// year (0 = all years). Tags are stored as a JSON array, so the match is a
// containment check on the quoted name.
func (s *Store) EntriesByTag(tagName string, year int) ([]model.EntryRow, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE tags LIKE ? AND duration > 0"
	params := []any{`%"` + tagName + `"%`}
	if year != 0 {
		query += " AND start_year = ?"
		params = append(params, year)
	}
	query += " ORDER BY start DESC"
	return s.queryEntries(query, params...)
}

// AvailableYears returns the sorted list of years that have data.
func (s *Store) AvailableYears() ([]int, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT start_year FROM time_entries WHERE start_year IS NOT NULL ORDER BY start_year")
	if err != nil {
		return nil, fmt.Errorf("querying years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scanning year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// ProjectNames returns the distinct non-empty project names appearing on
// time entries, sorted.
func (s *Store) ProjectNames() ([]string, error) {
	return s.queryStrings(
		`SELECT DISTINCT project_name FROM time_entries
		 WHERE project_name != '' AND project_name IS NOT NULL
		 ORDER BY project_name`)
}

// TagNames returns the distinct tag names from the tags table, sorted.
func (s *Store) TagNames() ([]string, error) {
	return s.queryStrings("SELECT DISTINCT name FROM tags ORDER BY name")
}

// Projects returns all stored projects ordered by name.
func (s *Store) Projects() ([]model.Project, error) {
	rows, err := s.db.Query(
		"SELECT id, name, workspace_id, color, active, at FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var (
			p         model.Project
			workspace sql.NullInt64
			color, at sql.NullString
			active    int
		)
		if err := rows.Scan(&p.ID, &p.Name, &workspace, &color, &active, &at); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.WorkspaceID = workspace.Int64
		p.Color = color.String
		p.Active = active == 1
		p.At = at.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// TotalStats computes quick aggregate stats across all data.
func (s *Store) TotalStats() (model.TotalStats, error) {
	var (
		stats    model.TotalStats
		hours    sql.NullFloat64
		earliest sql.NullString
		latest   sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			SUM(duration_hours),
			MIN(start_date),
			MAX(start_date),
			COUNT(DISTINCT CASE WHEN project_name != '' THEN project_name END),
			COUNT(DISTINCT start_year)
		FROM time_entries
		WHERE duration > 0`).Scan(
		&stats.TotalEntries, &hours, &earliest, &latest,
		&stats.UniqueProjects, &stats.YearsTracked)
	if err != nil {
		return model.TotalStats{}, fmt.Errorf("querying total stats: %w", err)
	}
	stats.TotalHours = hours.Float64
	stats.EarliestDate = earliest.String
	stats.LatestDate = latest.String
	return stats, nil
}

func (s *Store) queryStrings(query string) ([]string, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// queryEntries runs an entry SELECT and scans the rows, deserializing the
// stored tag JSON into slices at read time.
func (s *Store) queryEntries(query string, params ...any) ([]model.EntryRow, error) {
	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []model.EntryRow
	for rows.Next() {
		row, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, row)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (model.EntryRow, error) {
	var (
		e model.EntryRow

		description, stop, projectName, at sql.NullString
		projectID, workspaceID             sql.NullInt64
		tagsJSON, tagIDsJSON               sql.NullString
		billable                           int
		startDate                          sql.NullString
		year, month, day, week             sql.NullInt64
	)
	if err := rows.Scan(
		&e.ID, &description, &e.Start, &stop, &e.Duration,
		&projectID, &projectName, &workspaceID,
		&tagsJSON, &tagIDsJSON, &billable, &at,
		&startDate, &year, &month, &day, &week, &e.DurationHours,
	); err != nil {
		return model.EntryRow{}, fmt.Errorf("scanning entry: %w", err)
	}

	e.Description = description.String
	e.Stop = stop.String
	e.ProjectName = projectName.String
	e.At = at.String
	if projectID.Valid {
		e.ProjectID = &projectID.Int64
	}
	if workspaceID.Valid {
		e.WorkspaceID = &workspaceID.Int64
	}
	e.Billable = billable == 1
	e.StartDate = startDate.String
	e.StartYear = int(year.Int64)
	e.StartMonth = int(month.Int64)
	e.StartDay = int(day.Int64)
	e.StartWeek = int(week.Int64)

	e.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &e.Tags); err != nil {
			return model.EntryRow{}, fmt.Errorf("decoding tags for entry %d: %w", e.ID, err)
		}
	}
	e.TagIDs = []int64{}
	if tagIDsJSON.Valid && tagIDsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagIDsJSON.String), &e.TagIDs); err != nil {
			return model.EntryRow{}, fmt.Errorf("decoding tag ids for entry %d: %w", e.ID, err)
		}
	}
	return e, nil
}
