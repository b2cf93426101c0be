package model

// TimeEntry is one recorded interval of tracked work, as stored in the local
// cache. Identifiers are either vendor-assigned or derived from entry content
// when the source carries no stable id (CSV exports). Negative durations mean
// the entry was still running when fetched; such entries are stored but
// excluded from every read.
type TimeEntry struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Start       string   `json:"start"` // ISO timestamp, no zone in CSV exports
	Stop        string   `json:"stop"`
	Duration    int64    `json:"duration"` // seconds
	ProjectID   *int64   `json:"project_id"`
	ProjectName string   `json:"project_name"`
	WorkspaceID *int64   `json:"workspace_id"`
	Tags        []string `json:"tags"`
	TagIDs      []int64  `json:"tag_ids"`
	Billable    bool     `json:"billable"`
	At          string   `json:"at"` // last-modified timestamp from the vendor
}

// EntryRow is a TimeEntry plus the derived columns the store computes at
// write time. Read queries return these.
type EntryRow struct {
	TimeEntry
	StartDate     string  // YYYY-MM-DD
	StartYear     int
	StartMonth    int
	StartDay      int
	StartWeek     int // ISO week number
	DurationHours float64
}

// Project is a named grouping that entries may reference.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int64  `json:"workspace_id"`
	Color       string `json:"color"`
	Active      bool   `json:"active"`
	At          string `json:"at"`
}

// Tag is a named label attached to entries.
type Tag struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int64  `json:"workspace_id"`
}

// TotalStats holds the full-table aggregate numbers shown by the stats
// command and the all-time answer.
type TotalStats struct {
	TotalEntries   int
	TotalHours     float64
	EarliestDate   string
	LatestDate     string
	UniqueProjects int
	YearsTracked   int
}

// SyncStatus reports what the cache currently holds and when it was last
// refreshed. Watermark values are ISO timestamps; empty means never.
type SyncStatus struct {
	HasData             bool
	YearsWithData       []int
	LastFullSync        string
	LastIncrementalSync string
	EarliestYear        int
}
