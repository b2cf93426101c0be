// Package syncer coordinates fetching data from the vendor API and storing
// it in the local cache: full syncs over a year range, incremental syncs of
// the current year, and the sync-status query callers use to decide whether
// to prompt for a first sync.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"trackdash/internal/model"
	"trackdash/internal/store"
)

// API is the slice of the vendor client a sync needs.
type API interface {
	Projects(ctx context.Context) ([]model.Project, error)
	Tags(ctx context.Context) ([]model.Tag, error)
	FetchYearEntries(ctx context.Context, year int) ([]model.TimeEntry, error)
}

// ProgressFunc receives a human-readable message and a non-decreasing
// fraction in [0,1]; the final call always reports 1.0. It is invoked
// synchronously on the sync's goroutine and must not block on network calls.
type ProgressFunc func(msg string, frac float64)

// Summary reports what a sync accomplished. Per-year fetch failures land in
// Errors without aborting the remaining years.
type Summary struct {
	YearsSynced  int
	TotalEntries int
	Projects     int
	Tags         int
	Errors       []string
}

// Syncer runs sync passes. It holds only transient in-flight entry lists;
// the store owns all persisted state.
type Syncer struct {
	api      API
	store    *store.Store
	rawDir   string
	progress ProgressFunc
	now      func() time.Time
}

// New builds a Syncer. rawDir receives one archival JSON snapshot per synced
// year; progress may be nil.
func New(api API, st *store.Store, rawDir string, progress ProgressFunc) *Syncer {
	return &Syncer{
		api:      api,
		store:    st,
		rawDir:   rawDir,
		progress: progress,
		now:      time.Now,
	}
}

func (s *Syncer) report(msg string, frac float64) {
	if s.progress != nil {
		s.progress(msg, frac)
	}
}

// FullSync refreshes projects and tags, then fetches and upserts every year
// from earliestYear through the current year. Each year's write lands
// atomically as one batch upsert, so the pass is safe to re-run or interrupt.
func (s *Syncer) FullSync(ctx context.Context, earliestYear int) (Summary, error) {
	var summary Summary

	projects, tags, err := s.refreshProjectsAndTags(ctx)
	if err != nil {
		return summary, err
	}
	summary.Projects = len(projects)
	summary.Tags = len(tags)

	projectNames := projectNameMap(projects)

	// An earliest year in the future yields an empty range, not an error.
	currentYear := s.now().Year()
	var years []int
	for y := earliestYear; y <= currentYear; y++ {
		years = append(years, y)
	}
	summary.YearsSynced = len(years)

	for i, year := range years {
		frac := 0.06 + 0.90*float64(i)/float64(len(years))
		s.report(fmt.Sprintf("Fetching %d...", year), frac)

		entries, err := s.api.FetchYearEntries(ctx, year)
		if err != nil {
			msg := fmt.Sprintf("  %d: failed (%v)", year, err)
			s.report(msg, frac)
			summary.Errors = append(summary.Errors, msg)
			continue
		}

		enrichProjectNames(entries, projectNames)

		if err := s.writeSnapshot(year, entries); err != nil {
			return summary, err
		}
		if err := s.store.UpsertTimeEntries(entries); err != nil {
			return summary, fmt.Errorf("storing %d entries: %w", year, err)
		}

		summary.TotalEntries += len(entries)
		s.report(fmt.Sprintf("  %d: %d entries", year, len(entries)), frac+0.04)
	}

	now := s.now().Format(time.RFC3339)
	if err := s.store.SetMeta("last_full_sync", now); err != nil {
		return summary, err
	}
	if err := s.store.SetMeta("earliest_year", strconv.Itoa(earliestYear)); err != nil {
		return summary, err
	}

	s.report("Sync complete!", 1.0)
	return summary, nil
}

// IncrementalSync refreshes projects and tags and fetches only the current
// year. Much cheaper against the hourly quota than a full sync.
func (s *Syncer) IncrementalSync(ctx context.Context) (Summary, error) {
	var summary Summary

	projects, tags, err := s.refreshProjectsAndTags(ctx)
	if err != nil {
		return summary, err
	}
	summary.Projects = len(projects)
	summary.Tags = len(tags)

	year := s.now().Year()
	summary.YearsSynced = 1

	s.report(fmt.Sprintf("Fetching %d entries...", year), 0.3)
	entries, err := s.api.FetchYearEntries(ctx, year)
	if err != nil {
		return summary, fmt.Errorf("fetching %d: %w", year, err)
	}

	enrichProjectNames(entries, projectNameMap(projects))

	if err := s.writeSnapshot(year, entries); err != nil {
		return summary, err
	}
	if err := s.store.UpsertTimeEntries(entries); err != nil {
		return summary, fmt.Errorf("storing %d entries: %w", year, err)
	}
	summary.TotalEntries = len(entries)

	now := s.now().Format(time.RFC3339)
	if err := s.store.SetMeta("last_incremental_sync", now); err != nil {
		return summary, err
	}
	if err := s.store.SetMeta(fmt.Sprintf("last_sync_%d", year), now); err != nil {
		return summary, err
	}

	s.report("Sync complete!", 1.0)
	return summary, nil
}

// refreshProjectsAndTags fetches and upserts the workspace's projects and
// tags wholesale. Failures here are fatal for the sync: without a fresh
// project list, entry enrichment cannot run.
func (s *Syncer) refreshProjectsAndTags(ctx context.Context) ([]model.Project, []model.Tag, error) {
	s.report("Fetching projects...", 0.0)
	projects, err := s.api.Projects(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching projects: %w", err)
	}
	if err := s.store.UpsertProjects(projects); err != nil {
		return nil, nil, err
	}
	s.report(fmt.Sprintf("  stored %d projects", len(projects)), 0.02)

	s.report("Fetching tags...", 0.04)
	tags, err := s.api.Tags(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching tags: %w", err)
	}
	if err := s.store.UpsertTags(tags); err != nil {
		return nil, nil, err
	}
	s.report(fmt.Sprintf("  stored %d tags", len(tags)), 0.06)

	return projects, tags, nil
}

// writeSnapshot persists the fetched year as an archival JSON file. The
// snapshots are never read back; they exist for audit and recovery.
func (s *Syncer) writeSnapshot(year int, entries []model.TimeEntry) error {
	if err := os.MkdirAll(s.rawDir, 0o700); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %d snapshot: %w", year, err)
	}

	path := filepath.Join(s.rawDir, fmt.Sprintf("%d.json", year))
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing %d snapshot: %w", year, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving %d snapshot: %w", year, err)
	}
	return nil
}

// Status reports whether any data exists, the years with data, and the sync
// watermarks. Read-only; never touches the vendor API.
func Status(st *store.Store) (model.SyncStatus, error) {
	var status model.SyncStatus

	years, err := st.AvailableYears()
	if err != nil {
		return status, err
	}
	status.YearsWithData = years
	status.HasData = len(years) > 0

	if status.LastFullSync, err = st.GetMeta("last_full_sync"); err != nil {
		return status, err
	}
	if status.LastIncrementalSync, err = st.GetMeta("last_incremental_sync"); err != nil {
		return status, err
	}
	earliest, err := st.GetMeta("earliest_year")
	if err != nil {
		return status, err
	}
	if earliest != "" {
		status.EarliestYear, _ = strconv.Atoi(earliest)
	}
	return status, nil
}

func projectNameMap(projects []model.Project) map[int64]string {
	m := make(map[int64]string, len(projects))
	for _, p := range projects {
		m[p.ID] = p.Name
	}
	return m
}

// enrichProjectNames fills missing denormalized project names from the
// freshly fetched project list.
func enrichProjectNames(entries []model.TimeEntry, names map[int64]string) {
	for i := range entries {
		if entries[i].ProjectName == "" && entries[i].ProjectID != nil {
			entries[i].ProjectName = names[*entries[i].ProjectID]
		}
	}
}
