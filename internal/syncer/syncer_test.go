package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trackdash/internal/model"
	"trackdash/internal/store"
)

type fakeAPI struct {
	projects  []model.Project
	tags      []model.Tag
	entries   map[int][]model.TimeEntry
	failYears map[int]error
}

func (f *fakeAPI) Projects(ctx context.Context) ([]model.Project, error) {
	return f.projects, nil
}

func (f *fakeAPI) Tags(ctx context.Context) ([]model.Tag, error) {
	return f.tags, nil
}

func (f *fakeAPI) FetchYearEntries(ctx context.Context, year int) ([]model.TimeEntry, error) {
	if err := f.failYears[year]; err != nil {
		return nil, err
	}
	return f.entries[year], nil
}

type progressRecord struct {
	msg  string
	frac float64
}

func newTestSyncer(t *testing.T, api API) (*Syncer, *store.Store, string, *[]progressRecord) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rawDir := filepath.Join(t.TempDir(), "raw")
	var recorded []progressRecord
	s := New(api, st, rawDir, func(msg string, frac float64) {
		recorded = append(recorded, progressRecord{msg, frac})
	})
	s.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s, st, rawDir, &recorded
}

func yearEntry(id int64, year int, projectID int64, name string) model.TimeEntry {
	e := model.TimeEntry{
		ID:          id,
		Description: "work",
		Start:       fmt.Sprintf("%d-03-01T09:00:00", year),
		Duration:    3600,
		ProjectName: name,
		Tags:        []string{},
		TagIDs:      []int64{},
	}
	if projectID != 0 {
		e.ProjectID = &projectID
	}
	return e
}

func TestFullSync(t *testing.T) {
	api := &fakeAPI{
		projects: []model.Project{{ID: 10, Name: "Deep Work", Active: true}},
		tags:     []model.Tag{{ID: 1, Name: "focus"}},
		entries: map[int][]model.TimeEntry{
			2022: {yearEntry(1, 2022, 0, "Blog")},
			2023: {yearEntry(2, 2023, 10, ""), yearEntry(3, 2023, 0, "Blog")},
			2024: {yearEntry(4, 2024, 0, "Blog")},
		},
	}
	s, st, rawDir, recorded := newTestSyncer(t, api)

	summary, err := s.FullSync(context.Background(), 2022)
	if err != nil {
		t.Fatalf("FullSync: %v", err)
	}
	if summary.YearsSynced != 3 || summary.TotalEntries != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Projects != 1 || summary.Tags != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("unexpected errors: %v", summary.Errors)
	}

	got, err := st.Entries(store.EntryFilter{})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("stored %d entries, want 4", len(got))
	}

	// An entry carrying only a project id gets the name filled in.
	byYear, err := st.Entries(store.EntryFilter{Year: 2023})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	enriched := false
	for _, e := range byYear {
		if e.ProjectID != nil && e.ProjectName == "Deep Work" {
			enriched = true
		}
	}
	if !enriched {
		t.Errorf("enrichment missing: %+v", byYear)
	}

	if v, _ := st.GetMeta("last_full_sync"); v == "" {
		t.Error("last_full_sync watermark not written")
	}
	if v, _ := st.GetMeta("earliest_year"); v != "2022" {
		t.Errorf("earliest_year = %q", v)
	}

	for _, year := range []int{2022, 2023, 2024} {
		if _, err := os.Stat(filepath.Join(rawDir, fmt.Sprintf("%d.json", year))); err != nil {
			t.Errorf("missing snapshot for %d: %v", year, err)
		}
	}

	checkProgress(t, *recorded)
}

func TestFullSyncYearFailureDoesNotAbort(t *testing.T) {
	api := &fakeAPI{
		entries: map[int][]model.TimeEntry{
			2023: {yearEntry(1, 2023, 0, "Blog")},
			2024: {yearEntry(2, 2024, 0, "Blog")},
		},
		failYears: map[int]error{2023: errors.New("export timed out")},
	}
	s, st, rawDir, recorded := newTestSyncer(t, api)

	summary, err := s.FullSync(context.Background(), 2023)
	if err != nil {
		t.Fatalf("FullSync: %v", err)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %v, want 1", summary.Errors)
	}
	if summary.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want only the good year", summary.TotalEntries)
	}

	got, err := st.Entries(store.EntryFilter{})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 1 || got[0].StartYear != 2024 {
		t.Errorf("stored = %+v", got)
	}

	// Failed year leaves no snapshot; watermark is still written.
	if _, err := os.Stat(filepath.Join(rawDir, "2023.json")); !os.IsNotExist(err) {
		t.Errorf("unexpected snapshot for failed year: %v", err)
	}
	if v, _ := st.GetMeta("last_full_sync"); v == "" {
		t.Error("last_full_sync not written after partial failure")
	}

	checkProgress(t, *recorded)
}

func TestFullSyncFutureEarliestYear(t *testing.T) {
	api := &fakeAPI{}
	s, st, _, recorded := newTestSyncer(t, api)

	// now is fixed at 2024: a 2030 start year means there is nothing to fetch.
	summary, err := s.FullSync(context.Background(), 2030)
	if err != nil {
		t.Fatalf("FullSync: %v", err)
	}
	if summary.YearsSynced != 0 || summary.TotalEntries != 0 || len(summary.Errors) != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}

	got, err := st.Entries(store.EntryFilter{})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("stored %d entries, want none", len(got))
	}

	checkProgress(t, *recorded)
}

func TestIncrementalSync(t *testing.T) {
	api := &fakeAPI{
		entries: map[int][]model.TimeEntry{
			2024: {yearEntry(1, 2024, 0, "Blog"), yearEntry(2, 2024, 0, "Blog")},
		},
	}
	s, st, _, recorded := newTestSyncer(t, api)

	summary, err := s.IncrementalSync(context.Background())
	if err != nil {
		t.Fatalf("IncrementalSync: %v", err)
	}
	if summary.YearsSynced != 1 || summary.TotalEntries != 2 {
		t.Errorf("summary = %+v", summary)
	}

	if v, _ := st.GetMeta("last_incremental_sync"); v == "" {
		t.Error("last_incremental_sync not written")
	}
	if v, _ := st.GetMeta("last_sync_2024"); v == "" {
		t.Error("last_sync_2024 not written")
	}

	checkProgress(t, *recorded)
}

// checkProgress asserts fractions never decrease and the final report is 1.0.
func checkProgress(t *testing.T, recorded []progressRecord) {
	t.Helper()
	if len(recorded) == 0 {
		t.Fatal("no progress reported")
	}
	prev := 0.0
	for _, r := range recorded {
		if r.frac < prev {
			t.Errorf("progress went backwards: %v after %v (%q)", r.frac, prev, r.msg)
		}
		prev = r.frac
	}
	if last := recorded[len(recorded)-1]; last.frac != 1.0 {
		t.Errorf("final progress = %v, want 1.0", last.frac)
	}
}

func TestStatus(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	status, err := Status(st)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.HasData {
		t.Error("empty store reports HasData")
	}

	if err := st.UpsertTimeEntries([]model.TimeEntry{yearEntry(1, 2023, 0, "Blog")}); err != nil {
		t.Fatalf("UpsertTimeEntries: %v", err)
	}
	if err := st.SetMeta("last_full_sync", "2024-06-01T10:00:00Z"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := st.SetMeta("earliest_year", "2022"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}

	status, err = Status(st)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.HasData || len(status.YearsWithData) != 1 || status.YearsWithData[0] != 2023 {
		t.Errorf("status = %+v", status)
	}
	if status.LastFullSync != "2024-06-01T10:00:00Z" || status.EarliestYear != 2022 {
		t.Errorf("status = %+v", status)
	}
}
