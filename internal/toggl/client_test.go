package toggl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testClient builds a client against srv with fast rate limiting and
// recorded (not executed) retry sleeps.
func testClient(t *testing.T, srv *httptest.Server) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := NewClient(Options{
		Token:       "tok",
		BaseURL:     srv.URL,
		MinInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestNewClientMissingToken(t *testing.T) {
	if _, err := NewClient(Options{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("NewClient(no token) = %v, want ErrMissingToken", err)
	}
}

func TestDoRetriesAfter429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id": 1}`)
	}))
	defer srv.Close()

	c, slept := testClient(t, srv)
	data, err := c.do(context.Background(), http.MethodGet, srv.URL+"/x", nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(data) != `{"id": 1}` {
		t.Errorf("body = %q", data)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Errorf("slept = %v, want [7s]", *slept)
	}
}

func TestDoQuotaExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-Toggl-Quota-Resets-In", "30")
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c, slept := testClient(t, srv)
	_, err := c.do(context.Background(), http.MethodGet, srv.URL+"/x", nil)
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("do = %v, want quota error", err)
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
	// The final attempt fails without sleeping again.
	if len(*slept) != maxAttempts-1 {
		t.Errorf("slept %d times, want %d", len(*slept), maxAttempts-1)
	}
	for _, d := range *slept {
		if d != 30*time.Second {
			t.Errorf("slept %v, want 30s", d)
		}
	}
}

func TestDoFatalStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv)
	_, err := c.do(context.Background(), http.MethodGet, srv.URL+"/x", nil)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("do = %v, want status error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retry on fatal status", calls)
	}
}

func TestDoSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tok" || pass != "api_token" {
			t.Errorf("basic auth = %q:%q ok=%v", user, pass, ok)
		}
		fmt.Fprint(w, "{}")
	}))
	defer srv.Close()

	c, _ := testClient(t, srv)
	if _, err := c.do(context.Background(), http.MethodGet, srv.URL+"/x", nil); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestWorkspaceIDFallsBackToProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v9/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 1, "email": "a@b.c", "default_workspace_id": 777}`)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv)
	wid, err := c.WorkspaceID(context.Background())
	if err != nil {
		t.Fatalf("WorkspaceID: %v", err)
	}
	if wid != 777 {
		t.Errorf("wid = %d, want 777", wid)
	}

	// Cached: a second call must not hit the server again.
	srv.Close()
	if wid, err = c.WorkspaceID(context.Background()); err != nil || wid != 777 {
		t.Errorf("cached WorkspaceID = %d, %v", wid, err)
	}
}

func TestProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v9/workspaces/42/projects":
			// One project with legacy wid and no active flag.
			fmt.Fprint(w, `[
				{"id": 10, "name": "Deep Work", "workspace_id": 42, "color": "#aabbcc", "active": false, "at": "2024-01-01"},
				{"id": 11, "name": "Legacy", "wid": 42}
			]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := NewClient(Options{Token: "tok", BaseURL: srv.URL, WorkspaceID: 42, MinInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	projects, err := c.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects", len(projects))
	}
	if projects[0].Name != "Deep Work" || projects[0].Active {
		t.Errorf("project 0 = %+v", projects[0])
	}
	if projects[1].WorkspaceID != 42 {
		t.Errorf("wid fallback not applied: %+v", projects[1])
	}
	if !projects[1].Active {
		t.Errorf("absent active flag should default true: %+v", projects[1])
	}
}

func TestFetchYearEntriesDateRange(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/api/v3/workspace/42/search/time_entries.csv" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, "Description,Start date,Start time,End date,End time,Duration,Project,Tags,Billable\n"+
			"Writing,2020-02-01,09:00:00,2020-02-01,10:30:00,1:30:00,Blog,focus,No\n")
	}))
	defer srv.Close()

	c, err := NewClient(Options{Token: "tok", BaseURL: srv.URL, WorkspaceID: 42, MinInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	entries, err := c.FetchYearEntries(context.Background(), 2020)
	if err != nil {
		t.Fatalf("FetchYearEntries: %v", err)
	}
	if !strings.Contains(gotBody, `"start_date":"2020-01-01"`) ||
		!strings.Contains(gotBody, `"end_date":"2020-12-31"`) {
		t.Errorf("past year body = %s", gotBody)
	}
	if len(entries) != 1 || entries[0].Description != "Writing" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Duration != 5400 {
		t.Errorf("duration = %d, want 5400", entries[0].Duration)
	}

	// The current year's range is clamped to today.
	if _, err := c.FetchYearEntries(context.Background(), 2024); err != nil {
		t.Fatalf("FetchYearEntries current year: %v", err)
	}
	if !strings.Contains(gotBody, `"end_date":"2024-06-15"`) {
		t.Errorf("current year body = %s", gotBody)
	}
}
