package toggl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"trackdash/internal/model"
)

const (
	defaultBaseURL = "https://api.track.toggl.com"
	apiV9Path      = "/api/v9"
	reportsV3Path  = "/reports/api/v3"

	maxAttempts       = 3
	defaultRetryAfter = 5 * time.Second
	defaultQuotaReset = 120 * time.Second
)

// ErrMissingToken is returned when no API token is configured. Sync cannot
// start without one.
var ErrMissingToken = errors.New(
	"TOGGL_API_TOKEN not set: paste your token from https://track.toggl.com/profile " +
		"into the environment or the config file")

// Options configures a Client. Only Token is required.
type Options struct {
	Token       string
	BaseURL     string        // empty = production API
	WorkspaceID int64         // 0 = the profile's default workspace
	MaxPerHour  int           // 0 = DefaultMaxPerHour
	MinInterval time.Duration // 0 = DefaultMinInterval
	HTTPClient  *http.Client  // nil = http.DefaultClient
}

// Client is a rate-limited Toggl Track API client. Every request first
// acquires the limiter, authenticates with the API token over HTTP Basic,
// and retries on throttle (429) and quota (402) responses.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	limiter     *RateLimiter
	workspaceID int64

	sleep func(time.Duration)
	now   func() time.Time

	me *Me // cached after first call
}

// Me is the authenticated user profile.
type Me struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	FullName           string `json:"fullname"`
	DefaultWorkspaceID int64  `json:"default_workspace_id"`
}

// NewClient validates the token and builds a client.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.MaxPerHour == 0 {
		opts.MaxPerHour = DefaultMaxPerHour
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{
		httpClient:  opts.HTTPClient,
		baseURL:     opts.BaseURL,
		token:       opts.Token,
		limiter:     NewRateLimiter(opts.MaxPerHour, opts.MinInterval),
		workspaceID: opts.WorkspaceID,
		sleep:       time.Sleep,
		now:         time.Now,
	}, nil
}

// do issues one rate-limited request with bounded retries.
// 429 waits out the Retry-After hint; 402 waits out the quota reset hint on
// all but the last attempt. Any other non-2xx status is fatal for the call.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.SetBasicAuth(c.token, "api_token")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("toggl API request failed: %w", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := headerSeconds(resp.Header, "Retry-After", defaultRetryAfter)
			fmt.Fprintf(os.Stderr, "[429] rate limited, retrying in %s (attempt %d/%d)\n",
				wait, attempt, maxAttempts)
			c.sleep(wait)
			continue

		case resp.StatusCode == http.StatusPaymentRequired:
			if attempt < maxAttempts {
				wait := headerSeconds(resp.Header, "X-Toggl-Quota-Resets-In", defaultQuotaReset)
				fmt.Fprintf(os.Stderr, "[402] quota exceeded, waiting %s before retry\n", wait)
				c.sleep(wait)
				continue
			}
			return nil, fmt.Errorf("toggl API quota exceeded (402): %s", data)

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, fmt.Errorf("toggl API error %d: %s", resp.StatusCode, data)
		}

		return data, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %s %s", maxAttempts, method, url)
}

// headerSeconds reads an integer seconds header, falling back when absent or
// unparsable.
func headerSeconds(h http.Header, key string, fallback time.Duration) time.Duration {
	v := h.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding toggl response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload)
}

// GetMe fetches the authenticated user profile. Cached after the first call.
func (c *Client) GetMe(ctx context.Context) (*Me, error) {
	if c.me != nil {
		return c.me, nil
	}
	var me Me
	if err := c.get(ctx, c.baseURL+apiV9Path+"/me", &me); err != nil {
		return nil, err
	}
	c.me = &me
	return c.me, nil
}

// WorkspaceID returns the configured workspace, or the profile's default
// workspace when none is configured.
func (c *Client) WorkspaceID(ctx context.Context) (int64, error) {
	if c.workspaceID != 0 {
		return c.workspaceID, nil
	}
	me, err := c.GetMe(ctx)
	if err != nil {
		return 0, err
	}
	c.workspaceID = me.DefaultWorkspaceID
	return c.workspaceID, nil
}

// projectPayload is the wire shape of a workspace project. Optional fields
// are pointers so absent values can be defaulted instead of zeroed.
type projectPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int64  `json:"workspace_id"`
	Wid         int64  `json:"wid"`
	Color       string `json:"color"`
	Active      *bool  `json:"active"`
	At          string `json:"at"`
}

// Projects fetches all projects for the workspace.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	wid, err := c.WorkspaceID(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s%s/workspaces/%d/projects?per_page=200", c.baseURL, apiV9Path, wid)

	var payload []projectPayload
	if err := c.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	projects := make([]model.Project, 0, len(payload))
	for _, p := range payload {
		workspace := p.WorkspaceID
		if workspace == 0 {
			workspace = p.Wid
		}
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		projects = append(projects, model.Project{
			ID:          p.ID,
			Name:        p.Name,
			WorkspaceID: workspace,
			Color:       p.Color,
			Active:      active,
			At:          p.At,
		})
	}
	return projects, nil
}

type tagPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int64  `json:"workspace_id"`
	Wid         int64  `json:"wid"`
}

// Tags fetches all tags for the workspace.
func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	wid, err := c.WorkspaceID(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s%s/workspaces/%d/tags", c.baseURL, apiV9Path, wid)

	var payload []tagPayload
	if err := c.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	tags := make([]model.Tag, 0, len(payload))
	for _, t := range payload {
		workspace := t.WorkspaceID
		if workspace == 0 {
			workspace = t.Wid
		}
		tags = append(tags, model.Tag{ID: t.ID, Name: t.Name, WorkspaceID: workspace})
	}
	return tags, nil
}

// exportDetailedCSV requests the detailed report for a date range as a CSV
// export. A single call returns the full dataset, which is what keeps a
// year's fetch at one request against the hourly quota.
func (c *Client) exportDetailedCSV(ctx context.Context, startDate, endDate string) ([]byte, error) {
	wid, err := c.WorkspaceID(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s%s/workspace/%d/search/time_entries.csv", c.baseURL, reportsV3Path, wid)
	return c.post(ctx, url, map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	})
}
