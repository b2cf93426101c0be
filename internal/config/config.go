package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// Config is the root configuration for trackdash, stored in
// ~/.trackdash/config.json. The file supports single-line // comments for
// documentation purposes.
type Config struct {
	Toggl TogglConfig `json:"toggl"`
	// DataDir overrides the default data directory (~/.trackdash).
	DataDir string `json:"data_dir"`
}

// TogglConfig holds Toggl Track API settings.
type TogglConfig struct {
	// APIToken authenticates against the Toggl Track API. The
	// TOGGL_API_TOKEN environment variable takes precedence over this field.
	APIToken string `json:"api_token"`
	// WorkspaceID scopes project/tag/report calls. 0 means "use the
	// profile's default workspace".
	WorkspaceID int64 `json:"workspace_id"`
	// EarliestYear is the first year a full sync fetches.
	EarliestYear int `json:"earliest_year"`
	// BaseURL of the Toggl Track API. Only changed for testing.
	BaseURL string `json:"base_url"`
}

const (
	// DefaultEarliestYear is the first year fetched by a full sync when the
	// config does not say otherwise.
	DefaultEarliestYear = 2017
	// DefaultBaseURL is the production Toggl Track API host.
	DefaultBaseURL = "https://api.track.toggl.com"
	// TokenEnvVar is the environment variable consulted before the config
	// file's api_token field.
	TokenEnvVar = "TOGGL_API_TOKEN"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Toggl: TogglConfig{
			EarliestYear: DefaultEarliestYear,
			BaseURL:      DefaultBaseURL,
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// trackdash configuration – ~/.trackdash/config.json
//
// All settings are optional except the API token, which may also be supplied
// via the TOGGL_API_TOKEN environment variable (the variable wins).
// Edit this file to customise trackdash behaviour.
{
  // ── Toggl Track API ──────────────────────────────────────────────────────
  "toggl": {
    // API token from https://track.toggl.com/profile.
    // Prefer setting TOGGL_API_TOKEN in the environment over storing it here.
    "api_token": "",

    // Workspace ID for project/tag/report calls.
    // 0 = use the default workspace of the authenticated profile.
    "workspace_id": 0,

    // First year a full sync fetches. Each year costs one report API call.
    "earliest_year": 2017,

    // API host. Only change this for testing against a stub server.
    "base_url": "https://api.track.toggl.com"
  },

  // Data directory holding the cache database and raw yearly snapshots.
  // Empty = ~/.trackdash
  "data_dir": ""
}
`

// configFilePath returns the path to ~/.trackdash/config.json.
func configFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".trackdash", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.trackdash/config.json, creating it with annotated defaults on
// first run. Lines starting with // are treated as comments and stripped
// before JSON parsing.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return cfg, nil
}

// Parse decodes commented-JSON config data and fills zero-value fields with
// built-in defaults so callers always get a usable Config even if the user
// only partially fills in the file.
func Parse(data []byte) (Config, error) {
	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), err
	}
	if cfg.Toggl.EarliestYear == 0 {
		cfg.Toggl.EarliestYear = DefaultEarliestYear
	}
	if cfg.Toggl.BaseURL == "" {
		cfg.Toggl.BaseURL = DefaultBaseURL
	}
	return cfg, nil
}

// Token resolves the API token: environment variable first, config file second.
// An empty result means sync cannot start.
func (c Config) Token() string {
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok
	}
	return c.Toggl.APIToken
}

// ResolveDataDir returns the directory holding the cache database and raw
// snapshots, creating nothing.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".trackdash"), nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
