package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trackdash/internal/syncer"
	"trackdash/internal/toggl"
)

var (
	syncFull         bool
	syncEarliestYear int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch time entries from Toggl into the local cache",
	Long: `sync refreshes projects and tags and fetches this year's time entries.
With --full it instead fetches every year from --earliest-year (default from
the config file) through the current year. Each year costs one report API
call, so a full sync over many years can take a while under the hourly quota.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "Sync all years, not just the current one")
	syncCmd.Flags().IntVar(&syncEarliestYear, "earliest-year", 0,
		"First year a full sync fetches (default: config earliest_year)")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	token := cfg.Token()
	if token == "" {
		fmt.Fprintln(os.Stderr, toggl.ErrMissingToken)
		os.Exit(2)
	}

	client, err := toggl.NewClient(toggl.Options{
		Token:       token,
		BaseURL:     cfg.Toggl.BaseURL,
		WorkspaceID: cfg.Toggl.WorkspaceID,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	st := openStore(cfg)
	defer st.Close()

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	rawDir := filepath.Join(dataDir, "raw")

	progress := func(msg string, frac float64) {
		fmt.Printf("[%3.0f%%] %s\n", frac*100, msg)
	}
	s := syncer.New(client, st, rawDir, progress)

	var summary syncer.Summary
	if syncFull {
		earliest := syncEarliestYear
		if earliest == 0 {
			earliest = cfg.Toggl.EarliestYear
		}
		summary, err = s.FullSync(cmd.Context(), earliest)
	} else {
		summary, err = s.IncrementalSync(cmd.Context())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println()
	fmt.Printf("Years synced:  %d\n", summary.YearsSynced)
	fmt.Printf("Entries:       %d\n", summary.TotalEntries)
	fmt.Printf("Projects:      %d\n", summary.Projects)
	fmt.Printf("Tags:          %d\n", summary.Tags)
	if len(summary.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d year(s) failed:\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(2)
	}
	return nil
}
