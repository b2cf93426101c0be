package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trackdash/internal/config"
	"trackdash/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "trackdash",
	Short: "Personal Toggl Track dashboard with a local cache",
	Long: `trackdash keeps a local SQLite cache of your Toggl Track history and
answers questions about it offline. Run a sync to populate the cache;
every other command reads the cache and never touches the API.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(askCmd)
}

// loadConfig reads the config file, exiting on unreadable or malformed files.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// openStore opens the cache database under the configured data directory.
func openStore(cfg config.Config) *store.Store {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	st, err := store.Open(filepath.Join(dataDir, "cache.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return st
}
