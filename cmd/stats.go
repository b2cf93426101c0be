package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show all-time aggregate stats",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	stats, err := st.TotalStats()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if stats.TotalEntries == 0 {
		fmt.Println("No data in the cache yet. Run: trackdash sync --full")
		return nil
	}

	fmt.Printf("Total hours:     %.1f\n", stats.TotalHours)
	fmt.Printf("Total entries:   %d\n", stats.TotalEntries)
	fmt.Printf("Years tracked:   %d\n", stats.YearsTracked)
	fmt.Printf("Unique projects: %d\n", stats.UniqueProjects)
	fmt.Printf("Date range:      %s to %s\n", stats.EarliestDate, stats.LatestDate)
	return nil
}
