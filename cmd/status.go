package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trackdash/internal/syncer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache contents and sync watermarks",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	status, err := syncer.Status(st)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if !status.HasData {
		fmt.Println("No data in the cache yet. Run: trackdash sync --full")
		return nil
	}

	fmt.Print("Years with data: ")
	for i, y := range status.YearsWithData {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(y)
	}
	fmt.Println()

	fmt.Printf("Last full sync:        %s\n", orNever(status.LastFullSync))
	fmt.Printf("Last incremental sync: %s\n", orNever(status.LastIncrementalSync))
	if status.EarliestYear != 0 {
		fmt.Printf("Earliest synced year:  %d\n", status.EarliestYear)
	}
	return nil
}

func orNever(ts string) string {
	if ts == "" {
		return "never"
	}
	return ts
}
