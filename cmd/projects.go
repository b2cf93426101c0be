package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List cached projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	projects, err := st.Projects()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(projects) == 0 {
		fmt.Println("No projects in the cache yet. Run: trackdash sync")
		return nil
	}

	for _, p := range projects {
		marker := " "
		if !p.Active {
			marker = "x" // archived
		}
		line := fmt.Sprintf("[%s] %s", marker, p.Name)
		if p.Color != "" {
			line += fmt.Sprintf("  (%s)", p.Color)
		}
		fmt.Println(line)
	}
	return nil
}
