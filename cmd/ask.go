package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trackdash/internal/query"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a free-text question about your tracked time",
	Long: `ask answers plain-language questions against the local cache, e.g.:

  trackdash ask "how was 2024?"
  trackdash ask "2023 vs 2024"
  trackdash ask "top projects"
  trackdash ask "what did I do on March 15, 2023?"

Unrecognised questions print a list of supported phrasings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	answer, err := query.New(st).Answer(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Println(answer)
	return nil
}
