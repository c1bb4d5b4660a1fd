package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/stats"
)

var statsServer string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show execution statistics from a running server",
	Long: `Stats scrapes the /metrics endpoint of a running server and prints
an execution summary.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsServer, "server", "http://127.0.0.1:8000", "base URL of the running server")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	scraper := stats.NewScraper(statsServer + "/metrics")
	s, err := scraper.Scrape()
	if err != nil {
		return fmt.Errorf("failed to scrape %s: %w", statsServer, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "scripts available\t%d\n", s.ScriptsAvailable)
	fmt.Fprintf(w, "executions in flight\t%d\n", s.ExecutionsInFlight)

	for _, outcome := range sortedKeys(s.ExecutionsByOutcome) {
		fmt.Fprintf(w, "executions (%s)\t%d\n", outcome, s.ExecutionsByOutcome[outcome])
	}
	for _, result := range sortedKeys(s.ValidationsByResult) {
		fmt.Fprintf(w, "validations (%s)\t%d\n", result, s.ValidationsByResult[result])
	}

	if s.ExecutionCount > 0 {
		mean := s.ExecutionTotalSecond / float64(s.ExecutionCount)
		fmt.Fprintf(w, "mean duration\t%.2fs\n", mean)
	}
	w.Flush()
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
