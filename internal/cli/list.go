package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/format"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List runnable scripts",
	Long: `List the scripts available in the scripts directory.

Files with the configured extension are listed by name; files prefixed with
an underscore are treated as helpers and skipped.`,
	Aliases: []string{"ls"},
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the listing as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scripts, err := newRegistry(cfg).List()
	if err != nil {
		return fmt.Errorf("failed to list scripts: %w", err)
	}

	names := make([]string, 0, len(scripts))
	for _, script := range scripts {
		names = append(names, script.Name)
	}

	if listJSON {
		out, err := format.JSON(format.ScriptListResponse{Scripts: names})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	if len(names) == 0 {
		fmt.Printf("No scripts found in %s.\n", cfg.ScriptsDir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFILE")
	for _, script := range scripts {
		fmt.Fprintf(w, "%s\t%s\n", script.Name, script.Path)
	}
	w.Flush()
	return nil
}
