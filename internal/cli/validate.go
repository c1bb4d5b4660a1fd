package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/format"
	"github.com/randomizedcoder/go-script-runner/internal/validator"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <script>",
	Short: "Syntax-check a script without running it",
	Long: `Validate compiles the named script and reports syntax errors.

The script is never executed: semantic failures (missing modules, runtime
exceptions) are only discovered by execute.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	script, err := newRegistry(cfg).Resolve(args[0])
	if err != nil {
		return err
	}

	res, err := validator.Validate(script)
	if err != nil {
		return fmt.Errorf("failed to validate %q: %w", args[0], err)
	}

	if validateJSON {
		out, err := format.JSON(format.Validation(res))
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		fmt.Print(format.ValidationText(res))
	}

	if !res.Valid {
		return NewExitCodeError(1)
	}
	return nil
}
