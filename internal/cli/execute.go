package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
	"github.com/randomizedcoder/go-script-runner/internal/format"
	"github.com/randomizedcoder/go-script-runner/internal/tui"
)

var (
	executeEnv     []string
	executeArgs    string
	executeTimeout time.Duration
	executeJSON    bool
	executeFollow  bool
)

var executeCmd = &cobra.Command{
	Use:   "execute <script>",
	Short: "Run a script to completion",
	Long: `Execute runs the named script as a child process and prints its result.

The process inherits the runner's environment; --env overrides individual
variables for this run only. The exit code of this command mirrors the
script: 0 on success, the script's own code on failure, 124 on timeout.`,
	Aliases: []string{"run"},
	Args:    cobra.ExactArgs(1),
	RunE:    runExecute,
}

func init() {
	f := executeCmd.Flags()
	f.StringSliceVar(&executeEnv, "env", nil, "environment overrides as KEY=VALUE (repeatable, comma-separated)")
	f.StringVar(&executeArgs, "args", "", "whitespace-separated arguments passed to the script")
	f.DurationVar(&executeTimeout, "timeout", 0, "wall-clock timeout for this run (default from config)")
	f.BoolVar(&executeJSON, "json", false, "print the result as JSON")
	f.BoolVar(&executeFollow, "follow", false, "show a live view while the script runs")
	rootCmd.AddCommand(executeCmd)
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	envVars, err := parseEnvVars(executeEnv)
	if err != nil {
		return err
	}

	req := engine.Request{
		ScriptName: args[0],
		EnvVars:    envVars,
		Args:       strings.Fields(executeArgs),
		Timeout:    executeTimeout,
	}

	eng := engine.New(newRegistry(cfg), cfg.EngineConfig(), newLogger(cfg), engine.Callbacks{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res engine.Result
	if executeFollow {
		res, err = executeWithFollow(ctx, eng, req, cfg.Interpreter)
	} else {
		res, err = eng.Execute(ctx, req)
	}
	if err != nil {
		return err
	}

	if executeJSON {
		out, err := format.JSON(format.Execution(res))
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else if !executeFollow {
		fmt.Print(format.ExecutionText(res))
	}

	switch {
	case res.TimedOut:
		return NewExitCodeError(engine.TimeoutExitCode)
	case !res.Success:
		return NewExitCodeError(res.ExitCode)
	}
	return nil
}

// executeWithFollow runs the script behind a live bubbletea view, then prints
// the usual summary once the view exits.
func executeWithFollow(ctx context.Context, eng *engine.Engine, req engine.Request, interpreter string) (engine.Result, error) {
	timeout := req.Timeout

	model := tui.New(tui.Config{
		ScriptName:  req.ScriptName,
		Interpreter: interpreter,
		Timeout:     timeout,
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	req.OutputTap = func(stream, line string) {
		tui.SendLine(p, stream, line)
	}

	type outcome struct {
		res engine.Result
		err error
	}
	done := make(chan outcome, 1)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		res, err := eng.Execute(runCtx, req)
		if err != nil {
			tui.SendFault(p, err)
		} else {
			tui.SendResult(p, res)
		}
		done <- outcome{res: res, err: err}
	}()

	// The view quits itself on result or fault. A manual quit (q / ctrl+c)
	// cancels the run instead.
	if _, err := p.Run(); err != nil {
		cancel()
	}
	cancel()
	out := <-done

	if out.err == nil && !executeJSON {
		fmt.Print(format.ExecutionText(out.res))
	}
	return out.res, out.err
}

// parseEnvVars parses KEY=VALUE pairs into a map.
func parseEnvVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	envVars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", pair)
		}
		envVars[key] = value
	}
	return envVars, nil
}
