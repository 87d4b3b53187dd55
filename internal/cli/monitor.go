package cli

import (
	stderrors "errors"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/dashboard"
	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// debugLogFile receives log output while the dashboard owns the terminal.
const debugLogFile = "amdtop-debug.log"

// monitorOptions are the flags shared by the root command and `monitor`.
type monitorOptions struct {
	Interval string
	GPU      string
}

var monitorOpts monitorOptions

// monitorCmd opens the live dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal dashboard (default command)",
	Long: `Open the interactive dashboard with CPU, memory, disk, network, GPU and
temperature graphs plus the processes holding network connections.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Re-check optional facilities
  s           Cycle process sort order (total/download/upload/name)
  up/k        Select previous process
  down/j      Select next process
  Enter       Show connections for the selected process
  Esc         Go back
  ?           Show help

When stdout is not a terminal a single text snapshot is printed instead.

Examples:
  amdtop
  amdtop monitor --interval 500ms
  amdtop monitor --gpu none`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(cmd, monitorOpts)
	},
}

func init() {
	addMonitorFlags(monitorCmd, &monitorOpts)
	rootCmd.AddCommand(monitorCmd)
}

func addMonitorFlags(cmd *cobra.Command, opts *monitorOptions) {
	cmd.Flags().StringVar(&opts.Interval, "interval", "", "graph refresh interval (e.g. 500ms, 2s); overrides intervals.graphs")
	cmd.Flags().StringVar(&opts.GPU, "gpu", "", "GPU backend: auto, amdgpu, nvidia or none; overrides gpu.backend")
}

// applyMonitorFlags layers command-line overrides onto cfg and re-validates.
func applyMonitorFlags(cfg *config.Config, opts monitorOptions) error {
	if opts.Interval != "" {
		d, err := ParseInterval(opts.Interval)
		if err != nil {
			return err
		}
		cfg.Intervals.Graphs = d
	}
	if opts.GPU != "" {
		cfg.GPU.Backend = opts.GPU
	}
	return config.Validate(cfg)
}

// monitorCommand runs the dashboard, or prints a snapshot when stdout
// isn't a terminal.
func monitorCommand(cmd *cobra.Command, opts monitorOptions) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyMonitorFlags(cfg, opts); err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engine.Start(ctx)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		logger.Default().Info("stdout is not a terminal, printing a snapshot instead of the dashboard")
		return runSnapshot(ctx, cmd.OutOrStdout(), engine, snapshotOptions{Samples: 2})
	}

	restore, err := redirectLogs()
	if err != nil {
		return err
	}
	defer restore()

	p := tea.NewProgram(dashboard.NewModel(engine), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return errors.WrapWithCode(err, errors.ErrExec,
			"The dashboard exited unexpectedly",
			"Re-run with --verbose and check "+debugLogFile)
	}
	return nil
}

// redirectLogs keeps log output from drawing over the dashboard. With debug
// logging enabled it goes to debugLogFile, otherwise it is discarded.
func redirectLogs() (func(), error) {
	prev := log.Writer()
	if !logger.DebugEnabled() {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(prev) }, nil
	}

	f, err := tea.LogToFile(debugLogFile, "amdtop")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't open "+debugLogFile,
			"Run from a writable directory or drop --verbose")
	}
	return func() {
		_ = f.Close()
		log.SetOutput(prev)
	}, nil
}
