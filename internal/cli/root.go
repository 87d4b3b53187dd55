package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command. Without a subcommand it opens the dashboard.
var rootCmd = &cobra.Command{
	Use:   "amdtop",
	Short: "Terminal dashboard for local system, sensor and per-process network activity",
	Long: `amdtop samples CPU, memory, disk, network, GPU and temperature data from
the local machine and shows it as a live terminal dashboard, alongside the
processes that currently hold network connections.

Optional facilities degrade gracefully: without the sensors tool the
temperature panel shows why it's empty, and without permission to read the
connection table the process panel does the same.

Run without a subcommand to open the dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(cmd, monitorOpts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./amdtop.yaml, ~/.config/amdtop/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	addMonitorFlags(rootCmd, &monitorOpts)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isUnknownCommandError(err) {
			fmt.Fprintln(os.Stderr, "  Run 'amdtop --help' to see available commands.")
		}
		os.Exit(1)
	}
}

// isUnknownCommandError reports whether err came from cobra's argument
// parsing rather than from a command.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// loadConfig resolves --config and validates the result.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newEngine builds a sampling engine from the effective config.
func newEngine(cfg *config.Config, opts ...monitor.Option) (*monitor.Engine, error) {
	if verbose {
		_ = os.Setenv(logger.DebugEnv, "1")
	}
	return monitor.NewEngine(cfg, opts...)
}
