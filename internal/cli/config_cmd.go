package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/spf13/cobra"
)

// configCmd groups config inspection subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

// configShowCmd prints the merged config as YAML
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration amdtop would run with: built-in defaults, then the
config file, then AMDTOP_* environment overrides.

The output is valid amdtop.yaml and can be saved as a starting point.

Examples:
  amdtop config show
  AMDTOP_INTERVALS_GRAPHS=2s amdtop config show
  amdtop config show > ~/.config/amdtop/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		return writeConfig(cmd.OutOrStdout(), cfg, path)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfig(w io.Writer, cfg *config.Config, path string) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	source := "built-in defaults"
	if path != "" {
		source = path
	}
	if _, err := fmt.Fprintf(w, "# loaded from %s\n", source); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
