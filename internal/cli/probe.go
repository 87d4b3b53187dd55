package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	"github.com/rileyhilliard/amdtop/internal/ui"
	"github.com/spf13/cobra"
)

var probeJSON bool

// probeCmd reports which optional facilities are usable
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check which optional facilities are available",
	Long: `Probe the sensors tool, the connection table and the GPU backend once and
report what the dashboard will be able to show.

Missing facilities are not errors: the matching panel just explains why it's empty.

Examples:
  amdtop probe
  amdtop probe --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			if probeJSON {
				_ = WriteJSONFromError(cmd.OutOrStdout(), err)
			}
			return err
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		engine.Start(cmd.Context())
		return writeProbe(cmd.OutOrStdout(), engine.Probe(), cfg, path, probeJSON)
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(probeCmd)
}

// ProbeResult is one capability in `probe --json` output.
type ProbeResult struct {
	Capability monitor.Capability `json:"capability"`
	Available  bool               `json:"available"`
	Reason     string             `json:"reason,omitempty"`
	Suggestion string             `json:"suggestion,omitempty"`
}

// probeResults lists every capability in name order.
func probeResults(p *monitor.Probe, cfg *config.Config) []ProbeResult {
	caps := p.Capabilities()
	out := make([]ProbeResult, 0, len(caps))
	for _, c := range caps {
		flag := p.Flag(c)
		r := ProbeResult{Capability: c, Available: flag.Available, Reason: flag.Reason}
		if !flag.Available {
			r.Suggestion = capabilitySuggestion(c, cfg)
		}
		out = append(out, r)
	}
	return out
}

func capabilitySuggestion(c monitor.Capability, cfg *config.Config) string {
	switch c {
	case monitor.CapSensors:
		return fmt.Sprintf("Install lm-sensors so %q is on PATH, then run sensors-detect.", cfg.Sensors.Command)
	case monitor.CapNetwork:
		if !cfg.Network.Enabled {
			return "Set network.enabled: true to list processes with connections."
		}
		return "Run as root to see connections owned by other users."
	case monitor.CapGPU:
		if cfg.GPU.Backend == config.GPUBackendNone {
			return "Set gpu.backend to auto, amdgpu or nvidia to enable the GPU panel."
		}
		return "Check the amdgpu driver is loaded (" + cfg.GPU.SysfsRoot + ") or nvidia-smi is on PATH."
	}
	return ""
}

func writeProbe(w io.Writer, p *monitor.Probe, cfg *config.Config, path string, asJSON bool) error {
	results := probeResults(p, cfg)
	if asJSON {
		return WriteJSONSuccess(w, results)
	}

	source := "built-in defaults"
	if path != "" {
		source = path
	}
	rows := []ui.CheckRow{{Status: "pass", Category: "Configuration", Message: "loaded from " + source}}
	for _, r := range results {
		row := ui.CheckRow{Category: "Capabilities", Suggestion: r.Suggestion}
		if r.Available {
			row.Status = "pass"
			row.Message = string(r.Capability) + ": available"
		} else {
			row.Status = "warn"
			row.Message = string(r.Capability) + ": " + r.Reason
		}
		rows = append(rows, row)
	}
	_, err := io.WriteString(w, ui.RenderCheckTable(rows))
	return err
}
