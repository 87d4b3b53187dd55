package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/amdtop/internal/dashboard"
	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	"github.com/rileyhilliard/amdtop/internal/ui"
	"github.com/rileyhilliard/amdtop/internal/util"
	"github.com/spf13/cobra"
)

// snapshotSparkWidth is the number of history points shown per sparkline.
const snapshotSparkWidth = 20

// snapshotOptions controls a one-shot sample run.
type snapshotOptions struct {
	Samples int
	JSON    bool
	Wait    time.Duration // between samples; 0 means the slowest rate interval

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var snapshotOpts = snapshotOptions{Samples: 2}

// snapshotCmd samples a few times and prints the result
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Sample once and print the results",
	Long: `Take a short series of samples and print CPU, memory, disk, network, GPU,
temperature and per-process network data, then exit.

Rates need two samples, so the default waits one interval between them.

Examples:
  amdtop snapshot
  amdtop snapshot --json
  amdtop snapshot --samples 5 --wait 1s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := snapshotCommand(cmd)
		if err != nil && snapshotOpts.JSON {
			_ = WriteJSONFromError(cmd.OutOrStdout(), err)
		}
		return err
	},
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotOpts.Samples, "samples", 2, "number of samples to take (at least 1)")
	snapshotCmd.Flags().BoolVar(&snapshotOpts.JSON, "json", false, "output as JSON")
	snapshotCmd.Flags().DurationVar(&snapshotOpts.Wait, "wait", 0, "time between samples (default: the slowest of intervals.graphs and intervals.processes)")
	rootCmd.AddCommand(snapshotCmd)
}

func snapshotCommand(cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	engine.Start(cmd.Context())
	return runSnapshot(cmd.Context(), cmd.OutOrStdout(), engine, snapshotOpts)
}

// runSnapshot samples engine opts.Samples times and writes the final
// snapshot to w. The engine must already be started.
func runSnapshot(ctx context.Context, w io.Writer, engine *monitor.Engine, opts snapshotOptions) error {
	if opts.Samples < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("--samples must be at least 1, got %d", opts.Samples),
			"Use --samples 2 or more to get rates.")
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.sleep == nil {
		opts.sleep = sleepContext
	}
	wait := opts.Wait
	if wait <= 0 {
		iv := engine.Config().Intervals
		wait = max(iv.Graphs, iv.Processes)
	}

	for i := 0; i < opts.Samples; i++ {
		if i > 0 {
			if err := opts.sleep(ctx, wait); err != nil {
				return err
			}
		}
		engine.RunDue(ctx, opts.now())
	}

	snap := engine.Snapshot()
	if opts.JSON {
		return WriteJSONSuccess(w, snap)
	}
	_, err := io.WriteString(w, renderSnapshot(engine, snap))
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// renderSnapshot formats snap as plain terminal text.
func renderSnapshot(engine *monitor.Engine, snap monitor.Snapshot) string {
	cfg := engine.Config()
	hist := engine.History()
	heading := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary)
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	spark := func(key string, th ui.SparkThresholds) string {
		return ui.RenderSparkline(hist.Values(key), snapshotSparkWidth, th)
	}
	pct := func(t int, c int) ui.SparkThresholds {
		return ui.SparkThresholds{Warning: float64(t), Critical: float64(c)}
	}

	var b strings.Builder
	b.WriteString(ui.RenderHeader(ui.HeaderInfo{Version: formatVersion(version), Tagline: "snapshot at " + snap.Time.Format(time.RFC3339)}))
	b.WriteString("\n")

	sys := snap.System
	th := cfg.Thresholds
	pairs := [][2]string{
		{"CPU", fmt.Sprintf("%5.1f%% of %s  %s", sys.CPUPercent, util.Count(sys.CPUCores, "core", "cores"),
			spark(monitor.KeyCPU, pct(th.CPU.Warning, th.CPU.Critical)))},
		{"Memory", fmt.Sprintf("%5.1f%% (%s / %s)  %s", sys.MemoryPercent,
			humanize.IBytes(sys.MemoryUsed), humanize.IBytes(sys.MemoryTotal),
			spark(monitor.KeyMemory, pct(th.Memory.Warning, th.Memory.Critical)))},
		{"Disk", fmt.Sprintf("read %s  write %s", dashboard.FormatRate(sys.DiskReadRate), dashboard.FormatRate(sys.DiskWriteRate))},
		{"Network", fmt.Sprintf("down %s  up %s", dashboard.FormatRate(sys.NetDownload), dashboard.FormatRate(sys.NetUpload))},
		{"GPU", gpuLine(snap, spark(monitor.KeyGPUUsage, pct(th.GPU.Warning, th.GPU.Critical)))},
	}
	for _, p := range sys.Partitions {
		pairs = append(pairs, [2]string{p.Mountpoint, fmt.Sprintf("%5.1f%% of %s (%s)", p.Percent, humanize.IBytes(p.Total), p.Device)})
	}
	b.WriteString(heading.Render("System") + "\n")
	b.WriteString(ui.KeyValues(pairs))
	b.WriteString("\n")

	b.WriteString(heading.Render("Temperatures") + "\n")
	switch flag := snap.Capabilities[monitor.CapSensors]; {
	case !flag.Available:
		b.WriteString(muted.Render("unavailable: "+flag.Reason) + "\n")
	case len(snap.Temperatures) == 0:
		b.WriteString(muted.Render("no matching sensors") + "\n")
	default:
		rows := make([][]string, 0, len(snap.Temperatures))
		for _, t := range snap.Temperatures {
			rows = append(rows, []string{t.Name, t.Category, t.Adapter + "/" + t.Metric, fmt.Sprintf("%.1f°C", t.Value)})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "Name", Width: 24},
			{Title: "Category", Width: 12},
			{Title: "Sensor", Width: 32},
			{Title: "Temp", Width: 8},
		}, rows) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(heading.Render("Network Processes") + "\n")
	switch flag := snap.Capabilities[monitor.CapNetwork]; {
	case !flag.Available:
		b.WriteString(muted.Render("unavailable: "+flag.Reason) + "\n")
	case len(snap.Processes) == 0:
		b.WriteString(muted.Render("no processes with open connections") + "\n")
	default:
		rows := make([][]string, 0, len(snap.Processes))
		for _, p := range snap.Processes {
			rows = append(rows, []string{
				strconv.Itoa(int(p.PID)),
				p.Name,
				strconv.Itoa(len(p.Connections)),
				dashboard.FormatRate(p.Download),
				dashboard.FormatRate(p.Upload),
			})
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "PID", Width: 8},
			{Title: "Process", Width: 20},
			{Title: "Conns", Width: 6},
			{Title: "Down", Width: 12},
			{Title: "Up", Width: 12},
		}, rows) + "\n")
		b.WriteString(muted.Render(fmt.Sprintf("%s total, down %s up %s",
			util.Count(snap.ProcessCount, "process", "processes"), dashboard.FormatRate(snap.ProcessDownload), dashboard.FormatRate(snap.ProcessUpload))) + "\n")
	}

	if adv := engine.Advisories(); len(adv) > 0 {
		b.WriteString("\n")
		warn := lipgloss.NewStyle().Foreground(ui.ColorWarning)
		for _, a := range adv {
			b.WriteString(warn.Render("! "+a) + "\n")
		}
	}
	return b.String()
}

func gpuLine(snap monitor.Snapshot, sparkline string) string {
	g := snap.System.GPU
	if g == nil {
		if flag := snap.Capabilities[monitor.CapGPU]; !flag.Available {
			return "unavailable: " + flag.Reason
		}
		return "no data yet"
	}
	line := fmt.Sprintf("%s %5.1f%%", g.Name, g.Percent)
	if g.MemoryTotal > 0 {
		line += fmt.Sprintf("  vram %s / %s", humanize.IBytes(uint64(g.MemoryUsed)), humanize.IBytes(uint64(g.MemoryTotal)))
	}
	if g.Temperature > 0 {
		line += fmt.Sprintf("  %d°C", g.Temperature)
	}
	if g.PowerWatts > 0 {
		line += fmt.Sprintf("  %dW", g.PowerWatts)
	}
	return line + "  " + sparkline
}
