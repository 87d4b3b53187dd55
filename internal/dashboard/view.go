package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	"github.com/rileyhilliard/amdtop/internal/util"
)

const graphHeight = 3

func thresholds(tv config.ThresholdValues) Thresholds {
	return Thresholds{Warning: tv.Warning, Critical: tv.Critical}
}

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.viewMode == ViewProcess {
		return m.renderProcessView()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if !m.sampled {
		b.WriteString(m.spinner.View() + " " + LabelStyle.Render("Taking the first sample..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderBody())
	}

	if adv := m.renderAdvisories(); adv != "" {
		b.WriteString("\n")
		b.WriteString(adv)
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title bar with summary stats.
func (m Model) renderHeader() string {
	var updateText string
	switch s := m.SecondsSinceUpdate(); s {
	case 0:
		updateText = "just now"
	default:
		updateText = fmt.Sprintf("%ds ago", s)
	}

	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("amdtop")

	sys := m.snapshot.System
	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(fmt.Sprintf(" | %s | %s | sorted by %s | updated %s",
			util.Count(sys.CPUCores, "core", "cores"),
			util.Count(m.snapshot.ProcessCount, "net process", "net processes"),
			m.sortOrder, updateText))

	return HeaderStyle.Render(title + stats)
}

func (m Model) renderBody() string {
	layout := m.LayoutMode()
	width := m.width
	if width == 0 {
		width = BreakpointStandard
	}

	if layout != LayoutWide {
		sections := append(m.systemSections(width, layout), m.sensorSections(width, layout)...)
		return strings.Join(sections, "\n") + "\n"
	}

	colWidth := (width - 1) / 2
	left := strings.Join(m.systemSections(colWidth, layout), "\n")
	right := strings.Join(m.sensorSections(colWidth, layout), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n"
}

func (m Model) systemSections(width int, layout LayoutMode) []string {
	sections := []string{
		m.renderCPUSection(width, layout),
		m.renderMemorySection(width, layout),
		m.renderIOSection(width, layout),
	}
	if m.snapshot.System.GPU != nil {
		sections = append(sections, m.renderGPUSection(width, layout))
	}
	return sections
}

func (m Model) sensorSections(width int, layout LayoutMode) []string {
	return []string{
		m.renderTemperatureSection(width, layout),
		m.renderProcessSection(width),
	}
}

func (m Model) renderCPUSection(width int, layout LayoutMode) string {
	sys := m.snapshot.System
	t := thresholds(m.cfg.Thresholds.CPU)
	inner := width - 4

	var lines []string
	if layout == LayoutMinimal {
		lines = append(lines, ThinProgressBar(inner, sys.CPUPercent, t))
	} else {
		graph := RenderBrailleGraph(m.engine.History().Values(monitor.KeyCPU), inner, graphHeight, PercentScale, t.Color)
		lines = append(lines, strings.Split(graph, "\n")...)
	}

	value := t.Style(sys.CPUPercent).Render(fmt.Sprintf("%.1f%%", sys.CPUPercent))
	return renderSection("CPU", value, lines, width)
}

func (m Model) renderMemorySection(width int, layout LayoutMode) string {
	sys := m.snapshot.System
	t := thresholds(m.cfg.Thresholds.Memory)
	inner := width - 4

	usage := LabelStyle.Render(fmt.Sprintf("%s / %s",
		humanize.IBytes(sys.MemoryUsed), humanize.IBytes(sys.MemoryTotal)))
	lines := []string{usage}

	barWidth := inner
	if layout != LayoutMinimal {
		barWidth = inner / 2
	}
	bar := ThinProgressBar(barWidth, sys.MemoryPercent, t)
	if layout != LayoutMinimal {
		bar += " " + RenderColoredSparkline(m.engine.History().Values(monitor.KeyMemory), inner-barWidth-1, PercentScale, t)
	}
	lines = append(lines, bar)

	for _, p := range sys.Partitions {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			LabelStyle.Render(fmt.Sprintf("%-12s", truncate(p.Mountpoint, 12))),
			ThinProgressBar(10, p.Percent, t),
			MutedStyle.Render(fmt.Sprintf("%s / %s", humanize.IBytes(p.Used), humanize.IBytes(p.Total)))))
	}

	value := t.Style(sys.MemoryPercent).Render(fmt.Sprintf("%.1f%%", sys.MemoryPercent))
	return renderSection("Memory", value, lines, width)
}

func (m Model) renderIOSection(width int, layout LayoutMode) string {
	sys := m.snapshot.System
	history := m.engine.History()
	sparkWidth := width - 4 - 24

	row := func(label string, rate float64, key string, color lipgloss.Color) string {
		text := fmt.Sprintf("%-6s %14s", label, FormatRate(rate))
		line := LabelStyle.Render(text)
		if layout != LayoutMinimal && sparkWidth > 0 {
			values := history.Values(key)
			spark := RenderMiniSparkline(values, sparkWidth, AutoScale(values))
			line += "  " + lipgloss.NewStyle().Foreground(color).Render(spark)
		}
		return line
	}

	lines := []string{
		row("read", sys.DiskReadRate, monitor.KeyDiskRead, ColorGraph),
		row("write", sys.DiskWriteRate, monitor.KeyDiskWrite, ColorGraphAlt),
		row("down", sys.NetDownload, monitor.KeyNetDownload, ColorGraph),
		row("up", sys.NetUpload, monitor.KeyNetUpload, ColorGraphAlt),
	}
	return renderSection("Disk / Network", "", lines, width)
}

func (m Model) renderGPUSection(width int, layout LayoutMode) string {
	gpu := m.snapshot.System.GPU
	t := thresholds(m.cfg.Thresholds.GPU)
	temp := thresholds(m.cfg.Thresholds.Temperature)
	inner := width - 4

	lines := []string{ValueStyle.Render(gpu.Name)}
	if layout == LayoutMinimal {
		lines = append(lines, ThinProgressBar(inner, gpu.Percent, t))
	} else {
		graph := RenderBrailleGraph(m.engine.History().Values(monitor.KeyGPUUsage), inner, graphHeight, PercentScale, t.Color)
		lines = append(lines, strings.Split(graph, "\n")...)
	}

	var details []string
	if gpu.MemoryTotal > 0 {
		details = append(details, fmt.Sprintf("vram %s / %s",
			humanize.IBytes(uint64(gpu.MemoryUsed)), humanize.IBytes(uint64(gpu.MemoryTotal))))
	}
	if gpu.Temperature > 0 {
		details = append(details, temp.Style(float64(gpu.Temperature)).Render(fmt.Sprintf("%d°C", gpu.Temperature)))
	}
	if gpu.PowerWatts > 0 {
		details = append(details, fmt.Sprintf("%dW", gpu.PowerWatts))
	}
	if len(details) > 0 {
		lines = append(lines, LabelStyle.Render(strings.Join(details, "  ")))
	}

	value := t.Style(gpu.Percent).Render(fmt.Sprintf("%.0f%%", gpu.Percent))
	return renderSection("GPU", value, lines, width)
}

func (m Model) renderTemperatureSection(width int, layout LayoutMode) string {
	flag := m.snapshot.Capabilities[monitor.CapSensors]
	if !flag.Available {
		return renderSection("Temperatures", "", []string{MutedStyle.Render("unavailable: " + flag.Reason)}, width)
	}
	if len(m.snapshot.Temperatures) == 0 {
		return renderSection("Temperatures", "", []string{MutedStyle.Render("no matching sensors")}, width)
	}

	t := thresholds(m.cfg.Thresholds.Temperature)
	history := m.engine.History()
	sparkWidth := width - 4 - 32

	var lines []string
	for _, nt := range m.snapshot.Temperatures {
		line := LabelStyle.Render(fmt.Sprintf("%-22s", truncate(nt.Name, 22))) +
			t.Style(nt.Value).Render(fmt.Sprintf("%6.1f°C", nt.Value))
		if layout != LayoutMinimal && sparkWidth > 0 {
			values := history.Values(monitor.TemperatureKey(nt.Name))
			line += "  " + RenderColoredSparkline(values, sparkWidth, AutoScale(values), t)
		}
		lines = append(lines, line)
	}
	return renderSection("Temperatures", "", lines, width)
}

func (m Model) renderProcessSection(width int) string {
	flag := m.snapshot.Capabilities[monitor.CapNetwork]
	if !flag.Available {
		return renderSection("Network Processes", "", []string{MutedStyle.Render("unavailable: " + flag.Reason)}, width)
	}

	value := fmt.Sprintf("↓ %s ↑ %s", FormatRate(m.snapshot.ProcessDownload), FormatRate(m.snapshot.ProcessUpload))
	if len(m.processes) == 0 {
		return renderSection("Network Processes", value, []string{MutedStyle.Render("no processes with open connections")}, width)
	}
	return renderSection("Network Processes", value, strings.Split(m.table.View(), "\n"), width)
}

func (m Model) renderAdvisories() string {
	if len(m.advisories) == 0 {
		return ""
	}
	lines := make([]string, len(m.advisories))
	for i, a := range m.advisories {
		lines[i] = AdvisoryStyle.Render("! " + a)
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders the key binding hints.
func (m Model) renderFooter() string {
	return FooterStyle.Render(m.help.View(m.keys))
}

// truncate shortens s to maxLen runes, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
