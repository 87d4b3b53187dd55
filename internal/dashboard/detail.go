package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var detailContainerStyle = lipgloss.NewStyle().Padding(1, 2)

// renderProcessView renders the selected process and its open connections.
func (m Model) renderProcessView() string {
	p, ok := m.SelectedProcess()
	if !ok {
		return LabelStyle.Render("No process selected")
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(p.Name)
	b.WriteString(fmt.Sprintf("%s  %s\n\n", title, MutedStyle.Render(fmt.Sprintf("pid %d", p.PID))))

	rates := []string{
		LabelStyle.Render("down ") + ValueStyle.Render(FormatRate(p.Download)),
		LabelStyle.Render("up ") + ValueStyle.Render(FormatRate(p.Upload)),
		LabelStyle.Render("total ") + ValueStyle.Render(FormatRate(p.Total())),
	}
	b.WriteString(renderSection("Throughput", "", []string{strings.Join(rates, "   ")}, width))
	b.WriteString("\n")

	// Prefer the live table; the record's copy may be a tick old
	conns := m.engine.Correlator().ConnectionDetails(p.PID)
	if conns == nil {
		conns = p.Connections
	}

	var lines []string
	for _, c := range conns {
		lines = append(lines, fmt.Sprintf("%-5s %-28s %-28s %s",
			c.Transport,
			truncate(fmt.Sprintf("%s:%d", c.LocalAddr, c.LocalPort), 28),
			truncate(fmt.Sprintf("%s:%d", c.RemoteAddr, c.RemotePort), 28),
			MutedStyle.Render(c.Status)))
	}
	if len(lines) == 0 {
		lines = append(lines, MutedStyle.Render("no open connections"))
	}
	b.WriteString(renderSection("Connections", fmt.Sprintf("%d", len(conns)), lines, width))
	b.WriteString("\n\n")
	b.WriteString(FooterStyle.Render("esc back | q quit"))

	return detailContainerStyle.Render(b.String())
}
