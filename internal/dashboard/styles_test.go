package dashboard

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestThresholdsColor(t *testing.T) {
	th := Thresholds{Warning: 70, Critical: 85}

	tests := []struct {
		value float64
		want  lipgloss.Color
	}{
		{0, ColorHealthy},
		{69.9, ColorHealthy},
		{70, ColorWarning},
		{84.9, ColorWarning},
		{85, ColorCritical},
		{120, ColorCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Color(tt.value), "value %v", tt.value)
	}
}

func TestThinProgressBar(t *testing.T) {
	th := Thresholds{Warning: 70, Critical: 90}

	tests := []struct {
		name    string
		percent float64
		filled  int
	}{
		{"empty", 0, 0},
		{"half", 50, 5},
		{"full", 100, 10},
		{"over", 150, 10},
		{"negative", -20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := stripANSI(ThinProgressBar(10, tt.percent, th))
			assert.Equal(t, tt.filled, strings.Count(bar, "━"))
			assert.Equal(t, 10-tt.filled, strings.Count(bar, "─"))
		})
	}

	assert.Equal(t, 1, len([]rune(stripANSI(ThinProgressBar(0, 50, th)))), "width floors at one")
}

func TestSectionWidths(t *testing.T) {
	const width = 40

	assert.Equal(t, width, lipgloss.Width(SectionHeader("CPU", "45.0%", width)))
	assert.Equal(t, width, lipgloss.Width(SectionFooter(width)))
	assert.Equal(t, width, lipgloss.Width(SectionContentLine("short", width)))
	assert.Equal(t, width, lipgloss.Width(SectionContentLine(strings.Repeat("x", 100), width)), "long content is cut")
}

func TestRenderSection(t *testing.T) {
	out := stripANSI(renderSection("GPU", "12%", []string{"line one", "line two"}, 30))
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "GPU")
	assert.Contains(t, lines[0], "12%")
	assert.Contains(t, lines[1], "line one")
	assert.True(t, strings.HasPrefix(lines[3], "╰"))
}
