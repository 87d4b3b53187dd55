package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// SparkThresholds colors a sparkline by its most recent value. A zero
// Critical disables coloring.
type SparkThresholds struct {
	Warning  float64
	Critical float64
}

// RenderSparkline draws the most recent width values as block characters.
// Values are scaled between zero (or the minimum, if negative) and the
// maximum, so a flat idle series stays at the floor instead of mid-height.
func RenderSparkline(data []float64, width int, t SparkThresholds) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := 0.0, data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal
	for _, v := range data {
		level := 0
		if valueRange > 0 {
			level = int((v - minVal) / valueRange * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	if t.Critical <= 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().Foreground(thresholdColor(data[len(data)-1], t)).Render(sb.String())
}

func thresholdColor(v float64, t SparkThresholds) lipgloss.Color {
	switch {
	case v >= t.Critical:
		return ColorError
	case v >= t.Warning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
