package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 and sets one bit per dot.
const brailleBase = '\u2800'

var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps [row][col] to the bit offset of that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// Scale is the vertical range a graph is drawn against.
type Scale struct {
	Min, Max float64
}

// PercentScale is the fixed 0-100 range used for utilization series.
var PercentScale = Scale{Min: 0, Max: 100}

// AutoScale fits the range to data, starting at zero. Rates and
// temperatures use it so small values still show movement.
func AutoScale(data []float64) Scale {
	s := Scale{}
	for _, v := range data {
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
	}
	return s
}

func (s Scale) normalize(v float64) float64 {
	if s.Max > s.Min {
		n := (v - s.Min) / (s.Max - s.Min)
		if n < 0 {
			return 0
		}
		if n > 1 {
			return 1
		}
		return n
	}
	return 0
}

func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// RenderBrailleGraph renders data as a braille area graph. Each character
// holds two samples and four vertical levels per row. Data shorter than the
// graph is right-aligned so the newest sample is always at the right edge.
// Columns are colored with colorFor applied to the column's peak.
func RenderBrailleGraph(data []float64, width, height int, scale Scale, colorFor func(float64) lipgloss.Color) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	points := data
	if len(data) > targetPoints {
		points = resampleData(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	colPeak := make([]float64, width)
	offset := targetPoints - len(points)

	for i, val := range points {
		pos := i + offset
		col := pos / 2
		if col >= width {
			continue
		}
		if val > colPeak[col] {
			colPeak[col] = val
		}

		dotHeight := clampInt(int(scale.normalize(val)*float64(totalDots)), totalDots)
		// Non-zero values always show at least one dot
		if dotHeight == 0 && val > scale.Min {
			dotHeight = 1
		}
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][col] |= rune(1 << brailleDots[subRow][pos%2])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, ch := range row {
			b.WriteString(lipgloss.NewStyle().Foreground(colorFor(colPeak[col])).Render(string(ch)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// RenderMiniSparkline renders a single-row block sparkline, uncolored.
func RenderMiniSparkline(data []float64, width int, scale Scale) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	points := data
	if len(points) > width {
		points = resampleData(points, width)
	}

	var b strings.Builder
	for _, val := range points {
		idx := clampInt(int(scale.normalize(val)*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
		b.WriteRune(sparklineBlocks[idx])
	}
	return b.String()
}

// RenderColoredSparkline renders a mini sparkline colored by the latest value.
func RenderColoredSparkline(data []float64, width int, scale Scale, t Thresholds) string {
	spark := RenderMiniSparkline(data, width, scale)
	if spark == "" {
		return ""
	}
	return t.Style(data[len(data)-1]).Render(spark)
}

// resampleData shrinks data to targetSize buckets, keeping each bucket's
// maximum so short spikes stay visible.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) <= targetSize {
		return data
	}

	result := make([]float64, targetSize)
	bucketSize := float64(len(data)) / float64(targetSize)
	for i := 0; i < targetSize; i++ {
		start := int(float64(i) * bucketSize)
		end := int(float64(i+1) * bucketSize)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}

		maxVal := data[start]
		for j := start + 1; j < end; j++ {
			if data[j] > maxVal {
				maxVal = data[j]
			}
		}
		result[i] = maxVal
	}
	return result
}
