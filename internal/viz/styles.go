package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	statusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))

	sparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	sparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	sparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func statusStyle(running bool) lipgloss.Style {
	if running {
		return statusRunning
	}
	return statusPaused
}

// deltaStyle colors a convergence increment: green when the iterate has
// settled, red while it is still moving.
func deltaStyle(delta float64) lipgloss.Style {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta < 1e-6:
		return sparkHigh
	case delta < 1e-3:
		return sparkMid
	default:
		return sparkLow
	}
}

// SparklineChart renders a one-line sparkline of values, sampled to fit
// width.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	rng := max - min
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - min) / rng
		idx := int(norm * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(sparkMid.Render(c))
		default:
			result.WriteString(sparkLow.Render(c))
		}
	}
	return result.String()
}

// Separator renders a decorative horizontal rule.
func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return helpStyle.Render(left + " ◆ " + right)
}
