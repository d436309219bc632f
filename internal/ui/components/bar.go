// Package components renders reusable pieces of command output.
package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumen/internal/ui/theme"
)

// Bar is a horizontal meter for mastery or health.
type Bar struct {
	Label       string
	Percent     float64 // 0..1
	ShowPercent bool
	Width       int
}

// HealthBar returns a bar for a 0-100 health value.
func HealthBar(label string, health, width int) Bar {
	return Bar{Label: label, Percent: float64(health) / 100, ShowPercent: true, Width: width}
}

// String renders the bar.
func (b Bar) String() string {
	var result string
	if b.Label != "" {
		result += theme.Body.Render(b.Label) + "  "
	}

	percentWidth := 0
	if b.ShowPercent {
		percentWidth = 6
	}
	barWidth := max(b.Width-lipgloss.Width(result)-percentWidth, 4)

	filled := min(max(int(float64(barWidth)*b.Percent), 0), barWidth)
	result += theme.BarFilled.Render(strings.Repeat(" ", filled)) +
		theme.BarEmpty.Render(strings.Repeat(" ", barWidth-filled))

	if b.ShowPercent {
		result += theme.Hint.Render(fmt.Sprintf("  %d%%", int(b.Percent*100)))
	}
	return result
}
