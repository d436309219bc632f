// Package theme holds the terminal palette for command output.
package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lumen/internal/mastery"
)

// Palette
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Warning   = lipgloss.Color("#EAB308") // Yellow
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Money = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Card frames a single flashcard.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(0, 1)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Decay styles map review urgency to color.
var (
	DecayHealthy  = lipgloss.NewStyle().Foreground(Success)
	DecayWarning  = lipgloss.NewStyle().Foreground(Warning)
	DecayCritical = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

// DecayStyle returns the style for d.
func DecayStyle(d mastery.Decay) lipgloss.Style {
	switch d {
	case mastery.DecayHealthy:
		return DecayHealthy
	case mastery.DecayCritical:
		return DecayCritical
	default:
		return DecayWarning
	}
}

// Bar styles
var (
	BarFilled = lipgloss.NewStyle().Background(Secondary)
	BarEmpty  = lipgloss.NewStyle().Background(Border)
)
