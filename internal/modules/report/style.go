// Package report renders analysis results as terminal tables and CSV.
package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the semantic colour set used by a Style.
type Palette struct {
	Border  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Primary lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
}

// DefaultPalette uses Charmbracelet's CharmTone colours.
var DefaultPalette = Palette{
	Border:  lipgloss.Color("#4D4C57"), // Iron
	Muted:   lipgloss.Color("#858392"), // Squid
	Text:    lipgloss.Color("#DFDBDD"), // Ash
	Primary: lipgloss.Color("#6B50FF"), // Charple
	Success: lipgloss.Color("#00FFB2"), // Julep
	Error:   lipgloss.Color("#E94090"),
	Info:    lipgloss.Color("#00CED1"),
}

// Style controls how a Renderer formats numbers and draws tables.
// It is passed explicitly; nothing in the package reads global settings.
type Style struct {
	Title       lipgloss.Style
	Header      lipgloss.Style
	Cell        lipgloss.Style
	Positive    lipgloss.Style
	Negative    lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Border
	BorderStyle lipgloss.Style

	PercentDecimals    int
	RatioDecimals      int
	BasisPointDecimals int
	ValueDecimals      int
}

// DefaultStyle returns the coloured terminal style.
func DefaultStyle() Style {
	return NewStyle(DefaultPalette)
}

// NewStyle builds a Style from a palette.
func NewStyle(p Palette) Style {
	return Style{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(p.Info),
		Header:      lipgloss.NewStyle().Bold(true).Foreground(p.Primary).Padding(0, 1),
		Cell:        lipgloss.NewStyle().Foreground(p.Text).Padding(0, 1),
		Positive:    lipgloss.NewStyle().Foreground(p.Success).Padding(0, 1),
		Negative:    lipgloss.NewStyle().Foreground(p.Error).Padding(0, 1),
		Muted:       lipgloss.NewStyle().Foreground(p.Muted),
		Border:      lipgloss.RoundedBorder(),
		BorderStyle: lipgloss.NewStyle().Foreground(p.Border),

		PercentDecimals:    2,
		RatioDecimals:      2,
		BasisPointDecimals: 1,
		ValueDecimals:      3,
	}
}

// PlainStyle returns an uncoloured ASCII style for logs and files.
func PlainStyle() Style {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return Style{
		Title:       lipgloss.NewStyle(),
		Header:      cell,
		Cell:        cell,
		Positive:    cell,
		Negative:    cell,
		Muted:       lipgloss.NewStyle(),
		Border:      lipgloss.ASCIIBorder(),
		BorderStyle: lipgloss.NewStyle(),

		PercentDecimals:    2,
		RatioDecimals:      2,
		BasisPointDecimals: 1,
		ValueDecimals:      3,
	}
}
