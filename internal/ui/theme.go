// Package ui holds the lipgloss styles of the now-playing card.
package ui

import "github.com/charmbracelet/lipgloss"

// Theme styles each part of the card.
type Theme struct {
	Name   string
	Track  lipgloss.Style
	Artist lipgloss.Style
	Meta   lipgloss.Style // album and year
	Dim    lipgloss.Style
	Badge  lipgloss.Style // stale / mock / offline markers
	Error  lipgloss.Style
	Border lipgloss.Style
}

// themeRegistry maps theme names to constructors.
var themeRegistry = map[string]func() Theme{
	"rainbow": Rainbow,
	"mono":    Monochrome,
	"green":   GreenTerminal,
	"nocolor": NoColor,
}

// ThemeNames returns the list of available theme names.
func ThemeNames() []string {
	return []string{"rainbow", "mono", "green", "nocolor"}
}

// GetTheme returns a theme by name. Returns Rainbow if name not found.
func GetTheme(name string, noColor bool) Theme {
	// NO_COLOR environment variable overrides theme selection
	if noColor {
		return NoColor()
	}
	if fn, ok := themeRegistry[name]; ok {
		return fn()
	}
	return Rainbow()
}

// ValidTheme returns true if the theme name is valid.
func ValidTheme(name string) bool {
	_, ok := themeRegistry[name]
	return ok
}

// Rainbow is the default colorful theme.
func Rainbow() Theme {
	return Theme{
		Name:   "rainbow",
		Track:  lipgloss.NewStyle().Foreground(lipgloss.Color("#8EEBFF")).Bold(true),
		Artist: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6FF7")),
		Meta:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E6FA")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6F93")),
		Badge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166")).Bold(true),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7C7CFF")).Padding(0, 1),
	}
}

// Monochrome is a grayscale theme using white, gray, and dark gray.
func Monochrome() Theme {
	return Theme{
		Name:   "mono",
		Track:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		Artist: lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		Meta:   lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		Badge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Underline(true),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Underline(true),
		Border: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#888888")).Padding(0, 1),
	}
}

// GreenTerminal is a classic green-on-black terminal theme.
func GreenTerminal() Theme {
	brightGreen := lipgloss.Color("#00FF00")
	mediumGreen := lipgloss.Color("#00CC00")
	darkGreen := lipgloss.Color("#008800")
	dimGreen := lipgloss.Color("#005500")

	return Theme{
		Name:   "green",
		Track:  lipgloss.NewStyle().Foreground(brightGreen).Bold(true),
		Artist: lipgloss.NewStyle().Foreground(mediumGreen),
		Meta:   lipgloss.NewStyle().Foreground(darkGreen),
		Dim:    lipgloss.NewStyle().Foreground(dimGreen),
		Badge:  lipgloss.NewStyle().Foreground(brightGreen).Reverse(true),
		Error:  lipgloss.NewStyle().Foreground(brightGreen).Bold(true).Reverse(true),
		Border: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(darkGreen).Padding(0, 1),
	}
}

// NoColor is a high-contrast theme for NO_COLOR environments.
// Uses only bold, underline, and reverse instead of colors.
func NoColor() Theme {
	reset := lipgloss.NewStyle()
	return Theme{
		Name:   "nocolor",
		Track:  reset.Bold(true),
		Artist: reset,
		Meta:   reset,
		Dim:    reset,
		Badge:  reset.Reverse(true),
		Error:  reset.Bold(true),
		Border: reset.Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
}

// Glyphs are the decorative characters of the card.
type Glyphs struct {
	Note    string
	Offline string
	Album   string
}

// GetGlyphs returns emoji glyphs, or ASCII ones when noEmoji is set.
func GetGlyphs(noEmoji bool) Glyphs {
	if noEmoji {
		return Glyphs{Note: "*", Offline: "!", Album: "-"}
	}
	return Glyphs{Note: "♪", Offline: "⚠", Album: "💿"}
}
