package tui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorPrimary = lipgloss.Color("6")   // Teal
	ColorMuted   = lipgloss.Color("241") // Gray
	ColorSuccess = lipgloss.Color("42")  // Green
	ColorError   = lipgloss.Color("203") // Red
)

const logo = ` ███████╗███╗   ██╗ ██████╗  █████╗ ██╗
 ██╔════╝████╗  ██║██╔════╝ ██╔══██╗██║
 █████╗  ██╔██╗ ██║██║  ███╗███████║██║
 ██╔══╝  ██║╚██╗██║██║   ██║██╔══██║██║
 ███████╗██║ ╚████║╚██████╔╝██║  ██║██║
 ╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚═╝  ╚═╝╚═╝
`

var (
	logoStyle    = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	taglineStyle = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	headerStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorMuted).
			Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	failStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// detailWidth caps the stage detail shown in the summary.
const detailWidth = 72

// Banner returns the styled app banner
func Banner() string {
	return logoStyle.Render(logo) + "\n" + taglineStyle.Render(" Describe it. Five agents build it.") + "\n"
}

// EngaiTheme returns the form theme: huh's Charm theme recolored to the
// palette.
func EngaiTheme() *huh.Theme {
	t := huh.ThemeCharm()
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary).Bold(true)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorSuccess)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)
	return t
}
