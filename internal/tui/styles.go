package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/docvoice/docvoice/internal/recorder"
)

var bannerArt = []string{
	"██████╗  ██████╗  ██████╗██╗   ██╗ ██████╗ ██╗ ██████╗███████╗",
	"██╔══██╗██╔═══██╗██╔════╝██║   ██║██╔═══██╗██║██╔════╝██╔════╝",
	"██║  ██║██║   ██║██║     ██║   ██║██║   ██║██║██║     █████╗  ",
	"██║  ██║██║   ██║██║     ╚██╗ ██╔╝██║   ██║██║██║     ██╔══╝  ",
	"██████╔╝╚██████╔╝╚██████╗ ╚████╔╝ ╚██████╔╝██║╚██████╗███████╗",
	"╚═════╝  ╚═════╝  ╚═════╝  ╚═══╝   ╚═════╝ ╚═╝ ╚═════╝╚══════╝",
}

// Styles contains all lipgloss styles for the voice UI.
type Styles struct {
	Banner    lipgloss.Style
	Tips      lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Info      lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Recording lipgloss.Style
	Separator lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Info:      lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Recording: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// RenderBanner returns the ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, row := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(row))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

var welcomeTips = []string{
	"Tips for getting started:",
	"  • Enter starts recording; Enter again stops and sends",
	"  • Answers are grounded in your uploaded documents",
	"  • PgUp/PgDn scroll the conversation",
	"  • q or Ctrl+C exits",
}

// RenderWelcomeTips returns styled getting-started tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// statusStyle maps a recorder status level to its display style.
func (s Styles) statusStyle(level recorder.StatusLevel) lipgloss.Style {
	switch level {
	case recorder.StatusSuccess:
		return s.Success
	case recorder.StatusWarning:
		return s.Warning
	case recorder.StatusError:
		return s.Error
	default:
		return s.Info
	}
}
