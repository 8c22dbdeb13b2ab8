package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Box drawing characters
const (
	TopLeft     = "╭"
	TopRight    = "╮"
	BottomLeft  = "╰"
	BottomRight = "╯"
	Horizontal  = "─"
	Vertical    = "│"
	LeftT       = "├"
	RightT      = "┤"
	TopT        = "┬"
	BottomT     = "┴"
	Cross       = "┼"
)

// Color palette
const (
	ColorBorder   = "240"
	ColorHeader   = "252"
	ColorID       = "214"
	ColorName     = "81"
	ColorText     = "252"
	ColorSuccess  = "82"
	ColorRedirect = "45"
	ColorClient   = "214"
	ColorServer   = "196"
	ColorMuted    = "240"
	ColorHint     = "245"
)

// Shared styles
var (
	BorderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder))
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorHeader))
	IDStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorID))
	NameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorName))
	TextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorText))
	SuccessStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	RedirectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRedirect))
	ClientStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorClient))
	ServerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorServer))
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	HintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHint))
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorServer))
)

// StatusStyle colors a response status by class
func StatusStyle(status int) lipgloss.Style {
	switch {
	case status >= 500:
		return ServerStyle
	case status >= 400:
		return ClientStyle
	case status >= 300:
		return RedirectStyle
	case status >= 200:
		return SuccessStyle
	default:
		return MutedStyle
	}
}

// SourceStyle renders text in a source's display color
func SourceStyle(color string) lipgloss.Style {
	if color == "" {
		return NameStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// padRight pads a string to the specified display width using runewidth
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "...")
	}
	return s + strings.Repeat(" ", width-sw)
}

func formatOptional(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
