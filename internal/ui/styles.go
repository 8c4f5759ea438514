package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	FaintColor = lipgloss.AdaptiveColor{Light: "#8E8E8E", Dark: "#8b8b8b"}
	FaintStyle = lipgloss.NewStyle().Foreground(FaintColor)
	OkColor    = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	OkStyle    = lipgloss.NewStyle().Foreground(OkColor)
	ErrColor   = lipgloss.AdaptiveColor{Light: "#770000", Dark: "#AA0000"}
	ErrStyle   = lipgloss.NewStyle().Foreground(ErrColor)
	WarnColor  = lipgloss.AdaptiveColor{Light: "#A67C53", Dark: "#D9A066"}
	WarnStyle  = lipgloss.NewStyle().Foreground(WarnColor)
	TitleStyle = lipgloss.NewStyle().Bold(true)
)

// RenderErrorLine formats err as a single diagnostic line.
func RenderErrorLine(err any) string {
	return ErrStyle.Bold(true).Render("error:") + " " + fmt.Sprint(err)
}

// RenderOkLine formats msg as a single success line.
func RenderOkLine(msg string) string {
	return OkStyle.Bold(true).Render("ok:") + " " + msg
}

// RenderInfoLine formats msg as a single informational line.
func RenderInfoLine(msg string) string {
	return FaintStyle.Render("info:") + " " + msg
}
