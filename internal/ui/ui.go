// Package ui holds the terminal styling for the badwave CLI.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("14"))
)

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// OK renders a success line.
func OK(s string) string {
	return okStyle.Render("✓ " + s)
}

// Warn renders a warning line.
func Warn(s string) string {
	return warnStyle.Render("! " + s)
}

// Err renders an error line.
func Err(s string) string {
	return errStyle.Render("✗ " + s)
}

// Dim renders secondary detail text.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Field renders an aligned "label: value" row.
func Field(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

// Bytes renders a byte count in human units.
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Ago renders a timestamp as a relative age.
func Ago(t *time.Time) string {
	if t == nil {
		return "never"
	}
	d := time.Since(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
