package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Failure is a title that could not be processed and why.
type Failure struct {
	Title  string
	Reason string
}

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("161"))

	reasonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// RenderSummary formats the end-of-run report listing every failed title.
func RenderSummary(succeeded int, failures []Failure) string {
	var b strings.Builder
	b.WriteString(summaryTitleStyle.Render("Cover fetch summary"))
	b.WriteString("\n")
	b.WriteString(successStyle.Render(fmt.Sprintf("Succeeded: %d", succeeded)))
	b.WriteString("\n")
	b.WriteString(failureStyle.Render(fmt.Sprintf("Failed: %d", len(failures))))
	for _, f := range failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Title)
		if f.Reason != "" {
			b.WriteString(" ")
			b.WriteString(reasonStyle.Render("(" + f.Reason + ")"))
		}
	}
	return b.String()
}
