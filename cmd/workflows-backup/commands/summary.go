package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mickolasjae/okta-workflows-backup/internal/exporter"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	summaryCountStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	summaryPathStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

// renderSummary renders the final run summary printed after a successful export.
func renderSummary(m exporter.Manifest) string {
	var b strings.Builder

	b.WriteString(summaryTitleStyle.Render("Export complete"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s groups found, %s bundles exported\n",
		summaryCountStyle.Render(strconv.Itoa(m.GroupsCount)),
		summaryCountStyle.Render(strconv.Itoa(m.PacksExported))))
	b.WriteString(summaryPathStyle.Render(m.CSVRoot))

	return b.String()
}
