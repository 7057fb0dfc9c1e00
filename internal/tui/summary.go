package tui

import (
	"strings"
)

// StageStatus is the outcome of one stage in a finished run.
type StageStatus int

const (
	StageSkipped StageStatus = iota
	StageDone
	StageFailed
)

// StageRow is one line of the run summary.
type StageRow struct {
	Name   string
	Status StageStatus
	Detail string
}

// StageLine renders one stage result line.
func StageLine(row StageRow) string {
	detail := row.Detail
	if r := []rune(detail); len(r) > detailWidth {
		detail = string(r[:detailWidth-3]) + "..."
	}
	switch row.Status {
	case StageDone:
		return okStyle.Render("✓ "+row.Name) + mutedStyle.Render(" "+detail)
	case StageFailed:
		return failStyle.Render("✗ "+row.Name) + mutedStyle.Render(" "+detail)
	default:
		return mutedStyle.Render("- " + row.Name + " skipped")
	}
}

// RenderSummary renders the run summary panel. savedTo is the project
// folder, empty when nothing was written.
func RenderSummary(rows []StageRow, savedTo string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("EngAi run"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(StageLine(row))
		b.WriteString("\n")
	}
	if savedTo != "" {
		b.WriteString("\n")
		b.WriteString(okStyle.Render("Saved to " + savedTo))
		b.WriteString("\n")
	}
	return b.String()
}
