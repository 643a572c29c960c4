package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/service"
)

// Catppuccin Mocha, same values as the terminal UI used.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	labelStyle = lipgloss.NewStyle().Foreground(colorOverlay1).Width(18)
	valueStyle = lipgloss.NewStyle().Foreground(colorText)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(colorPeach)
	errStyle   = lipgloss.NewStyle().Foreground(colorRed)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorOverlay1).Padding(0, 1)
)

func kv(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}

// countStyle colors a count green when zero is good, peach otherwise.
func countStyle(n int) lipgloss.Style {
	if n == 0 {
		return okStyle
	}
	return warnStyle
}

func renderRun(s service.RunSummary) string {
	lines := []string{
		titleStyle.Render("Reconciliation " + s.Period),
		kv("log", s.LogID),
		labelStyle.Render("matched") + okStyle.Render(fmt.Sprint(s.MatchedCount)),
		labelStyle.Render("unmatched orders") + countStyle(s.UnmatchedOrderCount).Render(fmt.Sprint(s.UnmatchedOrderCount)),
		labelStyle.Render("unmatched gl") + countStyle(s.UnmatchedGLCount).Render(fmt.Sprint(s.UnmatchedGLCount)),
		kv("total orders", s.TotalOrderCount),
		kv("total gl", s.TotalGLCount),
	}
	if s.FailedPairs > 0 {
		lines = append(lines, labelStyle.Render("failed pairs")+errStyle.Render(fmt.Sprint(s.FailedPairs)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderImport(kind string, res service.ImportResult) string {
	lines := []string{
		titleStyle.Render(kind + " import"),
		kv("encoding", res.Encoding),
		kv("rows", res.TotalRows),
		labelStyle.Render("imported") + okStyle.Render(fmt.Sprint(res.ImportedRows)),
		kv("skipped", res.SkippedRows),
		labelStyle.Render("errors") + countStyle(len(res.Errors)).Render(fmt.Sprint(len(res.Errors))),
	}
	if len(res.Periods) > 0 {
		lines = append(lines, kv("periods", strings.Join(res.Periods, ", ")))
	}
	out := boxStyle.Render(strings.Join(lines, "\n"))
	for _, e := range res.Errors {
		out += "\n" + errStyle.Render(e.Error())
	}
	return out
}

func renderLogs(logs []repository.ReconciliationLog) string {
	if len(logs) == 0 {
		return warnStyle.Render("no reconciliation runs")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-36s  %-7s  %-19s  %7s  %7s  %7s", "id", "period", "executed", "matched", "open fc", "open gl")))
	for _, l := range logs {
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-36s  %-7s  %-19s  %7d  %7d  %7d",
			l.ID, l.Period, l.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			l.MatchedCount, l.UnmatchedOrderCount, l.UnmatchedGLCount)))
	}
	return b.String()
}

func renderCandidates(cs []service.Candidate) string {
	if len(cs) == 0 {
		return warnStyle.Render("no candidates")
	}
	var b strings.Builder
	for i, c := range cs {
		if i > 0 {
			b.WriteString("\n")
		}
		acct := errStyle.Render("account differs")
		if c.AccountMatches {
			acct = okStyle.Render("account matches")
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s  %s",
			valueStyle.Render(c.Entry.ID),
			labelStyle.UnsetWidth().Render(fmt.Sprintf("%.2f", c.Similarity)),
			valueStyle.Render(c.Entry.AccountName),
			valueStyle.Render(c.Entry.Description),
			acct)
	}
	return b.String()
}
