package diagnose

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/samzong/autopush/internal/ui"
)

func statusBadge(s Status) string {
	switch s {
	case StatusOK:
		return ui.OKStyle.Render("✅")
	case StatusWarn:
		return ui.WarnStyle.Render("⚠️ ")
	case StatusFail:
		return ui.FailStyle.Render("❌")
	default:
		return ui.MutedStyle.Render("➖")
	}
}

func styleFor(s Status) lipgloss.Style {
	switch s {
	case StatusWarn:
		return ui.WarnStyle
	case StatusFail:
		return ui.FailStyle
	case StatusSkip:
		return ui.MutedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// Render writes the check results as a styled report.
func Render(w io.Writer, report Report, width int) {
	fmt.Fprintln(w, ui.TitleStyle.Render("🔍 SSH and Git diagnostics"))
	fmt.Fprintln(w, ui.Rule(width))

	for i, res := range report.Results {
		name := fmt.Sprintf("%d. %-18s", i+1, res.Name)
		fmt.Fprintf(w, "%s %s %s\n", statusBadge(res.Status), name, styleFor(res.Status).Render(res.Detail))
		for _, line := range res.Lines {
			fmt.Fprintln(w, ui.DetailStyle.Render(line))
		}
	}

	fmt.Fprintln(w, ui.Rule(width))
	if report.Healthy() {
		fmt.Fprintln(w, ui.OKStyle.Render("✅ Diagnostics completed, no blocking problem found"))
	} else {
		fmt.Fprintln(w, ui.FailStyle.Render("❌ Problems detected, see the failing checks above"))
	}
}

// RenderRemediation writes the actions taken and any shell exports.
func RenderRemediation(w io.Writer, rep RemediationReport, width int) {
	fmt.Fprintln(w, ui.TitleStyle.Render("🔧 Automatic fixes"))
	fmt.Fprintln(w, ui.Rule(width))
	for _, a := range rep.Actions {
		fmt.Fprintf(w, "%s %-22s %s\n", statusBadge(a.Status), a.Name, styleFor(a.Status).Render(a.Detail))
	}
	if len(rep.Exports) > 0 {
		fmt.Fprintln(w, "\nRun these in your shell to use the new agent:")
		for _, line := range rep.Exports {
			fmt.Fprintln(w, ui.DetailStyle.Render(line))
		}
	}
}
