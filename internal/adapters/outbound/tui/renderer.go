package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iacscan/iacscan/internal/domain"
)

// ── Warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	info      = lipgloss.Color("#8B949E") // soft blue-gray
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	statusColors = map[domain.Status]lipgloss.Color{
		domain.StatusProblems:    danger,
		domain.StatusInfo:        info,
		domain.StatusPassed:      success,
		domain.StatusNoFiles:     skipColor,
		domain.StatusUnsupported: warning,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	checkStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// maxLogLines caps how much tool output is shown per check.
const maxLogLines = 8

// RenderScan formats a scan result for terminal output, most severe checks first.
func RenderScan(result *domain.ScanResult) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("iacscan")
	subtitle := dimStyle.Render(result.Archive + "  ·  " + result.UUID)
	verdictStyled := lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColor(result.Verdict)).
		Render(verdictText(result.Verdict))
	meta := dimStyle.Render(fmt.Sprintf("%s  ·  %ss", result.Time, result.ExecutionDuration))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdictStyled + "\n" + meta))
	b.WriteString("\n\n")

	if result.ProjectID != "" || result.CommitHash != "" {
		if result.ProjectID != "" {
			fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("project"), result.ProjectID)
		}
		if result.CommitHash != "" {
			fmt.Fprintf(&b, "  %s  %s\n", dimStyle.Render("commit"), shortHash(result.CommitHash))
		}
		b.WriteString("\n")
	}

	// ── Checks ──
	counts := domain.CountByStatus(result.Outcomes)
	b.WriteString("  ")
	b.WriteString(titleStyle.Render("Checks"))
	for _, s := range []domain.Status{domain.StatusProblems, domain.StatusInfo, domain.StatusPassed, domain.StatusNoFiles, domain.StatusUnsupported} {
		if n := counts[s]; n > 0 {
			b.WriteString("  ")
			b.WriteString(lipgloss.NewStyle().Foreground(statusColor(s)).Render(fmt.Sprintf("%d %s", n, strings.ToLower(string(s)))))
		}
	}
	b.WriteString("\n  " + separatorLine + "\n\n")

	if len(result.Outcomes) == 0 {
		b.WriteString("  " + dimStyle.Render("No checks were run.") + "\n")
	}
	for _, o := range domain.PrioritizedOutcomes(result.Outcomes) {
		renderOutcome(&b, o)
	}

	b.WriteString("\n")
	return b.String()
}

func renderOutcome(b *strings.Builder, o domain.NamedOutcome) {
	icon := lipgloss.NewStyle().Foreground(statusColor(o.Status)).Render("●")
	fmt.Fprintf(b, "  %s %s %s\n", icon, checkStyle.Render(padRight(o.Check, 22)), dimStyle.Render(string(o.Status)))

	if o.Files != "" && o.Files != "[]" {
		fmt.Fprintf(b, "      %s\n", fileStyle.Render(o.Files))
	}
	if o.Status != domain.StatusProblems && o.Status != domain.StatusInfo {
		return
	}
	lines := strings.Split(strings.TrimSpace(o.Log), "\n")
	if len(lines) > maxLogLines {
		lines = append(lines[:maxLogLines], fmt.Sprintf("… %d more lines", len(lines)-maxLogLines))
	}
	for _, l := range lines {
		if l == "" {
			continue
		}
		fmt.Fprintf(b, "      %s\n", faintStyle.Render(l))
	}
}

// RenderResults formats stored scan results, one per line.
func RenderResults(results []*domain.ScanResult) string {
	if len(results) == 0 {
		return "  " + dimStyle.Render("No scan results found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Scan Results") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, r := range results {
		verdict := passStyle.Render("passed  ")
		if r.Verdict == domain.StatusProblems {
			verdict = failStyle.Render("problems")
		}
		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(r.Time),
			faintStyle.Render(r.UUID),
			verdict,
			r.Archive,
		)
		if r.ProjectID != "" {
			line += "  " + dimStyle.Render(r.ProjectID)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func verdictText(s domain.Status) string {
	if s == domain.StatusProblems {
		return "Issues found"
	}
	return "No issues found"
}

func statusColor(s domain.Status) lipgloss.Color {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return fg
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
