package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tmacro/habitat/internal/model"
	"github.com/tmacro/habitat/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("hab • %s • %s", m.biome, m.command)))

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	for _, stage := range components.NewTargetList(m.stages, m.results).Stages() {
		heading := fmt.Sprintf("Stage %d", stage.Index)
		if stage.Index == m.current && !m.finished {
			heading += " " + m.spinner.View()
		}
		sections = append(sections, sectionStyle.Render(heading), m.renderTargets(stage.Targets))
	}

	summary := components.NewSummary(components.SummaryData{
		Command:     m.command,
		Total:       m.total,
		Completed:   m.completed,
		Finished:    m.finished,
		Cancelled:   m.cancelled,
		FailedStage: m.failedStage,
		Failed:      m.failed,
		Err:         m.errText(),
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTargets(entries []components.TargetEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		res := entry.Result
		icon := StatusIcon(res.Status)
		if res.Status == model.StatusRunning && !m.finished {
			icon = m.spinner.View()
		}
		line := fmt.Sprintf(" %s %s", icon, entry.Name)
		if res.Module != "" && res.Module != entry.Name {
			line += detailStyle.Render(" (" + res.Module + ")")
		}
		if step, failed := res.Failure(); failed && res.Status == model.StatusFailed {
			line += failureStyle.Render(": " + failureText(step))
		}
		if res.Duration > 0 {
			line += detailStyle.Render(" " + res.Duration.Truncate(10*time.Millisecond).String())
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func failureText(step model.CommandResult) string {
	if step.Err != nil {
		return step.Err.Error()
	}
	text := fmt.Sprintf("%s exited %d", step.Command, step.ExitCode)
	if out := lastLine(step.Output()); out != "" {
		text += " - " + out
	}
	return text
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func (m Model) errText() string {
	if m.err == nil || len(m.failed) > 0 {
		return ""
	}
	return m.err.Error()
}

// StatusIcon returns the glyph representing a target status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
