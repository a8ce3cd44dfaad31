package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmacro/habitat/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case StageStartMsg:
		m.current = msg.Index
		return m, nil
	case TargetStartMsg:
		res := m.results[msg.Target]
		res.Target = msg.Target
		res.Status = model.StatusRunning
		res.Timestamp = msg.Time
		m.results[msg.Target] = res
		return m, nil
	case TargetCompleteMsg:
		name := msg.Result.Target
		if name == "" {
			return m, nil
		}
		if !isDone(m.results[name].Status) {
			m.completed++
		}
		m.results[name] = msg.Result
		return m, nil
	case StageCompleteMsg:
		if failed := msg.Report.Failed(); len(failed) > 0 && m.failedStage < 0 {
			m.failedStage = msg.Report.Index
			m.failed = failed
		}
		return m, nil
	case RunDoneMsg:
		m.err = msg.Err
		m.finished = true
		if m.nonInteractive {
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
