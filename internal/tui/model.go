package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmacro/habitat/internal/model"
)

// StageStartMsg indicates a stage has started.
type StageStartMsg struct {
	Index   int
	Targets []string
}

// TargetStartMsg indicates a target has started executing.
type TargetStartMsg struct {
	Stage  int
	Target string
	Time   time.Time
}

// TargetCompleteMsg reports that a target has finished.
type TargetCompleteMsg struct {
	Stage  int
	Result model.TargetResult
}

// StageCompleteMsg reports the outcome of a whole stage.
type StageCompleteMsg struct {
	Report model.StageReport
}

// RunDoneMsg ends the run. Err is the runner's error, if any.
type RunDoneMsg struct {
	Err error
}

// Model contains the Bubbletea state for hab's progress view.
type Model struct {
	biome          string
	command        string
	stages         [][]string
	results        map[string]model.TargetResult
	spinner        spinner.Model
	total          int
	completed      int
	current        int
	failedStage    int
	failed         []string
	err            error
	finished       bool
	cancelled      bool
	nonInteractive bool
	onCancel       func()
}

// NewModel constructs the view for running command on the given stages.
func NewModel(biome, command string, stages [][]string, nonInteractive bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle

	m := Model{
		biome:          biome,
		command:        command,
		results:        make(map[string]model.TargetResult),
		spinner:        s,
		current:        -1,
		failedStage:    -1,
		nonInteractive: nonInteractive,
	}
	for _, names := range stages {
		m.stages = append(m.stages, append([]string(nil), names...))
		m.total += len(names)
	}
	return m
}

// WithCancel sets the function called when the user interrupts the view.
func (m Model) WithCancel(fn func()) Model {
	m.onCancel = fn
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// TotalTargets returns the number of targets tracked by the model.
func (m Model) TotalTargets() int {
	return m.total
}

// CompletedTargets returns the number of finished targets.
func (m Model) CompletedTargets() int {
	return m.completed
}

// IsFinished reports whether the run has ended.
func (m Model) IsFinished() bool {
	return m.finished
}

// Result returns the latest known result of a target.
func (m Model) Result(target string) (model.TargetResult, bool) {
	res, ok := m.results[target]
	return res, ok
}

func isDone(status string) bool {
	return status == model.StatusSuccess || status == model.StatusSkipped || status == model.StatusFailed
}
