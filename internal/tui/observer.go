package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmacro/habitat/internal/model"
)

// Observer turns runner notifications into model messages. It either sends
// them to a running program or, without a terminal, applies them to a Model
// in place.
type Observer struct {
	program *tea.Program

	mu    sync.Mutex
	state *Model
}

// NewProgramObserver forwards notifications to p.
func NewProgramObserver(p *tea.Program) *Observer {
	return &Observer{program: p}
}

// NewStateObserver applies notifications to state.
func NewStateObserver(state *Model) *Observer {
	return &Observer{state: state}
}

// Send dispatches msg to the program or the model.
func (o *Observer) Send(msg tea.Msg) {
	if o.program != nil {
		o.program.Send(msg)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return
	}
	updated, _ := o.state.Update(msg)
	if m, ok := updated.(Model); ok {
		*o.state = m
	}
}

func (o *Observer) StageStarted(index int, targets []string) {
	o.Send(StageStartMsg{Index: index, Targets: targets})
}

func (o *Observer) TargetStarted(stage int, target string) {
	o.Send(TargetStartMsg{Stage: stage, Target: target, Time: time.Now()})
}

func (o *Observer) TargetFinished(stage int, result model.TargetResult) {
	o.Send(TargetCompleteMsg{Stage: stage, Result: result})
}

func (o *Observer) StageFinished(report model.StageReport) {
	o.Send(StageCompleteMsg{Report: report})
}
