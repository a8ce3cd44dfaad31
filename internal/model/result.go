package model

import (
	"slices"
	"time"
)

const (
	// StatusPending indicates a target has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a target is actively executing.
	StatusRunning = "running"
	// StatusSuccess marks a successful command.
	StatusSuccess = "success"
	// StatusSkipped indicates the command had nothing to do.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure during execution.
	StatusFailed = "failed"
)

// CommandResult is the memoized outcome of one external invocation.
type CommandResult struct {
	Command    string
	Invocation string
	ExitCode   int
	Stdout     string
	Stderr     string
	// Err is set when the command could not be run at all.
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Output returns stderr if present, otherwise stdout.
func (r CommandResult) Output() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// Success reports whether the command ran and exited zero, or was skipped.
func (r CommandResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// TargetResult captures the outcome of running a command on a single target,
// including every prerequisite and hook it triggered.
type TargetResult struct {
	Target    string
	Module    string
	Command   string
	Status    string
	Steps     []CommandResult
	Duration  time.Duration
	Timestamp time.Time
}

// Success reports whether the target finished without failure.
func (r TargetResult) Success() bool {
	return r.Status == StatusSuccess || r.Status == StatusSkipped
}

// Failure returns the step that failed, if any.
func (r TargetResult) Failure() (CommandResult, bool) {
	for _, step := range r.Steps {
		if !step.Success() {
			return step, true
		}
	}
	return CommandResult{}, false
}

// StageReport holds the results of one stage, in target name order.
type StageReport struct {
	Index   int
	Targets []TargetResult
}

// Failed returns the names of the targets that failed, sorted.
func (s StageReport) Failed() []string {
	var names []string
	for _, res := range s.Targets {
		if !res.Success() {
			names = append(names, res.Target)
		}
	}
	slices.Sort(names)
	return names
}

// Success reports whether every target of the stage succeeded.
func (s StageReport) Success() bool {
	return len(s.Failed()) == 0
}

// RunReport summarises a runner invocation. Stages that were never started
// are absent.
type RunReport struct {
	Command  string
	Stages   []StageReport
	Duration time.Duration
}

// Success reports whether every executed stage succeeded.
func (r RunReport) Success() bool {
	_, ok := r.FailedStage()
	return !ok
}

// FailedStage returns the first stage with a failing target.
func (r RunReport) FailedStage() (StageReport, bool) {
	for _, stage := range r.Stages {
		if !stage.Success() {
			return stage, true
		}
	}
	return StageReport{}, false
}

// Results flattens the target results of all executed stages.
func (r RunReport) Results() []TargetResult {
	var out []TargetResult
	for _, stage := range r.Stages {
		out = append(out, stage.Targets...)
	}
	return out
}
