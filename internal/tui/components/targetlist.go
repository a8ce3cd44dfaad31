package components

import (
	"github.com/tmacro/habitat/internal/model"
)

// TargetEntry is one target of a stage and its latest result.
type TargetEntry struct {
	Name   string
	Result model.TargetResult
}

// StageEntry groups the targets of one stage.
type StageEntry struct {
	Index   int
	Targets []TargetEntry
}

// TargetList lays targets out stage by stage.
type TargetList struct {
	stages []StageEntry
}

// NewTargetList builds the list from the target names of each stage. Targets
// without a result are pending.
func NewTargetList(stages [][]string, results map[string]model.TargetResult) TargetList {
	out := make([]StageEntry, 0, len(stages))
	for i, names := range stages {
		entry := StageEntry{Index: i, Targets: make([]TargetEntry, 0, len(names))}
		for _, name := range names {
			res, ok := results[name]
			if !ok {
				res = model.TargetResult{Target: name, Status: model.StatusPending}
			}
			entry.Targets = append(entry.Targets, TargetEntry{Name: name, Result: res})
		}
		out = append(out, entry)
	}
	return TargetList{stages: out}
}

// Stages returns the grouped entries.
func (l TargetList) Stages() []StageEntry {
	clone := make([]StageEntry, len(l.stages))
	copy(clone, l.stages)
	return clone
}
