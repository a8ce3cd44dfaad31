package engine

import (
	"fmt"
	"slices"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// Window trims stages to the run that begins with the stage holding startAt
// and ends with the stage holding stopAt, both inclusive. Either bound may
// be empty. A bound matches a target by capability or module name. Stages
// before startAt are skipped even when later stages depend on them.
func Window(stages []*Stage, startAt, stopAt string) ([]*Stage, error) {
	first, last := 0, len(stages)-1

	if startAt != "" {
		i := stageOf(stages, startAt)
		if i < 0 {
			return nil, haberrors.NewValidationError("start-at", fmt.Sprintf("no target named %q", startAt), nil)
		}
		first = i
	}
	if stopAt != "" {
		i := stageOf(stages, stopAt)
		if i < 0 {
			return nil, haberrors.NewValidationError("stop-at", fmt.Sprintf("no target named %q", stopAt), nil)
		}
		last = i
	}
	if startAt != "" && stopAt != "" && first > last {
		return nil, haberrors.NewValidationError("start-at",
			fmt.Sprintf("%q runs after %q", startAt, stopAt), nil)
	}
	return slices.Clone(stages[first : last+1]), nil
}

func stageOf(stages []*Stage, name string) int {
	for i, stage := range stages {
		for _, t := range stage.targets {
			if t.name == name || (t.module != nil && t.module.Name() == name) {
				return i
			}
		}
	}
	return -1
}
