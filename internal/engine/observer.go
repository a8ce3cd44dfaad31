package engine

import "github.com/tmacro/habitat/internal/model"

// Observer receives progress notifications from a Runner. Calls for targets
// of one stage may arrive concurrently.
type Observer interface {
	StageStarted(index int, targets []string)
	TargetStarted(stage int, target string)
	TargetFinished(stage int, result model.TargetResult)
	StageFinished(report model.StageReport)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StageStarted(int, []string) {}

func (NopObserver) TargetStarted(int, string) {}

func (NopObserver) TargetFinished(int, model.TargetResult) {}

func (NopObserver) StageFinished(model.StageReport) {}
