package engine

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/model"
	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// poolMargin is added to the stage count for the default pool size.
const poolMargin = 5

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// PoolSize bounds how many targets of a stage run at once. Zero means
	// the number of stages plus a small margin.
	PoolSize int
	Logger   *logger.Logger
	Observer Observer
}

// Runner executes stages in order, concurrently within a stage.
type Runner struct {
	stages   []*Stage
	poolSize int
	log      *logger.Logger
	observer Observer
}

// NewRunner returns a runner over stages, which must already be in
// dependency order.
func NewRunner(stages []*Stage, opts RunnerOptions) *Runner {
	size := opts.PoolSize
	if size <= 0 {
		size = len(stages) + poolMargin
	}
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	return &Runner{
		stages:   slices.Clone(stages),
		poolSize: size,
		log:      opts.Logger,
		observer: obs,
	}
}

// Stages returns the stages in execution order.
func (r *Runner) Stages() []*Stage { return slices.Clone(r.stages) }

// PoolSize returns the intra-stage concurrency bound.
func (r *Runner) PoolSize() int { return r.poolSize }

// Execute runs command on every stage. Each stage must fully succeed before
// the next one starts; the first stage with a failing target ends the run
// with a StageFailedError naming the failed targets.
func (r *Runner) Execute(ctx context.Context, command string) (model.RunReport, error) {
	report := model.RunReport{Command: command}
	if err := ValidateCommand(command); err != nil {
		return report, err
	}

	start := time.Now()

	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		log := r.log.With("stage", stage.Index())
		log.WithFields(map[string]any{"targets": stage.Names()}).Infof("running %s", command)
		r.observer.StageStarted(stage.Index(), stage.Names())

		var pool errgroup.Group
		pool.SetLimit(r.poolSize)
		stageReport := stage.Execute(ctx, &pool, command, r.observer).Wait()

		report.Stages = append(report.Stages, stageReport)
		r.observer.StageFinished(stageReport)

		if failed := stageReport.Failed(); len(failed) > 0 {
			err := haberrors.NewStageFailedError(stage.Index(), command, failed)
			log.Error(err, "stage failed")
			report.Duration = time.Since(start)
			return report, err
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// Reverse returns stages in the opposite order, renumbered so the first
// stage to run has index 0.
func Reverse(stages []*Stage) []*Stage {
	out := make([]*Stage, len(stages))
	for i, stage := range stages {
		j := len(stages) - 1 - i
		out[j] = &Stage{index: j, targets: stage.targets}
	}
	return out
}
