package engine

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tmacro/habitat/internal/model"
)

// Stage is a set of targets with no dependencies among each other.
type Stage struct {
	index   int
	targets []*Target
}

// NewStage returns stage index holding targets, ordered by name.
func NewStage(index int, targets []*Target) *Stage {
	sorted := slices.Clone(targets)
	slices.SortFunc(sorted, func(a, b *Target) int { return strings.Compare(a.name, b.name) })
	return &Stage{index: index, targets: sorted}
}

// Index is the stage's position in dependency order.
func (s *Stage) Index() int { return s.index }

// Targets returns the stage's targets.
func (s *Stage) Targets() []*Target { return slices.Clone(s.targets) }

// Names returns the capability names of the stage's targets.
func (s *Stage) Names() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.name
	}
	return names
}

// Pending tracks the tasks one stage submitted to a pool.
type Pending struct {
	stage   int
	pool    *errgroup.Group
	names   []string
	results []model.TargetResult
}

// Names returns the target names of the pending tasks, in submission order.
func (p *Pending) Names() []string { return slices.Clone(p.names) }

// Wait blocks until every task has finished and returns their results.
func (p *Pending) Wait() model.StageReport {
	// Tasks only ever return nil; failures are carried in p.results.
	p.pool.Wait() //nolint:errcheck
	return model.StageReport{Index: p.stage, Targets: slices.Clone(p.results)}
}

// Execute submits one task per target to pool, each running command on its
// target. Target failures are results, never task errors, so one failing
// target does not stop its siblings.
func (s *Stage) Execute(ctx context.Context, pool *errgroup.Group, command string, obs Observer) *Pending {
	p := &Pending{
		stage:   s.index,
		pool:    pool,
		names:   s.Names(),
		results: make([]model.TargetResult, len(s.targets)),
	}
	for i, target := range s.targets {
		pool.Go(func() error {
			obs.TargetStarted(s.index, target.name)
			res := target.Execute(ctx, command)
			p.results[i] = res
			obs.TargetFinished(s.index, res)
			return nil
		})
	}
	return p
}
