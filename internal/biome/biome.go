// Package biome selects a set of modules, binds their capabilities to
// targets and orders the targets into stages.
package biome

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/tmacro/habitat/internal/engine"
	"github.com/tmacro/habitat/internal/graph"
	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/module"
	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// Biome is a named selection of modules and the stages built from them.
// Everything is built by New; a Biome is read-only afterwards.
type Biome struct {
	name    string
	modules []*module.Module
	log     *logger.Logger

	targets map[string]*engine.Target
	names   []string
	graph   *graph.DependencyGraph[string]
	stages  []*engine.Stage
}

// Edge is a dependency between two targets: Parent needs Child first.
type Edge struct {
	Parent string
	Child  string
}

// New builds the targets, dependency graph and stages for modules.
func New(name string, modules []*module.Module, ectx *engine.ExecutionContext, log *logger.Logger) (*Biome, error) {
	b := &Biome{
		name:    name,
		modules: slices.Clone(modules),
		log:     log.With("biome", name),
	}

	targets, err := buildTargets(modules, ectx, b.log)
	if err != nil {
		return nil, err
	}
	b.targets = targets
	b.names = lo.Keys(targets)
	slices.Sort(b.names)

	if b.graph, err = b.buildGraph(); err != nil {
		return nil, err
	}
	b.stages = b.buildStages()
	return b, nil
}

// Name returns the biome name.
func (b *Biome) Name() string { return b.name }

// Modules returns the selected modules in selection order.
func (b *Biome) Modules() []*module.Module { return slices.Clone(b.modules) }

// Targets returns the targets ordered by capability name.
func (b *Biome) Targets() []*engine.Target {
	out := make([]*engine.Target, len(b.names))
	for i, name := range b.names {
		out[i] = b.targets[name]
	}
	return out
}

// Target returns the target for a capability name.
func (b *Biome) Target(name string) (*engine.Target, bool) {
	t, ok := b.targets[name]
	return t, ok
}

// Graph returns the dependency graph over capability names.
func (b *Biome) Graph() *graph.DependencyGraph[string] { return b.graph }

// Stages returns the stages in dependency order, leaves first.
func (b *Biome) Stages() []*engine.Stage { return slices.Clone(b.stages) }

// buildTargets creates one target per provided capability. A capability
// claimed by two modules is an error whichever module comes first.
func buildTargets(modules []*module.Module, ectx *engine.ExecutionContext, log *logger.Logger) (map[string]*engine.Target, error) {
	targets := make(map[string]*engine.Target)
	for _, mod := range modules {
		for _, capability := range mod.Provides() {
			if existing, ok := targets[capability]; ok {
				return nil, haberrors.NewAmbiguousProvidesError(capability, existing.Module().Name(), mod.Name())
			}
			targets[capability] = engine.NewTarget(capability, mod, ectx)
			log.Debugf("added target %s from %s", capability, mod.Name())
		}
	}
	return targets, nil
}

// ExplicitDependencies returns the edges declared with depends_on.
func (b *Biome) ExplicitDependencies() ([]Edge, error) {
	var edges []Edge
	for _, name := range b.names {
		mod := b.targets[name].Module()
		for _, dep := range mod.DependsOn() {
			if _, ok := b.targets[dep]; !ok {
				return nil, haberrors.NewUnresolvedDependencyError(mod.Name(), dep)
			}
			edges = append(edges, Edge{Parent: name, Child: dep})
		}
	}
	return edges, nil
}

// InferredDependencies matches every target's input variables against the
// output variables of the other modules. When two modules declare the same
// output the later one in capability order wins.
func (b *Biome) InferredDependencies() ([]Edge, error) {
	producers := make(map[string]*engine.Target)
	for _, name := range b.names {
		target := b.targets[name]
		vars, err := target.Module().Variables()
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", target.Module().Name(), err)
		}
		for _, output := range vars.OutputNames() {
			if prev, ok := producers[output]; ok && prev.Module() != target.Module() {
				b.log.Debugf("output %s of %s overrides %s", output, target.Name(), prev.Name())
			}
			producers[output] = target
		}
	}

	var edges []Edge
	for _, name := range b.names {
		target := b.targets[name]
		for _, input := range target.Module().InputVariables() {
			producer, ok := producers[input]
			if !ok || producer.Module() == target.Module() {
				continue
			}
			b.log.Debugf("matched %s of %s with %s", input, name, producer.Name())
			edges = append(edges, Edge{Parent: name, Child: producer.Name()})
		}
	}
	return edges, nil
}

func (b *Biome) buildGraph() (*graph.DependencyGraph[string], error) {
	g := graph.New[string]()
	for _, name := range b.names {
		g.AddNode(name)
	}

	explicit, err := b.ExplicitDependencies()
	if err != nil {
		return nil, err
	}
	inferred, err := b.InferredDependencies()
	if err != nil {
		return nil, err
	}

	for _, edge := range append(explicit, inferred...) {
		added, err := g.AddConstraint(edge.Parent, edge.Child)
		if err != nil {
			return nil, err
		}
		if added {
			b.log.Debugf("%s depends on %s", edge.Parent, edge.Child)
		}
	}
	return g, nil
}

func (b *Biome) buildStages() []*engine.Stage {
	layers := b.graph.BuildLayers()
	stages := make([]*engine.Stage, 0, len(layers))
	for i, layer := range layers {
		targets := lo.Map(layer, func(name string, _ int) *engine.Target { return b.targets[name] })
		stage := engine.NewStage(i, targets)
		b.log.With("stage", i).Debugf("built stage with targets %v", stage.Names())
		stages = append(stages, stage)
	}
	return stages
}
