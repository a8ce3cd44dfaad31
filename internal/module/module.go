// Package module models a single directory of terraform configuration and the
// hooks that run around it.
package module

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Options carries the habfile settings applied to a module directory.
type Options struct {
	Provides      []string
	DependsOn     []string
	ShouldDestroy *bool
	Before        []Hook
	After         []Hook
	Discoverer    Discoverer
}

// Module is a discovered unit of infrastructure configuration. Everything
// except the lazily discovered variable lists is fixed at construction.
type Module struct {
	name          string
	path          string
	stateFile     string
	planFile      string
	provides      []string
	dependsOn     []string
	shouldDestroy bool
	before        []Hook
	after         []Hook

	discoverer   Discoverer
	discoverOnce sync.Once
	variables    Variables
	discoverErr  error
}

// New builds a module rooted at path whose state and plan files live in stateDir.
// Provides defaults to the module name and ShouldDestroy defaults to true.
// Repeated capability names are kept once, in first-seen order.
func New(name, path, stateDir string, opts Options) *Module {
	provides := lo.Uniq(opts.Provides)
	if len(provides) == 0 {
		provides = []string{name}
	}

	shouldDestroy := true
	if opts.ShouldDestroy != nil {
		shouldDestroy = *opts.ShouldDestroy
	}

	discoverer := opts.Discoverer
	if discoverer == nil {
		discoverer = TerraformDiscoverer{}
	}

	return &Module{
		name:          name,
		path:          path,
		stateFile:     filepath.Join(stateDir, name+".tfstate"),
		planFile:      filepath.Join(stateDir, name+".plan"),
		provides:      provides,
		dependsOn:     slices.Clone(opts.DependsOn),
		shouldDestroy: shouldDestroy,
		before:        slices.Clone(opts.Before),
		after:         slices.Clone(opts.After),
		discoverer:    discoverer,
	}
}

// Name returns the module's directory name.
func (m *Module) Name() string { return m.name }

// Path returns the module's directory.
func (m *Module) Path() string { return m.path }

// StateFile returns the path of the module's terraform state.
func (m *Module) StateFile() string { return m.stateFile }

// PlanFile returns the path plan writes to and apply reads from.
func (m *Module) PlanFile() string { return m.planFile }

// ShouldDestroy reports whether destroy tears the module down or skips it.
func (m *Module) ShouldDestroy() bool { return m.shouldDestroy }

// BackupFile is the state backup terraform leaves next to the state file.
func (m *Module) BackupFile() string { return m.stateFile + ".backup" }

// DataDir is the module's .terraform working directory.
func (m *Module) DataDir() string { return filepath.Join(m.path, ".terraform") }

// Provides returns the capability names this module exposes.
func (m *Module) Provides() []string { return slices.Clone(m.provides) }

// DependsOn returns the capability names this module explicitly depends on.
func (m *Module) DependsOn() []string { return slices.Clone(m.dependsOn) }

// Before returns the hooks run ahead of apply.
func (m *Module) Before() []Hook { return slices.Clone(m.before) }

// After returns the hooks run once destroy succeeds.
func (m *Module) After() []Hook { return slices.Clone(m.after) }

// Variables discovers the module's declared inputs and outputs on first call
// and returns the cached result afterwards.
func (m *Module) Variables() (Variables, error) {
	m.discoverOnce.Do(func() {
		m.variables, m.discoverErr = m.discoverer.Discover(m.path)
	})
	return m.variables, m.discoverErr
}

// InputVariables returns the declared input variable names. Discovery failures
// yield an empty list; call Variables to observe the error.
func (m *Module) InputVariables() []string {
	vars, _ := m.Variables()
	return slices.Clone(vars.Inputs)
}

// OutputVariables returns the declared output names.
func (m *Module) OutputVariables() []string {
	vars, _ := m.Variables()
	return vars.OutputNames()
}

// IsSensitive reports whether the named output is declared sensitive.
func (m *Module) IsSensitive(output string) bool {
	vars, _ := m.Variables()
	for _, out := range vars.Outputs {
		if out.Name == output {
			return out.Sensitive
		}
	}
	return false
}

func (m *Module) String() string { return "module " + m.name }
