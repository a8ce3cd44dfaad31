package biome

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/samber/lo"

	"github.com/tmacro/habitat/internal/config"
	"github.com/tmacro/habitat/internal/engine"
	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/module"
	"github.com/tmacro/habitat/internal/tfvars"
	haberrors "github.com/tmacro/habitat/pkg/errors"
)

const lockFileName = ".hab.lock"

// WorkspaceOptions locates the inputs of a workspace.
type WorkspaceOptions struct {
	HabFile    string
	ModulesDir string
	StateDir   string
	VarFiles   []string
	// Discoverer overrides variable discovery for every module.
	Discoverer module.Discoverer
	Logger     *logger.Logger
}

// Workspace is a habfile together with the module directories it decorates,
// the var files given on the command line and the state directory.
type Workspace struct {
	habfile    *config.HabFile
	modulesDir string
	stateDir   string
	modules    map[string]*module.Module
	varFiles   []tfvars.Source
	log        *logger.Logger
}

// LoadWorkspace parses the habfile, discovers module directories and loads
// var files. The state directory is created if missing. Relative paths are
// resolved against the current directory.
func LoadWorkspace(opts WorkspaceOptions) (*Workspace, error) {
	if err := opts.resolvePaths(); err != nil {
		return nil, err
	}

	habfile, err := config.ParseHabFile(opts.HabFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	ws := &Workspace{
		habfile:    habfile,
		modulesDir: opts.ModulesDir,
		stateDir:   opts.StateDir,
		log:        opts.Logger,
	}

	scriptDir := filepath.Dir(opts.HabFile)
	if ws.modules, err = loadModules(habfile, opts.ModulesDir, opts.StateDir, scriptDir, opts.Discoverer, opts.Logger); err != nil {
		return nil, err
	}

	for _, path := range opts.VarFiles {
		src, err := tfvars.LoadFile(path)
		if err != nil {
			return nil, err
		}
		ws.log.Debugf("loaded var file %s", path)
		ws.varFiles = append(ws.varFiles, src)
	}

	return ws, nil
}

func (o *WorkspaceOptions) resolvePaths() error {
	for _, path := range []*string{&o.HabFile, &o.ModulesDir, &o.StateDir} {
		abs, err := filepath.Abs(*path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *path, err)
		}
		*path = abs
	}

	files := make([]string, len(o.VarFiles))
	for i, path := range o.VarFiles {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		files[i] = abs
	}
	o.VarFiles = files
	return nil
}

// loadModules returns a module for every sub-directory of dir holding .tf
// files, decorated with its habfile entry if there is one.
func loadModules(habfile *config.HabFile, dir, stateDir, scriptDir string, disc module.Discoverer, log *logger.Logger) (map[string]*module.Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read modules dir: %w", err)
	}

	settings := config.ModuleMap(habfile.Modules)
	scripts := config.ScriptMap(habfile.Scripts)
	modules := make(map[string]*module.Module)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		matches, err := filepath.Glob(filepath.Join(path, "*.tf"))
		if err != nil || len(matches) == 0 {
			continue
		}

		name := entry.Name()
		opts := module.Options{Discoverer: disc}
		if cfg, ok := settings[name]; ok {
			shouldDestroy := cfg.ShouldDestroy
			opts.Provides = cfg.Provides
			opts.DependsOn = cfg.DependsOn
			opts.ShouldDestroy = &shouldDestroy
			if opts.Before, err = buildHooks(name, cfg.Before, scripts, scriptDir); err != nil {
				return nil, err
			}
			if opts.After, err = buildHooks(name, cfg.After, scripts, scriptDir); err != nil {
				return nil, err
			}
		}

		log.WithFields(map[string]any{
			"module":     name,
			"depends_on": opts.DependsOn,
			"provides":   opts.Provides,
		}).Debug("found module")
		modules[name] = module.New(name, path, stateDir, opts)
	}
	return modules, nil
}

func buildHooks(moduleName string, specs []config.HookSpec, scripts map[string]config.Script, scriptDir string) ([]module.Hook, error) {
	hooks := make([]module.Hook, 0, len(specs))
	for _, spec := range specs {
		script, ok := scripts[spec.Name]
		if !ok {
			return nil, haberrors.NewInvalidModuleError(moduleName)
		}
		path := script.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(scriptDir, path)
		}
		hooks = append(hooks, module.NewHook(module.Script{Name: script.Name, Path: path}, spec.Args))
	}
	return hooks, nil
}

// HabFile returns the parsed habfile.
func (w *Workspace) HabFile() *config.HabFile { return w.habfile }

// StateDir returns the directory holding state and plan files.
func (w *Workspace) StateDir() string { return w.stateDir }

// ModuleNames returns the discovered module names, sorted.
func (w *Workspace) ModuleNames() []string {
	names := lo.Keys(w.modules)
	slices.Sort(names)
	return names
}

// Module returns a discovered module by name.
func (w *Workspace) Module(name string) (*module.Module, bool) {
	m, ok := w.modules[name]
	return m, ok
}

// VarFiles returns the sources loaded from var files, in command line order.
func (w *Workspace) VarFiles() []tfvars.Source { return slices.Clone(w.varFiles) }

// Biome selects the modules of the named biome and builds its stages. The
// resolver in ectx receives the var files followed by one output source per
// workspace module.
func (w *Workspace) Biome(name string, ectx *engine.ExecutionContext) (*Biome, error) {
	entry, ok := w.habfile.FindBiome(name)
	if !ok {
		return nil, haberrors.NewInvalidBiomeError(name)
	}

	selected := make([]*module.Module, 0, len(entry.Modules))
	for _, modName := range entry.Modules {
		mod, ok := w.modules[modName]
		if !ok {
			return nil, haberrors.NewInvalidModuleError(modName)
		}
		w.log.Debugf("selected module %s", modName)
		selected = append(selected, mod)
	}

	b, err := New(name, selected, ectx, w.log)
	if err != nil {
		return nil, err
	}

	if ectx != nil && ectx.Vars != nil {
		if err := ectx.Vars.Register(w.sources(b, ectx)...); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (w *Workspace) sources(b *Biome, ectx *engine.ExecutionContext) []tfvars.Source {
	owners := make(map[*module.Module]*engine.Target)
	for _, t := range b.Targets() {
		if _, ok := owners[t.Module()]; !ok {
			owners[t.Module()] = t
		}
	}

	sources := w.VarFiles()
	for _, name := range w.ModuleNames() {
		mod := w.modules[name]
		if _, err := mod.Variables(); err != nil {
			w.log.With("module", name).Warnf("outputs of %s are unavailable: %v", name, err)
		}
		target, ok := owners[mod]
		if !ok {
			target = engine.NewTarget(name, mod, ectx)
		}
		sources = append(sources, target.OutputSource())
	}
	return sources
}

// Habitat returns the biome names of a habitat in declaration order.
func (w *Workspace) Habitat(name string) ([]string, error) {
	habitat, ok := w.habfile.FindHabitat(name)
	if !ok {
		return nil, fmt.Errorf("%s is not a valid habitat", name)
	}
	return slices.Clone(habitat.Biomes), nil
}

// Lock takes an exclusive lock on the state directory, retrying until ctx
// ends. The returned function releases it.
func (w *Workspace) Lock(ctx context.Context) (func() error, error) {
	lock := flock.New(filepath.Join(w.stateDir, lockFileName))
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock state dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state dir %s is locked by another run", w.stateDir)
	}
	return lock.Unlock, nil
}
