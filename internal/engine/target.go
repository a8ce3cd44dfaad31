package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/model"
	"github.com/tmacro/habitat/internal/module"
	"github.com/tmacro/habitat/internal/terraform"
	"github.com/tmacro/habitat/internal/tfvars"
	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// Target binds one capability name to the module that provides it and
// exposes the lifecycle commands for it.
//
// Every external invocation is memoized by its formatted command line, so a
// command shared as a prerequisite by several requests runs once per Target.
type Target struct {
	id     uuid.UUID
	name   string
	module *module.Module
	ectx   *ExecutionContext
	log    *logger.Logger

	mu    sync.Mutex
	cache map[string]*memo

	sourceOnce sync.Once
	source     *tfvars.OutputSource
}

type memo struct {
	once   sync.Once
	result model.CommandResult
}

// NewTarget creates the target for capability name backed by mod.
func NewTarget(name string, mod *module.Module, ectx *ExecutionContext) *Target {
	if ectx == nil {
		ectx = &ExecutionContext{}
	}
	return &Target{
		id:     uuid.New(),
		name:   name,
		module: mod,
		ectx:   ectx,
		log:    ectx.Logger.WithFields(map[string]any{"target": name, "module": mod.Name()}),
		cache:  make(map[string]*memo),
	}
}

// ID returns the target's synthetic identifier.
func (t *Target) ID() uuid.UUID { return t.id }

// Name returns the capability name.
func (t *Target) Name() string { return t.name }

// Module returns the module backing the target.
func (t *Target) Module() *module.Module { return t.module }

func (t *Target) String() string { return t.name }

// Execute runs command after its prerequisites, then its finishers if it
// succeeded. The first failing step ends the sequence.
func (t *Target) Execute(ctx context.Context, command string) model.TargetResult {
	res := t.newResult(command)
	if err := ValidateCommand(command); err != nil {
		res.Steps = append(res.Steps, model.CommandResult{Command: command, Err: err})
		return t.finish(res, model.StatusFailed)
	}

	for _, pre := range prerequisites[command] {
		steps, ok := t.step(ctx, pre)
		res.Steps = append(res.Steps, steps...)
		if !ok {
			return t.finish(res, model.StatusFailed)
		}
	}

	steps, ok := t.step(ctx, command)
	res.Steps = append(res.Steps, steps...)
	if !ok {
		return t.finish(res, model.StatusFailed)
	}
	status := model.StatusSuccess
	if len(steps) == 1 && steps[0].Skipped {
		status = model.StatusSkipped
	}

	for _, fin := range finishers[command] {
		steps, ok := t.step(ctx, fin)
		res.Steps = append(res.Steps, steps...)
		if !ok {
			return t.finish(res, model.StatusFailed)
		}
	}

	return t.finish(res, status)
}

// Run executes command on its own, without prerequisites or finishers.
func (t *Target) Run(ctx context.Context, command string) model.TargetResult {
	res := t.newResult(command)
	if err := ValidateCommand(command); err != nil {
		res.Steps = append(res.Steps, model.CommandResult{Command: command, Err: err})
		return t.finish(res, model.StatusFailed)
	}

	steps, ok := t.step(ctx, command)
	res.Steps = steps
	switch {
	case !ok:
		return t.finish(res, model.StatusFailed)
	case len(steps) == 1 && steps[0].Skipped:
		return t.finish(res, model.StatusSkipped)
	default:
		return t.finish(res, model.StatusSuccess)
	}
}

// Outputs returns the JSON document printed by terraform output. The call
// never plans or applies the module.
func (t *Target) Outputs(ctx context.Context) ([]byte, error) {
	res := t.command(ctx, terraform.CommandOutput)
	if res.Err != nil {
		return nil, res.Err
	}
	if !res.Success() {
		return nil, haberrors.NewExecutionError(t.name, terraform.CommandOutput,
			fmt.Errorf("exit status %d: %s", res.ExitCode, res.Output()))
	}
	return []byte(res.Stdout), nil
}

// OutputSource returns the variable source backed by this target's outputs.
func (t *Target) OutputSource() *tfvars.OutputSource {
	t.sourceOnce.Do(func() {
		vars, _ := t.module.Variables()
		var sensitive []string
		for _, out := range vars.Outputs {
			if out.Sensitive {
				sensitive = append(sensitive, out.Name)
			}
		}
		t.source = tfvars.NewOutputSource(t.module.Name(), vars.OutputNames(), sensitive, t.Outputs)
	})
	return t.source
}

func (t *Target) newResult(command string) model.TargetResult {
	return model.TargetResult{
		Target:    t.name,
		Module:    t.module.Name(),
		Command:   command,
		Status:    model.StatusRunning,
		Timestamp: time.Now(),
	}
}

func (t *Target) finish(res model.TargetResult, status string) model.TargetResult {
	res.Status = status
	res.Duration = time.Since(res.Timestamp)
	if status == model.StatusFailed {
		if step, ok := res.Failure(); ok {
			t.log.With("step", step.Command).Warnf("%s failed for %s", res.Command, t.name)
		}
	}
	return res
}

// step runs one entry of a command sequence: a terraform command or a hook
// phase.
func (t *Target) step(ctx context.Context, name string) ([]model.CommandResult, bool) {
	switch name {
	case phaseBefore:
		return t.runHooks(ctx, phaseBefore, t.module.Before())
	case phaseAfter:
		return t.runHooks(ctx, phaseAfter, t.module.After())
	}
	res := t.command(ctx, name)
	return []model.CommandResult{res}, res.Success()
}

func (t *Target) command(ctx context.Context, command string) model.CommandResult {
	mod := t.module
	cli := t.ectx.Terraform

	switch command {
	case terraform.CommandInit:
		return t.invoke(ctx, cli.Init(terraform.InitOptions{}), "")
	case terraform.CommandValidate:
		return t.invoke(ctx, cli.Validate(terraform.ValidateOptions{}), "")
	case terraform.CommandPlan:
		return t.withVarFile(ctx, command, func(varFile string) terraform.Invocation {
			return cli.Plan(terraform.PlanOptions{State: mod.StateFile(), Out: mod.PlanFile(), VarFile: varFile})
		})
	case terraform.CommandApply:
		return t.invoke(ctx, cli.Apply(terraform.ApplyOptions{PlanFile: mod.PlanFile(), State: mod.StateFile()}), "")
	case terraform.CommandOutput:
		return t.invoke(ctx, cli.Output(terraform.OutputOptions{State: mod.StateFile(), JSON: true}), "")
	case terraform.CommandDestroy:
		if !mod.ShouldDestroy() {
			t.log.Debugf("%s is kept on destroy", mod.Name())
			return model.CommandResult{Command: command, Skipped: true}
		}
		return t.withVarFile(ctx, command, func(varFile string) terraform.Invocation {
			return cli.Destroy(terraform.DestroyOptions{State: mod.StateFile(), VarFile: varFile, AutoApprove: true})
		})
	case terraform.CommandClean:
		return t.invoke(ctx, terraform.Clean(mod.StateFile(), mod.PlanFile()), "")
	case terraform.CommandFClean:
		return t.invoke(ctx, terraform.FullClean(mod.DataDir(), mod.BackupFile()), "")
	}
	return model.CommandResult{Command: command, Err: fmt.Errorf("unknown command %q", command)}
}

// withVarFile hands the module's resolved input variables to build as a
// temporary var file. The memo key uses the file digest, not its random path.
func (t *Target) withVarFile(ctx context.Context, command string, build func(varFile string) terraform.Invocation) model.CommandResult {
	if t.ectx.Vars == nil {
		return t.invoke(ctx, build(""), "")
	}

	var res model.CommandResult
	err := tfvars.WithTempVarFile(ctx, t.ectx.Vars, t.ectx.TempDir, t.module.InputVariables(), func(vf *tfvars.TempVarFile) error {
		key := build("sha256:" + vf.Digest()).String()
		res = t.invoke(ctx, build(vf.Path()), key)
		return nil
	})
	if err != nil {
		return model.CommandResult{Command: command, Err: haberrors.NewExecutionError(t.name, command, err)}
	}
	return res
}

func (t *Target) runHooks(ctx context.Context, phase string, hooks []module.Hook) ([]model.CommandResult, bool) {
	results := make([]model.CommandResult, 0, len(hooks))
	for _, hook := range hooks {
		res := t.runHook(ctx, phase, hook)
		results = append(results, res)
		if !res.Success() {
			return results, false
		}
	}
	return results, true
}

func (t *Target) runHook(ctx context.Context, phase string, hook module.Hook) model.CommandResult {
	values := map[string]string{}
	if fields := hook.Fields(); len(fields) > 0 && t.ectx.Vars != nil {
		collected, err := t.ectx.Vars.Collect(ctx, fields...)
		if err == nil {
			values, err = collected.Strings()
		}
		if err != nil {
			return model.CommandResult{Command: phase, Err: haberrors.NewExecutionError(t.name, phase, err)}
		}
	}

	argv, err := hook.Render(values)
	if err != nil {
		return model.CommandResult{Command: phase, Err: haberrors.NewExecutionError(t.name, phase, err)}
	}
	inv := terraform.Invocation{Command: phase, Args: argv}
	return t.invoke(ctx, inv, phase+": "+inv.String())
}

// invoke returns the memoized result for key, running inv the first time the
// key is seen. An empty key means the invocation's own command line.
func (t *Target) invoke(ctx context.Context, inv terraform.Invocation, key string) model.CommandResult {
	if key == "" {
		key = inv.String()
	}

	t.mu.Lock()
	entry, ok := t.cache[key]
	if !ok {
		entry = &memo{}
		t.cache[key] = entry
	}
	t.mu.Unlock()

	entry.once.Do(func() { entry.result = t.execute(ctx, inv) })
	return entry.result
}

func (t *Target) execute(ctx context.Context, inv terraform.Invocation) model.CommandResult {
	res := model.CommandResult{Command: inv.Command, Invocation: inv.String()}
	if t.ectx.Exec == nil {
		res.Err = haberrors.NewExecutionError(t.name, inv.Command, fmt.Errorf("no executor configured"))
		return res
	}

	t.log.Debugf("running %s", res.Invocation)
	start := time.Now()
	out, err := t.ectx.Exec.Run(ctx, inv.Args, t.module.Path())
	res.Duration = time.Since(start)
	res.ExitCode = out.ExitCode
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	if err != nil {
		res.Err = haberrors.NewExecutionError(t.name, inv.Command, err)
		t.log.Error(err, "command could not be started")
		return res
	}
	t.log.With("exit_code", res.ExitCode).Debugf("%s finished", inv.Command)
	return res
}
