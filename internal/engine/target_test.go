package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/tmacro/habitat/internal/model"
	"github.com/tmacro/habitat/internal/module"
	"github.com/tmacro/habitat/internal/proc"
	"github.com/tmacro/habitat/internal/tfvars"
	haberrors "github.com/tmacro/habitat/pkg/errors"
)

func TestApplyRunsSharedPrerequisitesOnce(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	ectx := newContext(t, exec, tfvars.NewStaticSource("common", tfvars.Values{"region": cty.StringVal("eu")}))
	target := NewTarget("network", newModule("network", module.Variables{Inputs: []string{"region"}}, module.Options{}), ectx)

	first := target.Execute(context.Background(), "apply")
	second := target.Execute(context.Background(), "apply")

	require.True(t, first.Success())
	require.True(t, second.Success())
	assert.Equal(t, 1, exec.count("/m/network", "init"))
	assert.Equal(t, 1, exec.count("/m/network", "validate"))
	assert.Equal(t, 1, exec.count("/m/network", "plan"))
	assert.Equal(t, 1, exec.count("/m/network", "apply"))
	assert.Equal(t, []string{"init", "validate", "plan", "apply"}, exec.commands("/m/network"))

	got := target.Execute(context.Background(), "output")
	require.True(t, got.Success())
	assert.Equal(t, 1, exec.count("/m/network", "init"))
	assert.Equal(t, 1, exec.count("/m/network", "output"))
}

func TestPrerequisiteFailureShortCircuits(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{respond: func(_ string, argv []string) proc.Result {
		if commandOf(argv) == "validate" {
			return proc.Result{ExitCode: 1, Stderr: "Error: invalid"}
		}
		return proc.Result{}
	}}
	target := NewTarget("db", newModule("db", module.Variables{}, module.Options{}), newContext(t, exec))

	res := target.Execute(context.Background(), "apply")

	require.Equal(t, model.StatusFailed, res.Status)
	step, ok := res.Failure()
	require.True(t, ok)
	assert.Equal(t, "validate", step.Command)
	assert.Equal(t, "Error: invalid", step.Output())
	assert.Equal(t, []string{"init", "validate"}, exec.commands("/m/db"))

	again := target.Execute(context.Background(), "plan")
	require.False(t, again.Success())
	assert.Equal(t, 1, exec.count("/m/db", "validate"))
}

func TestPlanVarFileHoldsResolvedInputs(t *testing.T) {
	t.Parallel()

	var varFile string
	exec := &fakeExec{respond: func(_ string, argv []string) proc.Result {
		if commandOf(argv) == "plan" {
			varFile = readFile(flagValue(argv, "var-file"))
		}
		return proc.Result{}
	}}
	src := tfvars.NewStaticSource("common", tfvars.Values{"region": cty.StringVal("eu"), "other": cty.True})
	mod := newModule("vpc", module.Variables{Inputs: []string{"region", "unset"}}, module.Options{})
	ectx := newContext(t, exec, src)
	target := NewTarget("vpc", mod, ectx)

	res := target.Execute(context.Background(), "plan")
	require.True(t, res.Success())
	assert.JSONEq(t, `{"region":"eu"}`, varFile)
	assert.Equal(t, []string{"unset"}, ectx.Vars.Misses())
}

func TestOutputsResolveWithoutApplying(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{respond: func(dir string, argv []string) proc.Result {
		if dir == "/m/network" && commandOf(argv) == "output" {
			return proc.Result{Stdout: `{"vpc_id":{"sensitive":false,"type":"string","value":"vpc-1"}}`}
		}
		return proc.Result{}
	}}
	ectx := newContext(t, exec)
	producer := NewTarget("network", newModule("network", module.Variables{
		Outputs: []module.Output{{Name: "vpc_id"}},
	}, module.Options{}), ectx)
	require.NoError(t, ectx.Vars.Register(producer.OutputSource()))

	values, err := ectx.Vars.Collect(context.Background(), "vpc_id")
	require.NoError(t, err)
	assert.Equal(t, "vpc-1", values["vpc_id"].AsString())
	assert.Equal(t, []string{"output"}, exec.commands("/m/network"))
	assert.Same(t, producer.OutputSource(), producer.OutputSource())
}

func TestOutputsFailureIsReported(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{respond: func(string, []string) proc.Result {
		return proc.Result{ExitCode: 1, Stderr: "no state"}
	}}
	target := NewTarget("network", newModule("network", module.Variables{}, module.Options{}), newContext(t, exec))

	_, err := target.Outputs(context.Background())
	var execErr *haberrors.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "network", execErr.Target)
}

func TestBeforeHooksRenderResolvedValues(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	src := tfvars.NewStaticSource("common", tfvars.Values{"bastion_ip": cty.StringVal("10.0.0.1")})
	hook := module.NewHook(module.Script{Name: "wait", Path: "/bin/wait-ssh"}, []string{"--host={bastion_ip}"})
	mod := newModule("nodes", module.Variables{}, module.Options{Before: []module.Hook{hook}})
	target := NewTarget("nodes", mod, newContext(t, exec, src))

	res := target.Execute(context.Background(), "apply")
	require.True(t, res.Success())
	assert.Equal(t, []string{"init", "validate", "plan", "/bin/wait-ssh", "apply"}, exec.commands("/m/nodes"))

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []string{"/bin/wait-ssh", "--host=10.0.0.1"}, exec.calls[3].argv)
}

func TestBeforeHookMissingValueFails(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	hook := module.NewHook(module.Script{Name: "wait", Path: "/bin/wait-ssh"}, []string{"{bastion_ip}"})
	mod := newModule("nodes", module.Variables{}, module.Options{Before: []module.Hook{hook}})
	target := NewTarget("nodes", mod, newContext(t, exec))

	res := target.Execute(context.Background(), "apply")
	require.False(t, res.Success())
	step, _ := res.Failure()
	assert.Equal(t, "before", step.Command)
	assert.Contains(t, step.Err.Error(), "no value for bastion_ip")
	assert.Zero(t, exec.count("/m/nodes", "apply"))
}

func TestDestroyRunsAfterHooksInOrder(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	mod := newModule("dns", module.Variables{}, module.Options{After: []module.Hook{
		module.NewHook(module.Script{Name: "one", Path: "/bin/one"}, nil),
		module.NewHook(module.Script{Name: "two", Path: "/bin/two"}, nil),
	}})
	target := NewTarget("dns", mod, newContext(t, exec))

	res := target.Execute(context.Background(), "destroy")
	require.True(t, res.Success())
	assert.Equal(t, []string{"destroy", "/bin/one", "/bin/two"}, exec.commands("/m/dns"))
}

func TestDestroyFailureSkipsAfterHooks(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{respond: func(_ string, argv []string) proc.Result {
		if commandOf(argv) == "destroy" {
			return proc.Result{ExitCode: 1}
		}
		return proc.Result{}
	}}
	mod := newModule("dns", module.Variables{}, module.Options{After: []module.Hook{
		module.NewHook(module.Script{Name: "one", Path: "/bin/one"}, nil),
	}})
	target := NewTarget("dns", mod, newContext(t, exec))

	res := target.Execute(context.Background(), "destroy")
	require.False(t, res.Success())
	assert.Equal(t, []string{"destroy"}, exec.commands("/m/dns"))
}

func TestAfterHookFailureFailsTarget(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{respond: func(_ string, argv []string) proc.Result {
		if argv[0] == "/bin/one" {
			return proc.Result{ExitCode: 2}
		}
		return proc.Result{}
	}}
	mod := newModule("dns", module.Variables{}, module.Options{After: []module.Hook{
		module.NewHook(module.Script{Name: "one", Path: "/bin/one"}, nil),
		module.NewHook(module.Script{Name: "two", Path: "/bin/two"}, nil),
	}})
	target := NewTarget("dns", mod, newContext(t, exec))

	res := target.Execute(context.Background(), "destroy")
	require.False(t, res.Success())
	assert.Equal(t, []string{"destroy", "/bin/one"}, exec.commands("/m/dns"))
}

func TestDestroySkippedWhenKept(t *testing.T) {
	t.Parallel()

	keep := false
	exec := &fakeExec{}
	mod := newModule("state", module.Variables{}, module.Options{ShouldDestroy: &keep})
	target := NewTarget("state", mod, newContext(t, exec))

	res := target.Execute(context.Background(), "destroy")
	require.True(t, res.Success())
	assert.Equal(t, model.StatusSkipped, res.Status)
	assert.False(t, exec.ran("/m/state"))
}

func TestFullCleanRunsClean(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	target := NewTarget("net", newModule("net", module.Variables{}, module.Options{}), newContext(t, exec))

	res := target.Execute(context.Background(), "fclean")
	require.True(t, res.Success())

	exec.mu.Lock()
	defer exec.mu.Unlock()
	require.Len(t, exec.calls, 2)
	assert.Equal(t, []string{"rm", "-f", "/state/net.tfstate", "/state/net.plan"}, exec.calls[0].argv)
	assert.Equal(t, []string{"rm", "-rf", "/m/net/.terraform", "/state/net.tfstate.backup"}, exec.calls[1].argv)
}

func TestRunSkipsPrerequisites(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	target := NewTarget("net", newModule("net", module.Variables{}, module.Options{}), newContext(t, exec))

	res := target.Run(context.Background(), "apply")
	require.True(t, res.Success())
	assert.Equal(t, []string{"apply"}, exec.commands("/m/net"))
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	target := NewTarget("net", newModule("net", module.Variables{}, module.Options{}), newContext(t, exec))

	res := target.Execute(context.Background(), "refresh")
	require.False(t, res.Success())
	assert.False(t, exec.ran("/m/net"))
}

func TestTargetsHaveDistinctIDs(t *testing.T) {
	t.Parallel()

	mod := newModule("net", module.Variables{}, module.Options{Provides: []string{"net", "dns"}})
	a := NewTarget("net", mod, nil)
	b := NewTarget("dns", mod, nil)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Same(t, a.Module(), b.Module())
}
