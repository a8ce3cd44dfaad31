package terraform

// Lifecycle command names.
const (
	CommandInit     = "init"
	CommandValidate = "validate"
	CommandPlan     = "plan"
	CommandApply    = "apply"
	CommandOutput   = "output"
	CommandDestroy  = "destroy"
	CommandClean    = "clean"
	CommandFClean   = "fclean"
)

// Settings applies to every terraform invocation.
type Settings struct {
	// Binary is the terraform executable; defaults to "terraform".
	Binary string
	// NoColor adds -no-color where terraform accepts it.
	NoColor bool
	// Input, when set, adds -input=<value> to commands that prompt.
	Input *bool
	// LockTimeout is passed as -lock-timeout to state locking commands.
	LockTimeout string
}

// CLI builds invocations for one terraform binary.
type CLI struct {
	settings Settings
}

// New returns a CLI using the given settings.
func New(settings Settings) CLI {
	if settings.Binary == "" {
		settings.Binary = "terraform"
	}
	return CLI{settings: settings}
}

// Binary returns the configured terraform executable.
func (c CLI) Binary() string {
	if c.settings.Binary == "" {
		return "terraform"
	}
	return c.settings.Binary
}

// InitOptions holds flags for terraform init.
type InitOptions struct {
	Backend       *bool
	BackendConfig []string
	Upgrade       bool
	Reconfigure   bool
	ForceCopy     bool
	PluginDir     string
}

// ValidateOptions holds flags for terraform validate.
type ValidateOptions struct {
	JSON bool
}

// PlanOptions holds flags for terraform plan.
type PlanOptions struct {
	State       string
	Out         string
	VarFile     string
	Vars        map[string]string
	Destroy     bool
	Refresh     *bool
	Targets     []string
	Parallelism int
}

// ApplyOptions holds flags for terraform apply.
type ApplyOptions struct {
	PlanFile    string
	State       string
	Backup      string
	AutoApprove bool
	Parallelism int
}

// OutputOptions holds flags for terraform output.
type OutputOptions struct {
	State string
	JSON  bool
}

// DestroyOptions holds flags for terraform destroy.
type DestroyOptions struct {
	State       string
	VarFile     string
	Vars        map[string]string
	AutoApprove bool
	Targets     []string
	Parallelism int
}

func (c CLI) command(name string, f *flagSet, args ...string) Invocation {
	argv := make([]string, 0, 2+len(f.args)+len(args))
	argv = append(argv, c.Binary(), name)
	argv = append(argv, f.args...)
	argv = append(argv, args...)
	return Invocation{Command: name, Args: argv}
}

// Init formats terraform init.
func (c CLI) Init(opts InitOptions) Invocation {
	f := &flagSet{}
	f.boolean("backend", opts.Backend)
	f.repeated("backend-config", opts.BackendConfig)
	f.switchFlag("force-copy", opts.ForceCopy)
	f.boolean("input", c.settings.Input)
	f.switchFlag("no-color", c.settings.NoColor)
	f.separate("plugin-dir", opts.PluginDir)
	f.switchFlag("reconfigure", opts.Reconfigure)
	f.switchFlag("upgrade", opts.Upgrade)
	return c.command(CommandInit, f)
}

// Validate formats terraform validate.
func (c CLI) Validate(opts ValidateOptions) Invocation {
	f := &flagSet{}
	f.switchFlag("json", opts.JSON)
	f.switchFlag("no-color", c.settings.NoColor)
	return c.command(CommandValidate, f)
}

// Plan formats terraform plan.
func (c CLI) Plan(opts PlanOptions) Invocation {
	f := &flagSet{}
	f.switchFlag("destroy", opts.Destroy)
	f.boolean("input", c.settings.Input)
	f.value("lock-timeout", c.settings.LockTimeout)
	f.switchFlag("no-color", c.settings.NoColor)
	f.value("out", opts.Out)
	f.number("parallelism", opts.Parallelism)
	f.boolean("refresh", opts.Refresh)
	f.value("state", opts.State)
	f.repeated("target", opts.Targets)
	f.pairs("var", opts.Vars)
	f.value("var-file", opts.VarFile)
	return c.command(CommandPlan, f)
}

// Apply formats terraform apply of a saved plan.
func (c CLI) Apply(opts ApplyOptions) Invocation {
	f := &flagSet{}
	f.switchFlag("auto-approve", opts.AutoApprove)
	f.value("backup", opts.Backup)
	f.boolean("input", c.settings.Input)
	f.value("lock-timeout", c.settings.LockTimeout)
	f.switchFlag("no-color", c.settings.NoColor)
	f.number("parallelism", opts.Parallelism)
	f.value("state", opts.State)
	var args []string
	if opts.PlanFile != "" {
		args = append(args, opts.PlanFile)
	}
	return c.command(CommandApply, f, args...)
}

// Output formats terraform output.
func (c CLI) Output(opts OutputOptions) Invocation {
	f := &flagSet{}
	f.value("state", opts.State)
	f.switchFlag("no-color", c.settings.NoColor)
	f.switchFlag("json", opts.JSON)
	return c.command(CommandOutput, f)
}

// Destroy formats terraform destroy.
func (c CLI) Destroy(opts DestroyOptions) Invocation {
	f := &flagSet{}
	f.switchFlag("auto-approve", opts.AutoApprove)
	f.boolean("input", c.settings.Input)
	f.value("lock-timeout", c.settings.LockTimeout)
	f.switchFlag("no-color", c.settings.NoColor)
	f.number("parallelism", opts.Parallelism)
	f.value("state", opts.State)
	f.repeated("target", opts.Targets)
	f.pairs("var", opts.Vars)
	f.value("var-file", opts.VarFile)
	return c.command(CommandDestroy, f)
}

// Clean removes generated state and plan files.
func Clean(paths ...string) Invocation {
	return Invocation{Command: CommandClean, Args: append([]string{"rm", "-f"}, paths...)}
}

// FullClean recursively removes terraform working data.
func FullClean(paths ...string) Invocation {
	return Invocation{Command: CommandFClean, Args: append([]string{"rm", "-rf"}, paths...)}
}
