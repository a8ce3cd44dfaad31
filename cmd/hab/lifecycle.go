package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tmacro/habitat/internal/biome"
	"github.com/tmacro/habitat/internal/engine"
	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/proc"
	"github.com/tmacro/habitat/internal/terraform"
	"github.com/tmacro/habitat/internal/tfvars"
	"github.com/tmacro/habitat/internal/tui"
)

type runOptions struct {
	ConfigPath     string
	ModulesDir     string
	StateDir       string
	VarFiles       []string
	Biome          string
	Habitat        string
	AutoConfirm    bool
	Verbose        bool
	Terraform      string
	Parallelism    int
	StartAt        string
	StopAt         string
	NonInteractive bool
}

// newExecutor builds the process runner for a run.
var newExecutor = func(sink io.Writer, log *logger.Logger) proc.Executor {
	return &proc.Runner{Sink: sink, Log: log}
}

// isTerminal reports whether stdout is attached to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newLifecycleCmd(v *viper.Viper, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(v)
			opts.NonInteractive = !isTerminal()

			if err := validateRunOptions(opts); err != nil {
				return err
			}

			if !opts.AutoConfirm {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Really do this?")
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLifecycle(ctx, opts, command, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func optionsFrom(v *viper.Viper) runOptions {
	return runOptions{
		ConfigPath:  v.GetString("config"),
		ModulesDir:  v.GetString("modules"),
		StateDir:    v.GetString("state-dir"),
		VarFiles:    append(v.GetStringSlice("var-file"), v.GetStringSlice("vf")...),
		Biome:       v.GetString("biome"),
		Habitat:     v.GetString("habitat"),
		AutoConfirm: v.GetBool("auto-confirm"),
		Verbose:     v.GetBool("verbose"),
		Terraform:   v.GetString("terraform"),
		Parallelism: v.GetInt("parallelism"),
		StartAt:     v.GetString("start-at"),
		StopAt:      v.GetString("stop-at"),
	}
}

func validateRunOptions(opts runOptions) error {
	switch {
	case opts.Biome == "" && opts.Habitat == "":
		return fmt.Errorf("one of --biome or --habitat is required")
	case opts.Biome != "" && opts.Habitat != "":
		return fmt.Errorf("--biome and --habitat are mutually exclusive")
	}

	info, err := os.Stat(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", opts.ConfigPath)
	}

	if info, err := os.Stat(opts.ModulesDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", opts.ModulesDir)
	}
	if info, err := os.Stat(opts.StateDir); err == nil && !info.IsDir() {
		return fmt.Errorf("%s is not a directory", opts.StateDir)
	}
	for _, path := range opts.VarFiles {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return fmt.Errorf("%s is not a file", path)
		}
	}
	return nil
}

func runLifecycle(ctx context.Context, opts runOptions, command string, out, errOut io.Writer) error {
	level := "info"
	switch {
	case opts.Verbose:
		level = "debug"
	case !opts.NonInteractive:
		level = "warn"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: errOut})
	if err != nil {
		return err
	}

	ws, err := biome.LoadWorkspace(biome.WorkspaceOptions{
		HabFile:    opts.ConfigPath,
		ModulesDir: opts.ModulesDir,
		StateDir:   opts.StateDir,
		VarFiles:   opts.VarFiles,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	unlock, err := ws.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	biomes := []string{opts.Biome}
	if opts.Habitat != "" {
		if biomes, err = ws.Habitat(opts.Habitat); err != nil {
			return err
		}
		if command == terraform.CommandDestroy {
			slices.Reverse(biomes)
		}
	}

	for _, name := range biomes {
		if err := runBiome(ctx, ws, name, opts, command, out, errOut, log); err != nil {
			return err
		}
	}
	return nil
}

func runBiome(ctx context.Context, ws *biome.Workspace, name string, opts runOptions, command string, out, errOut io.Writer, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log = log.With("biome", name)

	// Command output is streamed only when nothing else owns the terminal.
	var sink io.Writer
	if opts.NonInteractive && opts.Verbose {
		sink = errOut
	}

	noInput := false
	ectx := &engine.ExecutionContext{
		Terraform: terraform.New(terraform.Settings{Binary: opts.Terraform, NoColor: true, Input: &noInput}),
		Exec:      newExecutor(sink, log),
		Vars:      tfvars.NewResolver(log),
		Logger:    log,
	}

	b, err := ws.Biome(name, ectx)
	if err != nil {
		return err
	}

	stages := b.Stages()
	if command == terraform.CommandDestroy {
		stages = engine.Reverse(stages)
	}
	if stages, err = engine.Window(stages, opts.StartAt, opts.StopAt); err != nil {
		return err
	}

	names := lo.Map(stages, func(s *engine.Stage, _ int) []string { return s.Names() })
	state := tui.NewModel(name, command, names, opts.NonInteractive)

	var (
		observer   *tui.Observer
		program    *tea.Program
		programErr error
		done       = make(chan struct{})
	)

	if opts.NonInteractive {
		observer = tui.NewStateObserver(&state)
		close(done)
	} else {
		program = tea.NewProgram(state.WithCancel(cancel), tea.WithOutput(out), tea.WithContext(ctx))
		observer = tui.NewProgramObserver(program)
		go func() {
			defer close(done)
			_, programErr = program.Run()
		}()
	}

	runner := engine.NewRunner(stages, engine.RunnerOptions{
		PoolSize: opts.Parallelism,
		Logger:   log,
		Observer: observer,
	})
	report, runErr := runner.Execute(ctx, command)
	observer.Send(tui.RunDoneMsg{Err: runErr})

	<-done
	if opts.NonInteractive {
		fmt.Fprintln(out, state.View())
	}

	if misses := ectx.Vars.Misses(); len(misses) > 0 {
		log.Debugf("unresolved variables: %s", strings.Join(misses, ", "))
	}
	log.Debugf("%s finished in %s", command, report.Duration)

	if runErr != nil {
		return runErr
	}
	if programErr != nil && ctx.Err() == nil {
		return programErr
	}
	return ctx.Err()
}
