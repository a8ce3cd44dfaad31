package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tmacro/habitat/internal/terraform"
)

const envPrefix = "HAB"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "hab",
		Short:         "Easy multi-module terraform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "hab.yaml", "Path to the hab configuration file")
	flags.StringP("modules", "m", ".", "Directory containing your modules")
	flags.StringP("state-dir", "s", ".state", "Directory to store terraform state files")
	flags.StringSlice("var-file", nil, "Path to a .tfvars or .tfvars.json file, may be repeated")
	flags.StringP("biome", "b", "", "Biome to run")
	flags.String("habitat", "", "Habitat to run, each biome in turn")
	flags.BoolP("auto-confirm", "y", false, "Assume yes to prompts")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("terraform", "terraform", "Terraform executable")
	flags.Int("parallelism", 0, "Targets run at once within a stage (0 = stages + 5)")
	flags.String("start-at", "", "Start at the stage holding this target, ignoring dependencies")
	flags.String("stop-at", "", "Stop after the stage holding this target")

	// --vf is the short spelling of --var-file.
	flags.StringSlice("vf", nil, "Alias for --var-file")
	_ = flags.MarkHidden("vf")

	for _, lc := range lifecycleCommands {
		cmd.AddCommand(newLifecycleCmd(v, lc.name, lc.short))
	}
	cmd.AddCommand(newVersionCmd())

	return cmd
}

var lifecycleCommands = []struct {
	name  string
	short string
}{
	{terraform.CommandInit, "Initialise every module of a biome"},
	{terraform.CommandValidate, "Validate every module of a biome"},
	{terraform.CommandPlan, "Plan every module of a biome"},
	{terraform.CommandApply, "Apply every module of a biome in dependency order"},
	{terraform.CommandDestroy, "Destroy a biome, dependents first"},
	{terraform.CommandClean, "Remove generated state and plan files"},
	{terraform.CommandFClean, "Remove state, plans and terraform working data"},
}
