package engine

import (
	"fmt"

	"github.com/tmacro/habitat/internal/terraform"
)

// Hook phases usable as prerequisites and finishers.
const (
	phaseBefore = "before"
	phaseAfter  = "after"
)

// Commands lists the lifecycle commands a runner accepts.
var Commands = []string{
	terraform.CommandInit,
	terraform.CommandValidate,
	terraform.CommandPlan,
	terraform.CommandApply,
	terraform.CommandOutput,
	terraform.CommandDestroy,
	terraform.CommandClean,
	terraform.CommandFClean,
}

// prerequisites run, in order, before a command.
var prerequisites = map[string][]string{
	terraform.CommandInit:     {},
	terraform.CommandValidate: {terraform.CommandInit},
	terraform.CommandPlan:     {terraform.CommandInit, terraform.CommandValidate},
	terraform.CommandApply:    {terraform.CommandInit, terraform.CommandValidate, terraform.CommandPlan, phaseBefore},
	terraform.CommandOutput:   {terraform.CommandInit, terraform.CommandValidate, terraform.CommandPlan, terraform.CommandApply},
	terraform.CommandDestroy:  {},
	terraform.CommandClean:    {},
	terraform.CommandFClean:   {terraform.CommandClean},
}

// finishers run, in order, after a command that succeeded.
var finishers = map[string][]string{
	terraform.CommandDestroy: {phaseAfter},
}

// ValidateCommand returns an error for names outside the lifecycle vocabulary.
func ValidateCommand(command string) error {
	if _, ok := prerequisites[command]; !ok {
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
