package engine

import (
	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/proc"
	"github.com/tmacro/habitat/internal/terraform"
	"github.com/tmacro/habitat/internal/tfvars"
)

// ExecutionContext contains runtime state shared by every target of a run.
type ExecutionContext struct {
	Terraform terraform.CLI
	Exec      proc.Executor
	Vars      *tfvars.Resolver
	// TempDir holds generated var files; empty means the system temp dir.
	TempDir string
	Logger  *logger.Logger
}
