package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a habfile or var file parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AmbiguousProvidesError reports two modules claiming the same capability.
type AmbiguousProvidesError struct {
	Capability string
	First      string
	Second     string
}

// NewAmbiguousProvidesError constructs an AmbiguousProvidesError.
func NewAmbiguousProvidesError(capability, first, second string) error {
	return &AmbiguousProvidesError{Capability: capability, First: first, Second: second}
}

func (e *AmbiguousProvidesError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s and %s both provide %s", e.First, e.Second, e.Capability)
}

// UnresolvedDependencyError indicates a module references something that does not exist.
// Dependency is empty when the module itself is unknown.
type UnresolvedDependencyError struct {
	Module     string
	Dependency string
}

// NewUnresolvedDependencyError constructs an UnresolvedDependencyError.
func NewUnresolvedDependencyError(module, dependency string) error {
	return &UnresolvedDependencyError{Module: module, Dependency: dependency}
}

// NewInvalidModuleError reports a module that cannot be found or built.
func NewInvalidModuleError(module string) error {
	return &UnresolvedDependencyError{Module: module}
}

func (e *UnresolvedDependencyError) Error() string {
	if e == nil {
		return ""
	}
	if e.Dependency == "" {
		return fmt.Sprintf("%s is not a valid module", e.Module)
	}
	return fmt.Sprintf("module %s depends on %s, which no module provides", e.Module, e.Dependency)
}

// InvalidBiomeError indicates the requested biome is not declared in the habfile.
type InvalidBiomeError struct {
	Biome string
}

// NewInvalidBiomeError constructs an InvalidBiomeError.
func NewInvalidBiomeError(biome string) error {
	return &InvalidBiomeError{Biome: biome}
}

func (e *InvalidBiomeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s is not a valid biome", e.Biome)
}

// CircularDependencyError is returned when adding Parent -> Child would close a cycle.
type CircularDependencyError struct {
	Parent string
	Child  string
}

// NewCircularDependencyError constructs a CircularDependencyError.
func NewCircularDependencyError(parent, child string) error {
	return &CircularDependencyError{Parent: parent, Child: child}
}

func (e *CircularDependencyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s can not be a dependency of %s: circular dependency", e.Child, e.Parent)
}

// ExecutionError represents a runtime failure while running a command for a target.
type ExecutionError struct {
	Target  string
	Command string
	Err     error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(target, command string, err error) error {
	return &ExecutionError{Target: target, Command: command, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Target != "" && e.Command != "":
		return fmt.Sprintf("execution error on %s (%s): %v", e.Target, e.Command, e.Err)
	case e.Target != "":
		return fmt.Sprintf("execution error on %s: %v", e.Target, e.Err)
	default:
		return fmt.Sprintf("execution error: %v", e.Err)
	}
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageFailedError reports the first stage in which one or more targets failed.
type StageFailedError struct {
	Stage   int
	Command string
	Targets []string
}

// NewStageFailedError constructs a StageFailedError.
func NewStageFailedError(stage int, command string, targets []string) error {
	return &StageFailedError{Stage: stage, Command: command, Targets: append([]string(nil), targets...)}
}

func (e *StageFailedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("stage %d: modules %s failed to %s", e.Stage, strings.Join(e.Targets, " "), e.Command)
}
