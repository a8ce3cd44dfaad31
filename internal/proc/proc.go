// Package proc runs external commands on behalf of targets.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/tmacro/habitat/internal/logger"
)

// Result captures the exit status and output of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func (r Result) PrimaryOutput() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// Executor runs argv in dir and blocks until it exits. A non-zero exit is
// reported through Result; the error is reserved for commands that could not
// be started at all.
type Executor interface {
	Run(ctx context.Context, argv []string, dir string) (Result, error)
}

// Runner executes commands with os/exec.
type Runner struct {
	// Sink receives a live copy of stdout and stderr. Nil discards it.
	Sink io.Writer
	// Env is appended to the parent environment.
	Env []string
	Log *logger.Logger
}

// Run implements Executor.
func (r *Runner) Run(ctx context.Context, argv []string, dir string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	r.Log.WithFields(map[string]any{"dir": dir, "argv": argv}).Debug("running command")

	res, err := runStreaming(cmd, r.Sink)
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", argv[0], err)
}

// runStreaming wires the command's stdout/stderr through to sink while
// collecting the output for later inspection.
func runStreaming(cmd *exec.Cmd, sink io.Writer) (Result, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if sink != nil {
		sink = &lockedWriter{w: sink}
		cmd.Stdout = io.MultiWriter(sink, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(sink, &stderrBuf)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	return Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// lockedWriter serialises writes from the stdout and stderr copy goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
