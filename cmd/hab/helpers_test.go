package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmacro/habitat/internal/logger"
	"github.com/tmacro/habitat/internal/proc"
)

const testHabfile = `
version: "1.0.0"
scripts:
  - name: wait-ssh
    path: bin/wait-ssh
modules:
  - name: nodes
    depends_on: [network]
    before:
      - name: wait-ssh
        args: ["--host={bastion_ip}"]
  - name: storage
    should_destroy: false
biomes:
  - name: prod
    modules: [network, nodes, storage]
  - name: edge
    modules: [network]
habitats:
  - name: all
    biomes: [edge, prod]
`

const networkOutputs = `{"bastion_ip": {"sensitive": false, "type": "string", "value": "10.0.0.1"}}`

type call struct {
	dir  string
	argv []string
}

type fakeExec struct {
	mu    sync.Mutex
	calls []call
	fail  func(dir string, argv []string) bool
}

func (f *fakeExec) Run(_ context.Context, argv []string, dir string) (proc.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{dir: dir, argv: slices.Clone(argv)})
	fail := f.fail
	f.mu.Unlock()

	if fail != nil && fail(dir, argv) {
		return proc.Result{ExitCode: 1, Stderr: "Error: boom"}, nil
	}
	if len(argv) > 1 && argv[1] == "output" {
		return proc.Result{Stdout: networkOutputs}, nil
	}
	return proc.Result{}, nil
}

// ran returns "module:command" for every terraform call, in call order.
func (f *fakeExec) ran(command string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if len(c.argv) > 1 && c.argv[1] == command {
			out = append(out, filepath.Base(c.dir))
		}
	}
	return out
}

func (f *fakeExec) argv(module, command string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if filepath.Base(c.dir) == module && len(c.argv) > 1 && c.argv[1] == command {
			return c.argv
		}
	}
	return nil
}

func (f *fakeExec) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject lays out a habfile with three modules and returns the root.
func newProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hab.yaml"), testHabfile)
	writeFile(t, filepath.Join(root, "modules", "network", "main.tf"), `
output "bastion_ip" {
  value = "10.0.0.1"
}
`)
	writeFile(t, filepath.Join(root, "modules", "nodes", "main.tf"), `
variable "bastion_ip" {}
variable "region" {}
`)
	writeFile(t, filepath.Join(root, "modules", "storage", "main.tf"), `
variable "region" {}
`)
	writeFile(t, filepath.Join(root, "common.tfvars"), `region = "eu-west-1"`)
	return root
}

// useFakes swaps the process runner and terminal detection for the test.
func useFakes(t *testing.T, exec *fakeExec) {
	t.Helper()

	prevExec, prevTerm := newExecutor, isTerminal
	t.Cleanup(func() {
		newExecutor, isTerminal = prevExec, prevTerm
	})
	newExecutor = func(io.Writer, *logger.Logger) proc.Executor { return exec }
	isTerminal = func() bool { return false }
}

func projectArgs(root string, args ...string) []string {
	return append(args,
		"--config", filepath.Join(root, "hab.yaml"),
		"--modules", filepath.Join(root, "modules"),
		"--state-dir", filepath.Join(root, ".state"),
		"--var-file", filepath.Join(root, "common.tfvars"),
	)
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}
