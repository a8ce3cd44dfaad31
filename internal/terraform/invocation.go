// Package terraform formats the command lines hab hands to the process runner.
//
// Every lifecycle command has its own option struct; there is no shared flag
// table. The formatted argv doubles as the memoization key for a target.
package terraform

import (
	"maps"
	"slices"
	"strconv"

	"al.essio.dev/pkg/shellescape"
)

// Invocation is a fully formatted external command.
type Invocation struct {
	// Command is the lifecycle command the invocation belongs to.
	Command string
	Args    []string
}

// String renders the invocation as a shell-quoted command line.
func (i Invocation) String() string {
	return shellescape.QuoteCommand(i.Args)
}

// Empty reports whether there is nothing to execute.
func (i Invocation) Empty() bool {
	return len(i.Args) == 0
}

// flagSet accumulates terraform style flags in insertion order.
type flagSet struct {
	args []string
}

// value adds -name=value when value is non-empty.
func (f *flagSet) value(name, value string) {
	if value == "" {
		return
	}
	f.args = append(f.args, "-"+name+"="+value)
}

// separate adds -name value as two arguments.
func (f *flagSet) separate(name, value string) {
	if value == "" {
		return
	}
	f.args = append(f.args, "-"+name, value)
}

// boolean adds -name=true|false when set.
func (f *flagSet) boolean(name string, value *bool) {
	if value == nil {
		return
	}
	f.args = append(f.args, "-"+name+"="+strconv.FormatBool(*value))
}

// switchFlag adds -name when on.
func (f *flagSet) switchFlag(name string, on bool) {
	if on {
		f.args = append(f.args, "-"+name)
	}
}

func (f *flagSet) number(name string, value int) {
	if value > 0 {
		f.args = append(f.args, "-"+name+"="+strconv.Itoa(value))
	}
}

func (f *flagSet) repeated(name string, values []string) {
	for _, v := range values {
		f.value(name, v)
	}
}

func (f *flagSet) pairs(name string, values map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(values)) {
		f.separate(name, k+"="+values[k])
	}
}
