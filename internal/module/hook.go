package module

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_-]*)\}`)

// Script is an executable declared in the habfile.
type Script struct {
	Name string
	Path string
}

// Hook invokes a script with templated arguments. Placeholders use the
// {variable} syntax and are filled from resolved variable values.
type Hook struct {
	Script Script
	Args   []string
	fields []string
}

// NewHook builds a hook and extracts the placeholder names from its arguments.
func NewHook(script Script, args []string) Hook {
	seen := make(map[string]struct{})
	var fields []string
	for _, arg := range args {
		for _, match := range placeholderPattern.FindAllStringSubmatch(arg, -1) {
			name := match[1]
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
	}
	return Hook{Script: script, Args: append([]string(nil), args...), fields: fields}
}

// Fields returns the variable names referenced by the hook's arguments, in order of first use.
func (h Hook) Fields() []string {
	return append([]string(nil), h.fields...)
}

// Render substitutes values into the argument templates and returns the full
// argv, script path first. A placeholder without a value is an error.
func (h Hook) Render(values map[string]string) ([]string, error) {
	argv := make([]string, 0, len(h.Args)+1)
	argv = append(argv, h.Script.Path)

	var missing []string
	for _, arg := range h.Args {
		rendered := placeholderPattern.ReplaceAllStringFunc(arg, func(token string) string {
			name := token[1 : len(token)-1]
			value, ok := values[name]
			if !ok {
				missing = append(missing, name)
				return token
			}
			return value
		})
		argv = append(argv, rendered)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("hook %s: no value for %s", h.Script.Name, strings.Join(missing, ", "))
	}
	return argv, nil
}

func (h Hook) String() string {
	return fmt.Sprintf("%s %s", h.Script.Name, strings.Join(h.Args, " "))
}
