package module

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-config-inspect/tfconfig"
)

// Output is a declared module output.
type Output struct {
	Name      string
	Sensitive bool
}

// Variables lists the names a module declares. Values are never inspected.
type Variables struct {
	Inputs  []string
	Outputs []Output
}

// OutputNames returns the output names.
func (v Variables) OutputNames() []string {
	names := make([]string, 0, len(v.Outputs))
	for _, out := range v.Outputs {
		names = append(names, out.Name)
	}
	return names
}

// Discoverer finds the variables declared by the module at path.
type Discoverer interface {
	Discover(path string) (Variables, error)
}

// DiscoverFunc adapts a function to the Discoverer interface.
type DiscoverFunc func(path string) (Variables, error)

func (f DiscoverFunc) Discover(path string) (Variables, error) { return f(path) }

// StaticVariables returns a Discoverer that always reports vars.
func StaticVariables(vars Variables) Discoverer {
	return DiscoverFunc(func(string) (Variables, error) { return vars, nil })
}

// TerraformDiscoverer reads variable and output blocks from the .tf files of a module.
type TerraformDiscoverer struct{}

// Discover implements Discoverer using terraform-config-inspect.
func (TerraformDiscoverer) Discover(path string) (Variables, error) {
	mod, diags := tfconfig.LoadModule(path)
	if diags.HasErrors() {
		return Variables{}, fmt.Errorf("inspect %s: %w", path, diags.Err())
	}

	vars := Variables{
		Inputs:  make([]string, 0, len(mod.Variables)),
		Outputs: make([]Output, 0, len(mod.Outputs)),
	}
	for name := range mod.Variables {
		vars.Inputs = append(vars.Inputs, name)
	}
	slices.Sort(vars.Inputs)

	for name, out := range mod.Outputs {
		vars.Outputs = append(vars.Outputs, Output{Name: name, Sensitive: out.Sensitive})
	}
	slices.SortFunc(vars.Outputs, func(a, b Output) int {
		return strings.Compare(a.Name, b.Name)
	})

	return vars, nil
}
