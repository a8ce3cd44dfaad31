package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// HabFile represents the full hab configuration document.
type HabFile struct {
	Version  string    `yaml:"version,omitempty" validate:"omitempty,semver"`
	Habitats []Habitat `yaml:"habitats,omitempty" validate:"omitempty,dive"`
	Biomes   []Biome   `yaml:"biomes" validate:"required,min=1,dive"`
	Modules  []Module  `yaml:"modules,omitempty" validate:"omitempty,dive"`
	Scripts  []Script  `yaml:"scripts,omitempty" validate:"omitempty,dive"`
}

// Habitat groups biomes that are deployed together.
type Habitat struct {
	Name   string   `yaml:"name" validate:"required,hab_name"`
	Biomes []string `yaml:"biomes" validate:"required,min=1,dive,hab_name"`
}

// Biome selects the modules that form one deployable environment.
type Biome struct {
	Name    string   `yaml:"name" validate:"required,hab_name"`
	Modules []string `yaml:"modules" validate:"required,min=1,dive,hab_name"`
}

// Module decorates a module directory with dependency and hook settings.
type Module struct {
	Name          string     `yaml:"name" validate:"required,hab_name"`
	ShouldDestroy bool       `yaml:"should_destroy"`
	Provides      Provides   `yaml:"provides,omitempty" validate:"omitempty,dive,hab_name"`
	DependsOn     []string   `yaml:"depends_on,omitempty" validate:"omitempty,dive,hab_name"`
	Before        []HookSpec `yaml:"before,omitempty" validate:"omitempty,dive"`
	After         []HookSpec `yaml:"after,omitempty" validate:"omitempty,dive"`
}

// UnmarshalYAML applies defaults for module entries.
func (m *Module) UnmarshalYAML(value *yaml.Node) error {
	type rawModule Module
	temp := rawModule{ShouldDestroy: true}
	if err := value.Decode(&temp); err != nil {
		return err
	}
	*m = Module(temp)
	return nil
}

// HookSpec references a script and the templated arguments passed to it.
// Arguments may contain {variable} placeholders.
type HookSpec struct {
	Name string   `yaml:"name" validate:"required,hab_name"`
	Args []string `yaml:"args,omitempty"`
}

// Script names an executable that hooks can invoke.
type Script struct {
	Name string `yaml:"name" validate:"required,hab_name"`
	Path string `yaml:"path" validate:"required"`
}

// Provides is the list of capability names a module exposes. In YAML it may be
// written as a single name or a list of names.
type Provides []string

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (p *Provides) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		if name == "" {
			*p = nil
			return nil
		}
		*p = Provides{name}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*p = Provides(names)
		return nil
	default:
		return fmt.Errorf("line %d: provides must be a name or a list of names", value.Line)
	}
}

// ModuleMap builds a lookup table for module entries by name.
func ModuleMap(modules []Module) map[string]Module {
	out := make(map[string]Module, len(modules))
	for _, module := range modules {
		out[module.Name] = module
	}
	return out
}

// ScriptMap builds a lookup table for script entries by name.
func ScriptMap(scripts []Script) map[string]Script {
	out := make(map[string]Script, len(scripts))
	for _, script := range scripts {
		out[script.Name] = script
	}
	return out
}

// FindBiome returns the biome entry with the given name.
func (h *HabFile) FindBiome(name string) (Biome, bool) {
	if h == nil {
		return Biome{}, false
	}
	for _, biome := range h.Biomes {
		if biome.Name == name {
			return biome, true
		}
	}
	return Biome{}, false
}

// FindHabitat returns the habitat entry with the given name.
func (h *HabFile) FindHabitat(name string) (Habitat, bool) {
	if h == nil {
		return Habitat{}, false
	}
	for _, habitat := range h.Habitats {
		if habitat.Name == name {
			return habitat, true
		}
	}
	return Habitat{}, false
}
