package config

import (
	"fmt"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// ValidateHabFile performs schema and cross-field validation on the habfile.
func ValidateHabFile(cfg *HabFile) error {
	if cfg == nil {
		return haberrors.NewValidationError("habfile", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	scripts := make(map[string]struct{}, len(cfg.Scripts))
	for i, script := range cfg.Scripts {
		if _, exists := scripts[script.Name]; exists {
			return haberrors.NewValidationError(fieldFor("scripts", i, "name"), fmt.Sprintf("duplicate script %q", script.Name), nil)
		}
		scripts[script.Name] = struct{}{}
	}

	modules := make(map[string]struct{}, len(cfg.Modules))
	for i, module := range cfg.Modules {
		if _, exists := modules[module.Name]; exists {
			return haberrors.NewValidationError(fieldFor("modules", i, "name"), fmt.Sprintf("duplicate module %q", module.Name), nil)
		}
		modules[module.Name] = struct{}{}

		if err := validateHooks(scripts, i, "before", module.Before); err != nil {
			return err
		}
		if err := validateHooks(scripts, i, "after", module.After); err != nil {
			return err
		}
	}

	biomes := make(map[string]struct{}, len(cfg.Biomes))
	for i, biome := range cfg.Biomes {
		if _, exists := biomes[biome.Name]; exists {
			return haberrors.NewValidationError(fieldFor("biomes", i, "name"), fmt.Sprintf("duplicate biome %q", biome.Name), nil)
		}
		biomes[biome.Name] = struct{}{}
	}

	habitats := make(map[string]struct{}, len(cfg.Habitats))
	for i, habitat := range cfg.Habitats {
		if _, exists := habitats[habitat.Name]; exists {
			return haberrors.NewValidationError(fieldFor("habitats", i, "name"), fmt.Sprintf("duplicate habitat %q", habitat.Name), nil)
		}
		habitats[habitat.Name] = struct{}{}

		for _, name := range habitat.Biomes {
			if _, ok := biomes[name]; !ok {
				return haberrors.NewValidationError(fieldFor("habitats", i, "biomes"), fmt.Sprintf("references unknown biome %q", name), nil)
			}
		}
	}

	return nil
}

func validateHooks(scripts map[string]struct{}, moduleIndex int, kind string, hooks []HookSpec) error {
	for j, hook := range hooks {
		if _, ok := scripts[hook.Name]; !ok {
			field := fmt.Sprintf("%s.%s[%d].name", fieldFor("modules", moduleIndex, ""), kind, j)
			return haberrors.NewValidationError(field, fmt.Sprintf("references unknown script %q", hook.Name), nil)
		}
	}
	return nil
}
