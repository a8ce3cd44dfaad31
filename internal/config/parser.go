package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseHabFile loads a habfile from disk, validates it, and returns the resulting model.
func ParseHabFile(path string) (*HabFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, haberrors.NewParseError(path, 0, err)
	}
	return Parse(path, data)
}

// Parse decodes and validates habfile contents. path is only used in error messages.
func Parse(path string, data []byte) (*HabFile, error) {
	var cfg HabFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, haberrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateHabFile(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
