// Package tfvars collects terraform variable values from var files and from
// other modules' outputs.
package tfvars

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Values maps variable names to their values.
type Values map[string]cty.Value

// Names returns the variable names in sorted order.
func (v Values) Names() []string {
	names := lo.Keys(v)
	slices.Sort(names)
	return names
}

// Strings renders every value as a string. Primitives are converted the way
// terraform would; collections and objects are rendered as JSON.
func (v Values) Strings() (map[string]string, error) {
	out := make(map[string]string, len(v))
	for name, val := range v {
		s, err := valueString(val)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func valueString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", nil
	}
	if !val.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	if val.Type().IsPrimitiveType() {
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return "", err
		}
		return str.AsString(), nil
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Source is a named provider of variable values.
type Source interface {
	Name() string
	// Keys lists the variable names the source can supply, without
	// resolving any values.
	Keys() []string
	// Collect returns the values for the requested names it holds.
	Collect(ctx context.Context, names ...string) (Values, error)
}

// SensitiveSource is implemented by sources that know which of their values
// must not be shown.
type SensitiveSource interface {
	IsSensitive(name string) bool
}

// StaticSource is a source with fixed values.
type StaticSource struct {
	name   string
	values Values
}

// NewStaticSource returns a source holding a copy of values.
func NewStaticSource(name string, values Values) *StaticSource {
	return &StaticSource{name: name, values: lo.Assign(values)}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Keys() []string { return s.values.Names() }

// Collect implements Source.
func (s *StaticSource) Collect(_ context.Context, names ...string) (Values, error) {
	return lo.PickByKeys(s.values, names), nil
}
