package tfvars

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// OutputFetcher returns the document printed by `terraform output -json`.
type OutputFetcher func(ctx context.Context) ([]byte, error)

// OutputSource exposes a module's outputs. Values are fetched on the first
// Collect and kept for the source's lifetime.
type OutputSource struct {
	name  string
	keys  []string
	fetch OutputFetcher

	mu        sync.RWMutex
	sensitive map[string]bool

	once     sync.Once
	resolved atomic.Bool
	values   Values
	err      error
}

// NewOutputSource builds a source for the module name. keys and sensitive are
// the declared outputs; nothing is fetched until values are requested.
func NewOutputSource(name string, keys, sensitive []string, fetch OutputFetcher) *OutputSource {
	return &OutputSource{
		name:      name,
		keys:      slices.Clone(keys),
		sensitive: lo.SliceToMap(sensitive, func(k string) (string, bool) { return k, true }),
		fetch:     fetch,
	}
}

func (s *OutputSource) Name() string { return s.name }

func (s *OutputSource) Keys() []string { return slices.Clone(s.keys) }

// IsSensitive implements SensitiveSource.
func (s *OutputSource) IsSensitive(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sensitive[name]
}

// Resolved reports whether the outputs have been fetched.
func (s *OutputSource) Resolved() bool { return s.resolved.Load() }

// Collect implements Source.
func (s *OutputSource) Collect(ctx context.Context, names ...string) (Values, error) {
	s.once.Do(func() {
		s.values, s.err = s.resolve(ctx)
		s.resolved.Store(true)
	})
	if s.err != nil {
		return nil, s.err
	}
	return lo.PickByKeys(s.values, names), nil
}

func (s *OutputSource) resolve(ctx context.Context) (Values, error) {
	raw, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("outputs of %s: %w", s.name, err)
	}
	values, sensitive, err := ParseOutputs(raw)
	if err != nil {
		return nil, fmt.Errorf("outputs of %s: %w", s.name, err)
	}
	s.mu.Lock()
	for _, name := range sensitive {
		s.sensitive[name] = true
	}
	s.mu.Unlock()
	return values, nil
}

type outputEntry struct {
	Sensitive bool            `json:"sensitive"`
	Type      json.RawMessage `json:"type"`
	Value     json.RawMessage `json:"value"`
}

// ParseOutputs decodes `terraform output -json`, returning the values and the
// names marked sensitive.
func ParseOutputs(raw []byte) (Values, []string, error) {
	var doc map[string]outputEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, err
	}

	values := make(Values, len(doc))
	var sensitive []string
	for name, entry := range doc {
		val, err := decodeOutput(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("output %s: %w", name, err)
		}
		values[name] = val
		if entry.Sensitive {
			sensitive = append(sensitive, name)
		}
	}
	slices.Sort(sensitive)
	return values, sensitive, nil
}

func decodeOutput(entry outputEntry) (cty.Value, error) {
	var (
		ty  cty.Type
		err error
	)
	if len(entry.Type) > 0 {
		ty, err = ctyjson.UnmarshalType(entry.Type)
	} else {
		ty, err = ctyjson.ImpliedType(entry.Value)
	}
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(entry.Value, ty)
}
