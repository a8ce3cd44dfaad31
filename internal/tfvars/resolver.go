package tfvars

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/tmacro/habitat/internal/logger"
)

// ErrSealed is returned when sources are registered after the first Collect.
var ErrSealed = errors.New("resolver already in use")

// Resolver aggregates sources into a single lookup keyed by variable name.
// The first registered source that lists a name owns it.
type Resolver struct {
	log *logger.Logger

	mu      sync.Mutex
	sources []Source
	index   map[string]Source
	misses  []string
}

// NewResolver returns a resolver over sources.
func NewResolver(log *logger.Logger, sources ...Source) *Resolver {
	return &Resolver{log: log, sources: sources}
}

// Register appends sources. It fails once the name index has been built.
func (r *Resolver) Register(sources ...Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil {
		return ErrSealed
	}
	r.sources = append(r.sources, sources...)
	return nil
}

// Sources returns the registered sources in lookup order.
func (r *Resolver) Sources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Source(nil), r.sources...)
}

func (r *Resolver) owners() map[string]Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil {
		r.index = make(map[string]Source)
		for _, src := range r.sources {
			for _, key := range src.Keys() {
				if _, taken := r.index[key]; !taken {
					r.index[key] = src
				}
			}
		}
	}
	return r.index
}

// Collect returns the values for names. Names no source lists are left out of
// the result and recorded as misses; absent keys mean the value is unavailable.
func (r *Resolver) Collect(ctx context.Context, names ...string) (Values, error) {
	index := r.owners()
	names = lo.Uniq(names)

	groups := make(map[Source][]string)
	var unmatched []string
	for _, name := range names {
		src, ok := index[name]
		if !ok {
			unmatched = append(unmatched, name)
			continue
		}
		groups[src] = append(groups[src], name)
	}

	if len(unmatched) > 0 {
		r.mu.Lock()
		r.misses = append(r.misses, unmatched...)
		r.mu.Unlock()
		r.log.With("variables", unmatched).Warnf("no source for %s", strings.Join(unmatched, ", "))
	}

	out := make(Values, len(names))
	for _, src := range r.Sources() {
		wanted, ok := groups[src]
		if !ok {
			continue
		}
		values, err := src.Collect(ctx, wanted...)
		if err != nil {
			return nil, err
		}
		for name, val := range values {
			out[name] = val
		}
		r.logCollected(src, values)
	}
	return out, nil
}

// Misses returns every requested name that had no source, in request order.
func (r *Resolver) Misses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.misses...)
}

func (r *Resolver) logCollected(src Source, values Values) {
	sens, _ := src.(SensitiveSource)
	for _, name := range values.Names() {
		shown := "(sensitive)"
		if sens == nil || !sens.IsSensitive(name) {
			if s, err := valueString(values[name]); err == nil {
				shown = s
			}
		}
		r.log.WithFields(map[string]any{"source": src.Name(), "variable": name}).Debugf("resolved %s = %s", name, shown)
	}
}
