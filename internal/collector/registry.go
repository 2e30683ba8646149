package collector

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrUnknownCollector is returned when a name has no registration.
// Config validation surfaces it before any task runs.
var ErrUnknownCollector = errors.New("unknown collector")

// Registry maps collector names to their specs and callables, per category.
// Registration happens once at process start; lookups are side-effect-free.
type Registry struct {
	entries map[Category]map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[Category]map[string]Entry{
		CategoryLocal: {},
		CategoryAWS:   {},
	}}
}

// Register adds a collector. Duplicate names within a category are a
// programming error in the builtin tables.
func (r *Registry) Register(spec Spec, fn Callable) error {
	byName, ok := r.entries[spec.Category]
	if !ok {
		return errors.Newf("invalid category: %q", spec.Category)
	}
	if _, exists := byName[spec.Name]; exists {
		return errors.Newf("duplicate collector %q in category %q", spec.Name, spec.Category)
	}
	byName[spec.Name] = Entry{Spec: spec, Run: fn}
	return nil
}

// Resolve looks up one collector by category and name.
func (r *Registry) Resolve(cat Category, name string) (Entry, error) {
	e, ok := r.entries[cat][name]
	if !ok {
		return Entry{}, errors.Wrapf(ErrUnknownCollector, "%s/%s", cat, name)
	}
	return e, nil
}

// ResolveAll resolves a list of names, failing on the first unknown one.
func (r *Registry) ResolveAll(cat Category, names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := r.Resolve(cat, name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Names returns the registered names for a category, sorted.
func (r *Registry) Names(cat Category) []string {
	names := make([]string, 0, len(r.entries[cat]))
	for name := range r.entries[cat] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
