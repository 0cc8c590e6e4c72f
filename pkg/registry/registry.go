// Package registry selects which catalog functions an evaluator exposes.
//
// A Registry holds every descriptor of a catalog, each either enabled or
// disabled. Categories and individual functions are switched at runtime and
// the enabled set is installed into an evaluator with Apply:
//
//	reg := registry.New()
//	_ = reg.RegisterCategory(functions.CategoryString)
//	_ = reg.DisableFunction("upper")
//	err := reg.Apply(ev)
//
// A Registry is not safe for concurrent mutation; configure it from one
// goroutine (or synchronise externally). Once configured, Apply and the
// read-only methods may be called concurrently.
package registry

import (
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/ext"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

//go:generate mockgen -source=registry.go -destination=mocks/mock_installer.go -package=mocks Installer

// Installer receives native function definitions. *evaluator.Evaluator
// implements it.
type Installer interface {
	Install(defs ...*evaluator.FunctionDef) error
	Uninstall(names ...string) error
}

var _ Installer = (*evaluator.Evaluator)(nil)

// Info is the public view of a registered function.
type Info struct {
	Name        string
	Category    functions.Category
	Kind        functions.Kind
	Standard    bool
	Signature   string
	MinArgs     int
	MaxArgs     int
	Description string
	Example     string
	SpecRef     string
	Aliases     []string
	Features    []string
	Enabled     bool
}

type entry struct {
	desc    functions.Descriptor
	enabled bool
}

// Registry maps function names to descriptors and their enabled state.
type Registry struct {
	entries map[string]*entry
	names   []string          // sorted
	aliases map[string]string // alias -> name
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a registry over the full catalog with every function
// disabled.
func New(opts ...Option) *Registry {
	r, err := NewWithCatalog(ext.Catalog(), opts...)
	if err != nil {
		panic("registry: inconsistent built-in catalog: " + err.Error())
	}
	return r
}

// NewWithCatalog creates a registry over descs with every function
// disabled. Invalid descriptors, duplicate names and alias collisions are
// reported as configuration errors.
func NewWithCatalog(descs []functions.Descriptor, opts ...Option) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]*entry, len(descs)),
		aliases: make(map[string]string),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	taken := func(name string) bool {
		_, dup := r.entries[name]
		_, alias := r.aliases[name]
		return dup || alias
	}

	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if taken(d.Name) {
			return nil, types.Errorf(types.ErrCodeConfig, "duplicate function %q", d.Name).WithFunction(d.Name)
		}
		r.entries[d.Name] = &entry{desc: d}
		r.names = append(r.names, d.Name)
	}
	for _, d := range descs {
		for _, a := range d.Aliases {
			if taken(a) {
				return nil, types.Errorf(types.ErrCodeConfig, "alias %q of %s collides with another function", a, d.Name).
					WithFunction(d.Name)
			}
			r.aliases[a] = d.Name
		}
	}
	sort.Strings(r.names)
	return r, nil
}

// resolve returns the entry for a name or alias.
func (r *Registry) resolve(name string) (*entry, bool) {
	if e, ok := r.entries[name]; ok {
		return e, true
	}
	if target, ok := r.aliases[name]; ok {
		return r.entries[target], true
	}
	return nil, false
}

// RegisterCategory enables every function of cat. An unknown category
// returns an UnknownCategory error and leaves the registry unchanged.
func (r *Registry) RegisterCategory(cat functions.Category) error {
	if _, ok := functions.ParseCategory(string(cat)); !ok {
		return types.Errorf(types.ErrCodeUnknownCategory, "unknown category %q", cat)
	}
	n := 0
	for _, name := range r.names {
		if e := r.entries[name]; e.desc.Category == cat {
			e.enabled = true
			n++
		}
	}
	r.logger.Debug("category registered", "category", cat, "functions", n)
	return nil
}

// RegisterAll enables every function.
func (r *Registry) RegisterAll() {
	for _, e := range r.entries {
		e.enabled = true
	}
}

// EnableFunction enables a single function by name or alias.
func (r *Registry) EnableFunction(name string) error {
	return r.set(name, true)
}

// DisableFunction disables a single function by name or alias. The
// descriptor stays in the registry and can be enabled again.
func (r *Registry) DisableFunction(name string) error {
	return r.set(name, false)
}

func (r *Registry) set(name string, enabled bool) error {
	e, ok := r.resolve(name)
	if !ok {
		return types.UnknownFunction(name)
	}
	e.enabled = enabled
	return nil
}

// IsEnabled reports whether the function (or alias) is enabled.
func (r *Registry) IsEnabled(name string) bool {
	e, ok := r.resolve(name)
	return ok && e.enabled
}

// Get returns the function called name. Aliases are not resolved.
func (r *Registry) Get(name string) (Info, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// Lookup returns the function called name, resolving aliases.
func (r *Registry) Lookup(name string) (Info, bool) {
	e, ok := r.resolve(name)
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// Apply makes the catalog functions exposed by inst match the registry:
// disabled functions and their aliases are uninstalled, then every enabled
// non-standard function is installed in a single batch. Functions inst got
// from elsewhere are left alone. The registry itself is not modified and
// later changes do not affect inst until the next Apply.
func (r *Registry) Apply(inst Installer) error {
	var (
		defs     []*evaluator.FunctionDef
		disabled []string
	)
	for _, name := range r.names {
		e := r.entries[name]
		if e.desc.Standard() {
			continue
		}
		if !e.enabled {
			disabled = append(disabled, e.desc.Names()...)
			continue
		}
		nd, err := e.desc.NativeDefs()
		if err != nil {
			return err
		}
		defs = append(defs, nd...)
	}
	if len(disabled) > 0 {
		if err := inst.Uninstall(disabled...); err != nil {
			return err
		}
	}
	if len(defs) > 0 {
		if err := inst.Install(defs...); err != nil {
			return err
		}
	}
	r.logger.Debug("functions applied", "installed", len(defs), "removed", len(disabled))
	return nil
}

// Functions returns every function sorted by name.
func (r *Registry) Functions() []Info {
	return r.filter(func(*entry) bool { return true })
}

// FunctionsInCategory returns the functions of cat sorted by name.
func (r *Registry) FunctionsInCategory(cat functions.Category) []Info {
	return r.filter(func(e *entry) bool { return e.desc.Category == cat })
}

// FunctionsWithFeature returns the functions tagged with feature.
func (r *Registry) FunctionsWithFeature(feature string) []Info {
	return r.filter(func(e *entry) bool { return slices.Contains(e.desc.Features, feature) })
}

func (r *Registry) filter(keep func(*entry) bool) []Info {
	var out []Info
	for _, name := range r.names {
		if e := r.entries[name]; keep(e) {
			out = append(out, e.info())
		}
	}
	return out
}

// Categories returns the categories that have at least one function, in
// catalog order.
func (r *Registry) Categories() []functions.Category {
	present := make(map[functions.Category]bool)
	for _, e := range r.entries {
		present[e.desc.Category] = true
	}
	var out []functions.Category
	for _, c := range functions.Categories() {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of enabled functions.
func (r *Registry) Len() int {
	n := 0
	for _, e := range r.entries {
		if e.enabled {
			n++
		}
	}
	return n
}

// Aliases returns a copy of the alias -> name map.
func (r *Registry) Aliases() map[string]string {
	return maps.Clone(r.aliases)
}

func (e *entry) info() Info {
	lo, hi := e.desc.Arity()
	return Info{
		Name:        e.desc.Name,
		Category:    e.desc.Category,
		Kind:        e.desc.Kind(),
		Standard:    e.desc.Standard(),
		Signature:   e.desc.Signature,
		MinArgs:     lo,
		MaxArgs:     hi,
		Description: e.desc.Description,
		Example:     e.desc.Example,
		SpecRef:     e.desc.SpecRef,
		Aliases:     slices.Clone(e.desc.Aliases),
		Features:    slices.Clone(e.desc.Features),
		Enabled:     e.enabled,
	}
}
