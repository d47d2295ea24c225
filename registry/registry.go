// Package registry holds the process-wide fabric descriptor set. A
// registry is loaded by scanning descriptor search directories, then
// answers capability and WWN queries for the configfs object model.
// Reload swaps one immutable snapshot for another, so readers always
// see a complete descriptor set, never a partial one.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sigreer/targetgod/config"
	"github.com/sigreer/targetgod/fabric"
	"github.com/sigreer/targetgod/resolver"
	"github.com/sigreer/targetgod/spec"
)

// ErrNotFound reports a query for a fabric the registry has not
// loaded. It is an expected result, not a failure.
var ErrNotFound = errors.New("fabric not found")

// State is the registry lifecycle: Empty until the first load starts,
// Loading while a scan runs, Ready once a snapshot is published.
// Readers during Loading keep seeing the previous snapshot.
type State int32

const (
	Empty State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// DuplicateError reports descriptor files from the search path that
// derive the same fabric name. All of them are rejected: a silent
// winner would depend on scan order.
type DuplicateError struct {
	Name    string
	Sources []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("fabric %s: duplicate descriptors: %s", e.Name, strings.Join(e.Sources, ", "))
}

// snapshot is one immutable descriptor set. Queries read whichever
// snapshot was current when they started.
type snapshot struct {
	descriptors map[string]fabric.Descriptor
	names       []string
}

// Registry is the loaded fabric descriptor collection.
type Registry struct {
	log        zerolog.Logger
	parser     *spec.Parser
	parserOpts []spec.Option
	resolver   *resolver.Resolver
	builtins   []fabric.Descriptor
	dirs       []string

	mu    sync.Mutex // serializes Load and Reload
	state atomic.Int32
	snap  atomic.Pointer[snapshot]
}

// Option adjusts registry construction.
type Option func(*Registry)

// WithLogger routes load and query diagnostics to log.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithParserOptions forwards options to the descriptor parser, such
// as lenient mode or legacy filter translation.
func WithParserOptions(opts ...spec.Option) Option {
	return func(r *Registry) { r.parserOpts = opts }
}

// WithResolver replaces the WWN resolver.
func WithResolver(res *resolver.Resolver) Option {
	return func(r *Registry) { r.resolver = res }
}

// WithBuiltins seeds each load with descriptors that exist before any
// search directory is read. A file descriptor of the same name
// replaces its builtin silently.
func WithBuiltins(descriptors []fabric.Descriptor) Option {
	return func(r *Registry) { r.builtins = descriptors }
}

// New builds a registry over the given descriptor search directories,
// scanned in order. The registry is Empty until Load.
func New(dirs []string, opts ...Option) *Registry {
	r := &Registry{
		log:  zerolog.Nop(),
		dirs: slices.Clone(dirs),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = spec.NewParser(append([]spec.Option{spec.WithLogger(r.log)}, r.parserOpts...)...)
	if r.resolver == nil {
		r.resolver = resolver.New(resolver.WithLogger(r.log))
	}
	r.snap.Store(&snapshot{descriptors: map[string]fabric.Descriptor{}})
	return r
}

// FromConfig builds a registry from file configuration, seeds it with
// the builtin fabrics and loads it. The returned errors are the load
// errors; the registry is usable regardless, holding every descriptor
// that did load.
func FromConfig(cfg *config.Config, opts ...Option) (*Registry, []error) {
	var errs []error
	base := []Option{WithParserOptions(cfg.ParserOptions()...)}
	builtins, err := spec.Builtins()
	if err != nil {
		errs = append(errs, err)
	} else {
		base = append(base, WithBuiltins(builtins))
	}
	r := New(cfg.SpecDirs, append(base, opts...)...)
	return r, append(errs, r.Load()...)
}

// Load scans the search directories and publishes the resulting
// descriptor set. Malformed descriptors are collected as errors and
// skipped; one bad file never hides the good ones. Missing
// directories are not errors.
func (r *Registry) Load() []error {
	return r.load()
}

// Reload rescans the search directories and atomically replaces the
// descriptor set. Concurrent readers see either the old set or the
// new one, never a mix.
func (r *Registry) Reload() []error {
	return r.load()
}

func (r *Registry) load() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Store(int32(Loading))

	next := &snapshot{descriptors: make(map[string]fabric.Descriptor, len(r.builtins))}
	for _, d := range r.builtins {
		next.descriptors[d.Name] = d
	}

	var errs []error
	sources := make(map[string][]string)
	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.log.Debug().Str("dir", dir).Msg("descriptor directory absent")
				continue
			}
			errs = append(errs, fmt.Errorf("descriptor directory %s: %w", dir, err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), spec.Ext) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			name := spec.Name(path)
			sources[name] = append(sources[name], path)
			if len(sources[name]) > 1 {
				continue
			}
			d, err := r.parser.ParseFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			next.descriptors[name] = *d
		}
	}

	// Colliding names are rejected outright, builtin included: the
	// caller asked for two different fabrics under one name and gets
	// neither until the search path is fixed.
	var duplicates []string
	for name, paths := range sources {
		if len(paths) > 1 {
			duplicates = append(duplicates, name)
		}
	}
	slices.Sort(duplicates)
	for _, name := range duplicates {
		delete(next.descriptors, name)
		errs = append(errs, &DuplicateError{Name: name, Sources: sources[name]})
	}

	next.names = make([]string, 0, len(next.descriptors))
	for name := range next.descriptors {
		next.names = append(next.names, name)
	}
	slices.Sort(next.names)

	r.snap.Store(next)
	r.state.Store(int32(Ready))
	r.log.Info().
		Int("fabrics", len(next.names)).
		Int("errors", len(errs)).
		Msg("fabric registry loaded")
	return errs
}

// State reports the registry lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Get returns the descriptor for the named fabric. The descriptor is
// a read-only view; it is shared with other callers.
func (r *Registry) Get(name string) (fabric.Descriptor, error) {
	d, ok := r.snap.Load().descriptors[name]
	if !ok {
		return fabric.Descriptor{}, fmt.Errorf("fabric %q: %w", name, ErrNotFound)
	}
	return d, nil
}

// All returns every loaded descriptor, sorted by name.
func (r *Registry) All() []fabric.Descriptor {
	snap := r.snap.Load()
	out := make([]fabric.Descriptor, 0, len(snap.names))
	for _, name := range snap.names {
		out = append(out, snap.descriptors[name])
	}
	return out
}

// Names returns the loaded fabric names, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.snap.Load().names)
}

// Supports reports whether the named fabric declares the capability.
// It is total: unknown fabrics and unknown features answer false,
// never an error.
func (r *Registry) Supports(name string, f fabric.Feature) bool {
	d, ok := r.snap.Load().descriptors[name]
	return ok && d.HasFeature(f)
}

// WWNs resolves the named fabric's address rule against current
// hardware state. Results are not cached: two calls can differ when
// devices come or go.
func (r *Registry) WWNs(name string) ([]string, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return r.resolver.Resolve(d)
}
