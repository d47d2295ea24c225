// Package resolver turns a fabric's address rule into the WWNs it
// currently yields. Resolution reads hardware enumeration paths on
// every call and is restartable: nothing is cached, so results track
// device hot-plug.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sigreer/targetgod/fabric"
	"github.com/sigreer/targetgod/filter"
)

// Resolver evaluates address rules. The zero options resolver keeps
// duplicate results, one per matched hardware path.
type Resolver struct {
	log    zerolog.Logger
	unique bool
}

// Option adjusts resolver behavior.
type Option func(*Resolver)

// WithLogger routes per-candidate diagnostics to log.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithUnique de-duplicates resolved WWNs, keeping first occurrences
// in order. The default reports one entry per matched path.
func WithUnique() Option {
	return func(r *Resolver) { r.unique = true }
}

// New builds a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the WWNs d's address rule yields right now, in
// deterministic order: declared order for static lists, lexicographic
// path order for discovered ones. A candidate that cannot be read or
// fails its filter is dropped with a diagnostic; it never fails the
// resolution. Fabrics without an address rule resolve to an empty
// sequence, which callers treat as "supply your own identifier".
func (r *Resolver) Resolve(d fabric.Descriptor) ([]string, error) {
	switch rule := d.Rule.(type) {
	case nil, fabric.NoneRule:
		return nil, nil
	case fabric.StaticRule:
		wwns := slices.Clone(rule.WWNs)
		if r.unique {
			wwns = dedup(wwns)
		}
		return wwns, nil
	case fabric.DiscoveredRule:
		return r.discover(d.Name, rule)
	}
	return nil, fmt.Errorf("fabric %s: unknown address rule %T", d.Name, d.Rule)
}

func (r *Resolver) discover(name string, rule fabric.DiscoveredRule) ([]string, error) {
	matches, err := filepath.Glob(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("fabric %s: glob %q: %w", name, rule.Pattern, err)
	}
	slices.Sort(matches)
	var wwns []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			// Vanished or unreadable devices are absent, not fatal.
			r.log.Debug().Err(err).
				Str("fabric", name).
				Str("path", path).
				Msg("skipping unreadable candidate")
			continue
		}
		c := &filter.Candidate{Path: path, Text: strings.TrimSpace(string(data))}
		if err := rule.Filter.Run(c); err != nil {
			if errors.Is(err, filter.ErrSkip) {
				r.log.Debug().
					Str("fabric", name).
					Str("path", path).
					Msg("candidate filtered out")
			} else {
				r.log.Warn().Err(err).
					Str("fabric", name).
					Str("path", path).
					Msg("candidate failed its filter")
			}
			continue
		}
		if c.Text == "" {
			r.log.Debug().
				Str("fabric", name).
				Str("path", path).
				Msg("candidate produced an empty wwn")
			continue
		}
		wwns = append(wwns, c.Text)
	}
	if r.unique {
		wwns = dedup(wwns)
	}
	return wwns, nil
}

func dedup(wwns []string) []string {
	if len(wwns) < 2 {
		return wwns
	}
	seen := make(map[string]bool, len(wwns))
	out := make([]string, 0, len(wwns))
	for _, w := range wwns {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
