// Package registry implements the Register and LoadRecursive use-cases
// against the store.Store contract (spec §4.5), so it works unchanged
// against either backend. An optional Announcer lets Register broadcast a
// gossip notification after a successful store Put (SPEC_FULL.md §11);
// nothing else in this package depends on it.
package registry

import (
	"context"

	"github.com/georgecane/opencoin/internal/store"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

// Announcer broadcasts a freshly registered module name to peers. Satisfied
// by *p2pnode.Node in DHT mode; nil in local-only deployments.
type Announcer interface {
	Announce(ctx context.Context, name string) error
}

// Registry implements Register and LoadRecursive over a single store.Store.
type Registry struct {
	Store     store.Store
	Announcer Announcer // optional; nil disables gossip announcement
}

// New returns a Registry over s with no Announcer wired.
func New(s store.Store) *Registry {
	return &Registry{Store: s}
}

// Register stores a new module under name. The contains() precondition
// check is advisory; store.Put is the atomic authority, so a race loses to
// whichever Put lands first and the other surfaces AlreadyExists unchanged.
// On success, a non-nil Announcer is notified best-effort: a publish
// failure is not surfaced to the caller, since the module is already
// durably stored and gossip is purely additive (SPEC_FULL.md §11).
func (r *Registry) Register(ctx context.Context, name string, code []byte, deps []string) error {
	exists, err := r.Store.Contains(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return &wasmerr.AlreadyExistsError{Name: name}
	}

	for _, d := range deps {
		ok, err := r.Store.Contains(ctx, d)
		if err != nil {
			return err
		}
		if !ok {
			return &wasmerr.MissingDependencyError{Name: d}
		}
	}

	if err := r.Store.Put(ctx, name, code, deps); err != nil {
		return err
	}

	if r.Announcer != nil {
		_ = r.Announcer.Announce(ctx, name)
	}
	return nil
}

// LoadedModule is a single node's record plus its already-resolved
// dependency subtree, suitable for recursive instantiation by the linker.
type LoadedModule struct {
	Name         string
	Code         []byte
	Dependencies []string
	Imports      map[string]*LoadedModule // dependency name -> its loaded subtree
}

// LoadRecursive loads name and, depth-first post-order, every transitive
// dependency: a dependency is always resolved strictly before any dependant
// that imports it. A well-formed store (populated only via Register) cannot
// contain cycles because registration forbids forward references; the
// per-path visited set here exists only to survive a corrupt or
// DHT-mutated store (spec §4.5/§9). The set tracks the current path only —
// an entry is removed once its subtree finishes — so a diamond (the same
// module reachable through two different branches, e.g. c depends on
// [a,b] and b depends on [a]) is not mistaken for a cycle; only a module
// that depends on itself transitively along one path trips the guard.
func (r *Registry) LoadRecursive(ctx context.Context, name string) (*LoadedModule, error) {
	return r.loadRecursive(ctx, name, make(map[string]bool))
}

func (r *Registry) loadRecursive(ctx context.Context, name string, path map[string]bool) (*LoadedModule, error) {
	if path[name] {
		return nil, &wasmerr.CycleError{Name: name}
	}
	path[name] = true
	defer delete(path, name)

	rec, err := r.Store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	mod := &LoadedModule{
		Name:         name,
		Code:         rec.Code,
		Dependencies: rec.Dependencies,
		Imports:      make(map[string]*LoadedModule, len(rec.Dependencies)),
	}

	for _, dep := range rec.Dependencies {
		if _, dup := mod.Imports[dep]; dup {
			return nil, &wasmerr.DuplicateImportError{Name: dep}
		}
		sub, err := r.loadRecursive(ctx, dep, path)
		if err != nil {
			return nil, err
		}
		mod.Imports[dep] = sub
	}

	return mod, nil
}
