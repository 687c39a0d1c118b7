/*
Package enrich implements the enrichment pipeline: an ordered registry of
handlers guarded by predicates over the record snapshot.

The registry is filled once at the program start and frozen before the crawl,
after that it is used concurrently by all crawler workers.
*/
package enrich

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
)

// Handler adds format-specific information to rec.Details, path is the full path of the inode
type Handler func(ctx context.Context, rec *types.Inode, path string) error

// Module is a named enrichment handler with its predicate
type Module struct {
	Name		string
	Predicate	Predicate
	Handler		Handler
}

type Registry struct {
	modules	[]Module
	frozen	bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryFrom makes the frozen registry of modules selected by names in the
// order of names. Each name must be one of known modules
func NewRegistryFrom(names []string, known ...Module) (*Registry, error) {
	byName := make(map[string]Module, len(known))
	for _, m := range known {
		byName[m.Name] = m
	}

	r := NewRegistry()
	for _, name := range names {
		m, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("(Registry:NewRegistryFrom) unknown enrichment module %q", name)
		}
		if err := r.Register(m.Name, m.Predicate, m.Handler); err != nil {
			return nil, err
		}
	}

	r.Freeze()

	return r, nil
}

func (r *Registry) Register(name string, p Predicate, h Handler) error {
	if r.frozen {
		return fmt.Errorf("(Registry:Register) cannot register %q - registry is frozen", name)
	}
	if h == nil {
		return fmt.Errorf("(Registry:Register) nil handler of module %q", name)
	}
	for _, m := range r.modules {
		if m.Name == name {
			return fmt.Errorf("(Registry:Register) module %q is already registered", name)
		}
	}

	r.modules = append(r.modules, Module{Name: name, Predicate: p, Handler: h})

	return nil
}

// Freeze prohibits any further registration
func (r *Registry) Freeze() {
	r.frozen = true
}

// Names returns names of registered modules in the registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name)
	}
	return names
}

// Run invokes all handlers whose predicates match the record. A failure of
// one handler does not prevent other handlers from running, all failures are
// returned joined
func (r *Registry) Run(ctx context.Context, rec *types.Inode, path string) error {
	// Snapshot shares details with the record, so later predicates
	// see the results of previous handlers
	snap := rec.Snapshot()

	var errs []error
	for _, m := range r.modules {
		if !m.Predicate.Match(snap) {
			continue
		}

		log.D("(Registry:Run) %s: running module %q", path, m.Name)
		if err := runIsolated(ctx, m, rec, path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runIsolated(ctx context.Context, m Module, rec *types.Inode, path string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.E("(Registry:Run) module %q panicked on %s: %v\n%s", m.Name, path, p, debug.Stack())
			err = fmt.Errorf("(Registry:Run) module %q panicked on %s: %v", m.Name, path, p)
		}
	}()

	if err := m.Handler(ctx, rec, path); err != nil {
		return fmt.Errorf("(Registry:Run) module %q failed on %s: %w", m.Name, path, err)
	}

	return nil
}
