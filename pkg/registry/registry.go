// Package registry holds the declarative tables that describe each supported
// program: instructions, seed templates, account layouts and errors. Adding a
// program is a data change.
package registry

import (
	"bytes"
	"crypto/ed25519"
	"sync"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

// Registry is a set of programs keyed by variant. It is safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	programs map[Variant]*Program
	order    []Variant
}

func New(programs ...*Program) (*Registry, error) {
	r := &Registry{
		programs: make(map[Variant]*Program),
	}

	for _, p := range programs {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register validates and adds a program.
func (r *Registry) Register(p *Program) error {
	if p == nil {
		return errors.New("program is nil")
	}
	if err := p.Validate(); err != nil {
		return errors.Wrapf(err, "invalid program %s", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[p.Variant]; exists {
		return errors.Errorf("variant %s already registered", p.Variant)
	}

	r.programs[p.Variant] = p
	r.order = append(r.order, p.Variant)
	return nil
}

func (r *Registry) Program(v Variant) (*Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.programs[v]
	if !ok {
		return nil, &anchor.SchemaError{Kind: anchor.UnknownProgram, Name: string(v)}
	}
	return p, nil
}

// Programs returns the programs in registration order.
func (r *Registry) Programs() []*Program {
	r.mu.RLock()
	defer r.mu.RUnlock()

	programs := make([]*Program, len(r.order))
	for i, v := range r.order {
		programs[i] = r.programs[v]
	}
	return programs
}

// ProgramByID returns the program deployed at id on the cluster.
func (r *Registry) ProgramByID(cluster Cluster, id ed25519.PublicKey) (*Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.order {
		p := r.programs[v]
		if deployed, ok := p.ProgramIDs[cluster]; ok && bytes.Equal(deployed, id) {
			return p, true
		}
	}
	return nil, false
}

// ResolveError names a custom error code raised by the program deployed at
// id, falling back to the Anchor framework errors.
func (r *Registry) ResolveError(cluster Cluster, id ed25519.PublicKey, code uint32) (ProgramError, bool) {
	if p, ok := r.ProgramByID(cluster, id); ok {
		if e, ok := p.LookupError(code); ok {
			return *e, true
		}
	}

	if name, ok := anchor.FrameworkError(code); ok {
		return ProgramError{Code: code, Name: name}, true
	}

	return ProgramError{}, false
}
