// Package programs assembles the registry of every supported program.
package programs

import (
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/registry/attestation"
	"github.com/noema-protocol/registry-client/pkg/registry/capability"
	"github.com/noema-protocol/registry-client/pkg/registry/consensus"
	"github.com/noema-protocol/registry-client/pkg/registry/identity"
)

// All returns fresh descriptions of the identity, attestation, consensus and
// capability programs, in that order.
func All() []*registry.Program {
	return []*registry.Program{
		identity.New(),
		attestation.New(),
		consensus.New(),
		capability.New(),
	}
}

// Default returns a registry holding every supported program. The static
// tables are validated on construction, so a failure here is a programming
// error.
func Default() *registry.Registry {
	r, err := registry.New(All()...)
	if err != nil {
		panic(err)
	}
	return r
}
