package anchor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const DiscriminatorSize = 8

// Discriminator is the 8 byte tag Anchor prefixes instruction data and
// account data with.
type Discriminator [DiscriminatorSize]byte

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// Matches reports whether data starts with the discriminator.
func (d Discriminator) Matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

var (
	instructionDiscriminators sync.Map
	accountDiscriminators     sync.Map
)

// InstructionDiscriminator returns sha256("global:" + name)[:8].
//
// The name is hashed verbatim. Anchor programs hash the Rust function name,
// so "register_agent" and "registerAgent" yield different tags and only the
// former is routed by the program.
func InstructionDiscriminator(name string) Discriminator {
	return memoised(&instructionDiscriminators, "global:", name)
}

// AccountDiscriminator returns sha256("account:" + name)[:8], where name is
// the Rust struct name of the account.
func AccountDiscriminator(name string) Discriminator {
	return memoised(&accountDiscriminators, "account:", name)
}

func memoised(m *sync.Map, namespace, name string) Discriminator {
	if cached, ok := m.Load(name); ok {
		return cached.(Discriminator)
	}

	h := sha256.Sum256([]byte(namespace + name))

	var d Discriminator
	copy(d[:], h[:DiscriminatorSize])

	m.Store(name, d)
	return d
}
