package capability

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
)

type GlobalConfig struct {
	Authority         ed25519.PublicKey
	RegistrationFee   uint64
	TotalCapabilities uint64
	Bump              uint8
}

func GlobalConfigFromAccount(s registry.Scanner) (*GlobalConfig, error) {
	var c GlobalConfig
	if err := s.Scan(&c.Authority, &c.RegistrationFee, &c.TotalCapabilities, &c.Bump); err != nil {
		return nil, err
	}
	return &c, nil
}

// Capability is a declared agent capability.
type Capability struct {
	AgentID        string
	Owner          ed25519.PublicKey
	CapabilityType string
	Version        string
	MetadataURI    string
	IsActive       bool
	DeclaredAt     int64
	UpdatedAt      int64
	Bump           uint8
}

func CapabilityFromAccount(s registry.Scanner) (*Capability, error) {
	var c Capability
	err := s.Scan(
		&c.AgentID,
		&c.Owner,
		&c.CapabilityType,
		&c.Version,
		&c.MetadataURI,
		&c.IsActive,
		&c.DeclaredAt,
		&c.UpdatedAt,
		&c.Bump,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
