package attestation

import (
	"crypto/ed25519"
	"time"

	"github.com/noema-protocol/registry-client/pkg/registry"
)

type GlobalConfig struct {
	Authority         ed25519.PublicKey
	MinStakeForIssuer uint64
	TotalIssuers      uint64
	TotalAttestations uint64
	Bump              uint8
}

func GlobalConfigFromAccount(s registry.Scanner) (*GlobalConfig, error) {
	var c GlobalConfig
	if err := s.Scan(&c.Authority, &c.MinStakeForIssuer, &c.TotalIssuers, &c.TotalAttestations, &c.Bump); err != nil {
		return nil, err
	}
	return &c, nil
}

type Issuer struct {
	Owner             ed25519.PublicKey
	Name              string
	MetadataURI       string
	StakeAmount       uint64
	IsActive          bool
	TotalAttestations uint64
	RegisteredAt      int64
	Bump              uint8
}

func IssuerFromAccount(s registry.Scanner) (*Issuer, error) {
	var i Issuer
	if err := s.Scan(&i.Owner, &i.Name, &i.MetadataURI, &i.StakeAmount, &i.IsActive, &i.TotalAttestations, &i.RegisteredAt, &i.Bump); err != nil {
		return nil, err
	}
	return &i, nil
}

// Attestation is a claim made by an issuer about an agent.
type Attestation struct {
	AgentID         string
	Issuer          ed25519.PublicKey
	AttestationType string
	ClaimsURI       string
	IssuedAt        int64
	ExpiresAt       int64
	Signature       [SignatureSize]byte
	IsRevoked       bool
	Bump            uint8
}

func AttestationFromAccount(s registry.Scanner) (*Attestation, error) {
	var a Attestation
	err := s.Scan(
		&a.AgentID,
		&a.Issuer,
		&a.AttestationType,
		&a.ClaimsURI,
		&a.IssuedAt,
		&a.ExpiresAt,
		&a.Signature,
		&a.IsRevoked,
		&a.Bump,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IsValid returns whether the attestation is unrevoked and unexpired at t.
// An expiry of zero never expires.
func (a *Attestation) IsValid(t time.Time) bool {
	if a.IsRevoked {
		return false
	}
	return a.ExpiresAt == 0 || t.Unix() < a.ExpiresAt
}
