package consensus

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
)

type GlobalConfig struct {
	Authority              ed25519.PublicKey
	MinStakeForValidator   uint64
	TotalValidators        uint64
	TotalConsensusRequests uint64
	Bump                   uint8
}

func GlobalConfigFromAccount(s registry.Scanner) (*GlobalConfig, error) {
	var c GlobalConfig
	if err := s.Scan(&c.Authority, &c.MinStakeForValidator, &c.TotalValidators, &c.TotalConsensusRequests, &c.Bump); err != nil {
		return nil, err
	}
	return &c, nil
}

type Validator struct {
	Owner        ed25519.PublicKey
	Name         string
	MetadataURI  string
	StakeAmount  uint64
	IsActive     bool
	TotalVotes   uint64
	RegisteredAt int64
	Bump         uint8
}

func ValidatorFromAccount(s registry.Scanner) (*Validator, error) {
	var v Validator
	if err := s.Scan(&v.Owner, &v.Name, &v.MetadataURI, &v.StakeAmount, &v.IsActive, &v.TotalVotes, &v.RegisteredAt, &v.Bump); err != nil {
		return nil, err
	}
	return &v, nil
}

// Request is a consensus request voted on by a fixed validator set.
type Request struct {
	AgentID       string
	Requester     ed25519.PublicKey
	ActionType    string
	DataHash      [DataHashSize]byte
	Threshold     uint8
	ValidatorKeys []ed25519.PublicKey
	Approvals     uint8
	Rejections    uint8
	Status        uint8
	RequestedAt   int64
	FinalizedAt   int64
	Bump          uint8
}

func RequestFromAccount(s registry.Scanner) (*Request, error) {
	var r Request
	err := s.Scan(
		&r.AgentID,
		&r.Requester,
		&r.ActionType,
		&r.DataHash,
		&r.Threshold,
		&r.ValidatorKeys,
		&r.Approvals,
		&r.Rejections,
		&r.Status,
		&r.RequestedAt,
		&r.FinalizedAt,
		&r.Bump,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// HasValidator returns whether key may vote on the request.
func (r *Request) HasValidator(key ed25519.PublicKey) bool {
	for _, k := range r.ValidatorKeys {
		if k.Equal(key) {
			return true
		}
	}
	return false
}

type Vote struct {
	Consensus   ed25519.PublicKey
	Validator   ed25519.PublicKey
	RequestID   string
	Approve     bool
	EvidenceURI string
	VotedAt     int64
	Bump        uint8
}

func VoteFromAccount(s registry.Scanner) (*Vote, error) {
	var v Vote
	if err := s.Scan(&v.Consensus, &v.Validator, &v.RequestID, &v.Approve, &v.EvidenceURI, &v.VotedAt, &v.Bump); err != nil {
		return nil, err
	}
	return &v, nil
}
