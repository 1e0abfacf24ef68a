package identity

import (
	"crypto/ed25519"
	"time"

	"github.com/noema-protocol/registry-client/pkg/registry"
)

type GlobalConfig struct {
	Authority        ed25519.PublicKey
	Treasury         ed25519.PublicKey
	CommissionRate   uint16
	TotalAgents      uint64
	TotalValidations uint64
	Bump             uint8
}

func GlobalConfigFromAccount(s registry.Scanner) (*GlobalConfig, error) {
	var c GlobalConfig
	if err := s.Scan(&c.Authority, &c.Treasury, &c.CommissionRate, &c.TotalAgents, &c.TotalValidations, &c.Bump); err != nil {
		return nil, err
	}
	return &c, nil
}

// Identity is the registration record of an agent.
type Identity struct {
	Owner       ed25519.PublicKey
	AgentID     string
	MetadataURI string
	CreatedAt   int64
	UpdatedAt   int64
	IsActive    bool
	Bump        uint8
}

func IdentityFromAccount(s registry.Scanner) (*Identity, error) {
	var i Identity
	if err := s.Scan(&i.Owner, &i.AgentID, &i.MetadataURI, &i.CreatedAt, &i.UpdatedAt, &i.IsActive, &i.Bump); err != nil {
		return nil, err
	}
	return &i, nil
}

func (i *Identity) CreatedTime() time.Time {
	return time.Unix(i.CreatedAt, 0)
}

func (i *Identity) UpdatedTime() time.Time {
	return time.Unix(i.UpdatedAt, 0)
}

type Reputation struct {
	Agent           ed25519.PublicKey
	Score           uint64
	TotalTasks      uint64
	SuccessfulTasks uint64
	FailedTasks     uint64
	LastUpdated     int64
	StakeAmount     uint64
	Bump            uint8
}

func ReputationFromAccount(s registry.Scanner) (*Reputation, error) {
	var r Reputation
	if err := s.Scan(&r.Agent, &r.Score, &r.TotalTasks, &r.SuccessfulTasks, &r.FailedTasks, &r.LastUpdated, &r.StakeAmount, &r.Bump); err != nil {
		return nil, err
	}
	return &r, nil
}

// SuccessRate is the share of successful tasks in basis points.
func (r *Reputation) SuccessRate() uint64 {
	if r.TotalTasks == 0 {
		return 0
	}
	return r.SuccessfulTasks * 10_000 / r.TotalTasks
}

type RewardPool struct {
	Agent           ed25519.PublicKey
	ClaimableAmount uint64
	LastClaim       int64
	TotalClaimed    uint64
	Bump            uint8
}

func RewardPoolFromAccount(s registry.Scanner) (*RewardPool, error) {
	var p RewardPool
	if err := s.Scan(&p.Agent, &p.ClaimableAmount, &p.LastClaim, &p.TotalClaimed, &p.Bump); err != nil {
		return nil, err
	}
	return &p, nil
}

type Validator struct {
	Authority          ed25519.PublicKey
	StakedAmount       uint64
	IsActive           bool
	LastStakeTimestamp int64
	TotalValidations   uint64
	Bump               uint8
}

func ValidatorFromAccount(s registry.Scanner) (*Validator, error) {
	var v Validator
	if err := s.Scan(&v.Authority, &v.StakedAmount, &v.IsActive, &v.LastStakeTimestamp, &v.TotalValidations, &v.Bump); err != nil {
		return nil, err
	}
	return &v, nil
}

type Validation struct {
	Agent       ed25519.PublicKey
	Validator   ed25519.PublicKey
	TaskHash    [TaskHashSize]byte
	Approved    bool
	Timestamp   int64
	EvidenceURI string
	Bump        uint8
}

func ValidationFromAccount(s registry.Scanner) (*Validation, error) {
	var v Validation
	if err := s.Scan(&v.Agent, &v.Validator, &v.TaskHash, &v.Approved, &v.Timestamp, &v.EvidenceURI, &v.Bump); err != nil {
		return nil, err
	}
	return &v, nil
}

type Task struct {
	TaskID        string
	Publisher     ed25519.PublicKey
	Title         string
	Description   string
	Budget        uint64
	Category      string
	Status        uint8
	AssignedAgent ed25519.PublicKey
	CreatedAt     int64
	Deadline      *int64
	CompletedAt   *int64
	Bump          uint8
}

func TaskFromAccount(s registry.Scanner) (*Task, error) {
	var t Task
	err := s.Scan(
		&t.TaskID,
		&t.Publisher,
		&t.Title,
		&t.Description,
		&t.Budget,
		&t.Category,
		&t.Status,
		&t.AssignedAgent,
		&t.CreatedAt,
		&t.Deadline,
		&t.CompletedAt,
		&t.Bump,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusOpen
}

type Bid struct {
	Task              ed25519.PublicKey
	Bidder            ed25519.PublicKey
	Amount            uint64
	EstimatedDuration int64
	Message           string
	CreatedAt         int64
	Status            uint8
	Bump              uint8
}

func BidFromAccount(s registry.Scanner) (*Bid, error) {
	var b Bid
	if err := s.Scan(&b.Task, &b.Bidder, &b.Amount, &b.EstimatedDuration, &b.Message, &b.CreatedAt, &b.Status, &b.Bump); err != nil {
		return nil, err
	}
	return &b, nil
}
