package agentregistry

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/instruction"
	"github.com/noema-protocol/registry-client/pkg/reader"
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/registry/attestation"
	"github.com/noema-protocol/registry-client/pkg/registry/capability"
	"github.com/noema-protocol/registry-client/pkg/registry/consensus"
	"github.com/noema-protocol/registry-client/pkg/registry/identity"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/submitter"
)

var (
	ErrUnknownClaimKind = errors.New("unknown claim kind")
	ErrInvalidThreshold = errors.New("threshold must be between 1 and the number of validators")
	ErrNoIdentityConfig = errors.New("identity program config is not initialized")
)

type RegisterEntityArgs struct {
	AgentID     string
	MetadataURI string
}

// RegisterEntity registers an agent identity owned by signer, creating its
// identity, reputation and reward pool accounts.
func (c *Client) RegisterEntity(ctx context.Context, args RegisterEntityArgs, signer submitter.Signer) (solana.Signature, error) {
	if signer == nil {
		return solana.Signature{}, ErrNoSigner
	}

	return c.Execute(
		ctx,
		registry.VariantIdentity,
		identity.RegisterAgent,
		[]interface{}{args.AgentID, args.MetadataURI},
		instruction.Params{identity.ParamOwner: signer.PublicKey()},
		signer,
	)
}

type ClaimKind uint8

const (
	ClaimAttestation ClaimKind = iota
	ClaimValidation
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimAttestation:
		return "attestation"
	case ClaimValidation:
		return "validation"
	}
	return "unknown"
}

// ClaimArgs describe a claim about an agent. Attestations are issued by a
// registered issuer; validations record a validator's verdict on a task.
type ClaimArgs struct {
	Kind    ClaimKind
	AgentID string

	// Attestation
	AttestationType string
	ClaimsURI       string
	ExpiresAt       time.Time
	Signature       [attestation.SignatureSize]byte

	// Validation. Treasury defaults to the one in the identity program's
	// config.
	TaskHash    [identity.TaskHashSize]byte
	Approved    bool
	EvidenceURI string
	Treasury    ed25519.PublicKey
}

// SubmitAttestationOrValidation issues an attestation, or submits a task
// validation, signed by signer.
func (c *Client) SubmitAttestationOrValidation(ctx context.Context, args ClaimArgs, signer submitter.Signer) (solana.Signature, error) {
	if signer == nil {
		return solana.Signature{}, ErrNoSigner
	}

	switch args.Kind {
	case ClaimAttestation:
		var expiresAt int64
		if !args.ExpiresAt.IsZero() {
			expiresAt = args.ExpiresAt.Unix()
		}

		return c.Execute(
			ctx,
			registry.VariantAttestation,
			attestation.IssueAttestation,
			[]interface{}{args.AgentID, args.AttestationType, args.ClaimsURI, expiresAt, args.Signature},
			instruction.Params{attestation.ParamOwner: signer.PublicKey()},
			signer,
		)
	case ClaimValidation:
		treasury := args.Treasury
		if len(treasury) == 0 {
			config, err := c.ReadIdentityConfig(ctx)
			if err != nil {
				return solana.Signature{}, err
			}
			if config == nil {
				return solana.Signature{}, ErrNoIdentityConfig
			}
			treasury = config.Treasury
		}

		return c.Execute(
			ctx,
			registry.VariantIdentity,
			identity.SubmitValidation,
			[]interface{}{args.TaskHash, args.Approved, args.EvidenceURI},
			instruction.Params{
				identity.ParamAgentID:   args.AgentID,
				identity.ParamValidator: signer.PublicKey(),
				identity.ParamTreasury:  treasury,
			},
			signer,
		)
	}
	return solana.Signature{}, errors.Wrapf(ErrUnknownClaimKind, "kind %d", args.Kind)
}

type DeclareCapabilityArgs struct {
	AgentID        string
	CapabilityType string
	Version        string
	MetadataURI    string
}

func (c *Client) DeclareCapability(ctx context.Context, args DeclareCapabilityArgs, signer submitter.Signer) (solana.Signature, error) {
	if signer == nil {
		return solana.Signature{}, ErrNoSigner
	}

	return c.Execute(
		ctx,
		registry.VariantCapability,
		capability.DeclareCapability,
		[]interface{}{args.AgentID, args.CapabilityType, args.Version, args.MetadataURI},
		instruction.Params{capability.ParamOwner: signer.PublicKey()},
		signer,
	)
}

type RequestConsensusArgs struct {
	AgentID    string
	ActionType string
	DataHash   [consensus.DataHashSize]byte
	Threshold  uint8
	Validators []ed25519.PublicKey
}

// RequestConsensus opens a consensus request, made by signer, that the
// listed validators vote on.
func (c *Client) RequestConsensus(ctx context.Context, args RequestConsensusArgs, signer submitter.Signer) (solana.Signature, error) {
	if signer == nil {
		return solana.Signature{}, ErrNoSigner
	}
	if args.Threshold == 0 || int(args.Threshold) > len(args.Validators) {
		return solana.Signature{}, errors.Wrapf(ErrInvalidThreshold, "threshold %d with %d validators", args.Threshold, len(args.Validators))
	}

	return c.Execute(
		ctx,
		registry.VariantConsensus,
		consensus.RequestConsensus,
		[]interface{}{args.AgentID, args.ActionType, args.DataHash, args.Threshold, args.Validators},
		instruction.Params{consensus.ParamRequester: signer.PublicKey()},
		signer,
	)
}

// CastVoteArgs identify a consensus request by the values it was opened
// with, since its address derives from them.
type CastVoteArgs struct {
	RequestID   string
	AgentID     string
	ActionType  string
	Requester   ed25519.PublicKey
	Approve     bool
	EvidenceURI string
}

// CastVote records the vote of the validator owned by signer.
func (c *Client) CastVote(ctx context.Context, args CastVoteArgs, signer submitter.Signer) (solana.Signature, error) {
	if signer == nil {
		return solana.Signature{}, ErrNoSigner
	}

	return c.Execute(
		ctx,
		registry.VariantConsensus,
		consensus.CastVote,
		[]interface{}{args.RequestID, args.Approve, args.EvidenceURI},
		instruction.Params{
			consensus.ParamAgentID:    args.AgentID,
			consensus.ParamActionType: args.ActionType,
			consensus.ParamRequester:  args.Requester,
			consensus.ParamOwner:      signer.PublicKey(),
		},
		signer,
	)
}

// ReadIdentityConfig reads the identity program's global config. A nil config
// is returned before the program is initialized.
func (c *Client) ReadIdentityConfig(ctx context.Context) (*identity.GlobalConfig, error) {
	record, err := c.read(ctx, registry.VariantIdentity, identity.LayoutGlobalConfig, identity.AddressConfig, nil)
	if err != nil || record == nil {
		return nil, err
	}
	return identity.GlobalConfigFromAccount(record)
}

// ReadRecord reads the identity registered under agentID. A nil identity and
// nil error are returned when the agent is not registered.
func (c *Client) ReadRecord(ctx context.Context, agentID string) (*identity.Identity, error) {
	record, err := c.read(
		ctx,
		registry.VariantIdentity,
		identity.LayoutIdentityRegistry,
		identity.AddressIdentity,
		instruction.Params{identity.ParamAgentID: agentID},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return identity.IdentityFromAccount(record)
}

// ReadRecords reads the identities of several agents concurrently. Entries
// for unregistered agents are nil.
func (c *Client) ReadRecords(ctx context.Context, agentIDs ...string) ([]*identity.Identity, error) {
	program, programID, err := c.Program(registry.VariantIdentity)
	if err != nil {
		return nil, err
	}

	layout, err := program.Layout(identity.LayoutIdentityRegistry)
	if err != nil {
		return nil, err
	}

	addresses := make([]ed25519.PublicKey, len(agentIDs))
	for i, id := range agentIDs {
		address, err := c.resolver.Address(programID, program, identity.AddressIdentity, instruction.Params{identity.ParamAgentID: id})
		if err != nil {
			return nil, errors.Wrapf(err, "agent %q", id)
		}
		addresses[i] = address.PublicKey
	}

	records, err := c.reader.ReadMany(ctx, layout, addresses, reader.WithOwner(programID))
	if err != nil {
		return nil, err
	}

	identities := make([]*identity.Identity, len(records))
	for i, record := range records {
		if record == nil {
			continue
		}
		if identities[i], err = identity.IdentityFromAccount(record); err != nil {
			return nil, err
		}
	}
	return identities, nil
}

func (c *Client) ReadReputation(ctx context.Context, agentID string) (*identity.Reputation, error) {
	record, err := c.read(
		ctx,
		registry.VariantIdentity,
		identity.LayoutReputationRegistry,
		identity.AddressReputation,
		instruction.Params{identity.ParamAgentID: agentID},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return identity.ReputationFromAccount(record)
}

// ReadValidation reads the validation of a task submitted for agentID.
func (c *Client) ReadValidation(ctx context.Context, agentID string, taskHash [identity.TaskHashSize]byte) (*identity.Validation, error) {
	record, err := c.read(
		ctx,
		registry.VariantIdentity,
		identity.LayoutValidationRegistry,
		identity.AddressValidation,
		instruction.Params{
			identity.ParamAgentID:  agentID,
			identity.ParamTaskHash: taskHash,
		},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return identity.ValidationFromAccount(record)
}

// ReadAttestation reads the attestation of attestationType issued for agentID
// by the issuer registered to issuerOwner.
func (c *Client) ReadAttestation(ctx context.Context, agentID, attestationType string, issuerOwner ed25519.PublicKey) (*attestation.Attestation, error) {
	record, err := c.read(
		ctx,
		registry.VariantAttestation,
		attestation.LayoutAttestationRegistry,
		attestation.AddressAttestation,
		instruction.Params{
			attestation.ParamAgentID:         agentID,
			attestation.ParamAttestationType: attestationType,
			attestation.ParamOwner:           issuerOwner,
		},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return attestation.AttestationFromAccount(record)
}

func (c *Client) ReadCapability(ctx context.Context, agentID, capabilityType string) (*capability.Capability, error) {
	record, err := c.read(
		ctx,
		registry.VariantCapability,
		capability.LayoutCapabilityRegistry,
		capability.AddressCapability,
		instruction.Params{
			capability.ParamAgentID:        agentID,
			capability.ParamCapabilityType: capabilityType,
		},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return capability.CapabilityFromAccount(record)
}

func (c *Client) ReadConsensusRequest(ctx context.Context, agentID, actionType string, requester ed25519.PublicKey) (*consensus.Request, error) {
	record, err := c.read(
		ctx,
		registry.VariantConsensus,
		consensus.LayoutConsensusRequest,
		consensus.AddressConsensus,
		instruction.Params{
			consensus.ParamAgentID:    agentID,
			consensus.ParamActionType: actionType,
			consensus.ParamRequester:  requester,
		},
	)
	if err != nil || record == nil {
		return nil, err
	}
	return consensus.RequestFromAccount(record)
}
