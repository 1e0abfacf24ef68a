// Package consensus describes the federated consensus program (spl_fcp).
package consensus

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const (
	ProgramName = "spl_fcp"

	DevnetProgramID   = "A4Ee2KoPz4y9XyEBta9DyXvKPnWy2GvprDzfVF1PnjtR"
	LocalnetProgramID = "66rnQD9SGyEruS7pUemPBaakKZFGFWmQwrDU46dq5ACi"
)

const (
	MaxAgentIDLength       = 32
	MaxValidatorNameLength = 64
	MaxActionTypeLength    = 64
	MaxRequestIDLength     = 64
	MaxURILength           = 200
	MaxValidators          = 10
	DataHashSize           = 32

	// FinalizeTimeoutSeconds must have strictly elapsed since the request
	// before finalize_consensus is accepted.
	FinalizeTimeoutSeconds = 86400
)

const (
	InitializeConfig  = "initialize_config"
	RegisterValidator = "register_validator"
	RequestConsensus  = "request_consensus"
	CastVote          = "cast_vote"
	FinalizeConsensus = "finalize_consensus"
)

const (
	LayoutGlobalConfig      = "GlobalConfig"
	LayoutValidatorRegistry = "ValidatorRegistry"
	LayoutConsensusRequest  = "ConsensusRequest"
	LayoutVoteRecord        = "VoteRecord"
)

const (
	AddressConfig    = "config"
	AddressValidator = "validator"
	AddressConsensus = "consensus"
	AddressVote      = "vote"
)

const (
	ParamAgentID    = "agent_id"
	ParamActionType = "action_type"
	ParamRequester  = "requester"
	ParamOwner      = "owner"
	ParamPayer      = "payer"
)

// Status values of ConsensusRequest.status.
const (
	StatusPending uint8 = iota
	StatusApproved
	StatusRejected
)

func New() *registry.Program {
	return &registry.Program{
		Name:    ProgramName,
		Variant: registry.VariantConsensus,
		ProgramIDs: map[registry.Cluster]ed25519.PublicKey{
			registry.ClusterDevnet:   registry.MustPublicKey(DevnetProgramID),
			registry.ClusterLocalnet: registry.MustPublicKey(LocalnetProgramID),
		},
		Addresses: []registry.SeedTemplate{
			registry.NewSeedTemplate(AddressConfig, registry.Literal("config")),
			registry.NewSeedTemplate(AddressValidator, registry.Literal("validator"), registry.Param(ParamOwner)),
			registry.NewSeedTemplate(
				AddressConsensus,
				registry.Literal("consensus"),
				registry.Param(ParamAgentID),
				registry.Param(ParamActionType),
				registry.Param(ParamRequester),
			),
			registry.NewSeedTemplate(
				AddressVote,
				registry.Literal("vote"),
				registry.AddressOf(AddressConsensus),
				registry.AddressOf(AddressValidator),
			),
		},
		Instructions: []registry.InstructionSchema{
			{
				Name: InitializeConfig,
				Args: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "min_stake_for_validator", Type: anchor.U64},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamPayer, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: RegisterValidator,
				Args: []anchor.Field{
					{Name: "validator_name", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("validator", AddressValidator, true),
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamOwner, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: RequestConsensus,
				Args: []anchor.Field{
					{Name: ParamAgentID, Type: anchor.String},
					{Name: ParamActionType, Type: anchor.String},
					{Name: "data_hash", Type: anchor.FixedBytes(DataHashSize)},
					{Name: "threshold", Type: anchor.U8},
					{Name: "validator_keys", Type: anchor.Vec(anchor.PublicKey)},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("consensus", AddressConsensus, true),
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamRequester, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: CastVote,
				Args: []anchor.Field{
					{Name: "request_id", Type: anchor.String},
					{Name: "approve", Type: anchor.Bool},
					{Name: "evidence_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("vote", AddressVote, true),
					registry.Derived("consensus", AddressConsensus, true),
					registry.Derived("validator", AddressValidator, true),
					registry.Signer(ParamOwner, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: FinalizeConsensus,
				Accounts: []registry.AccountSlot{
					registry.Derived("consensus", AddressConsensus, true),
				},
			},
		},
		Layouts: []registry.AccountLayout{
			{
				Name: LayoutGlobalConfig,
				Fields: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "min_stake_for_validator", Type: anchor.U64},
					{Name: "total_validators", Type: anchor.U64},
					{Name: "total_consensus_requests", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 65,
			},
			{
				Name: LayoutValidatorRegistry,
				Fields: []anchor.Field{
					{Name: "owner", Type: anchor.PublicKey},
					{Name: "name", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
					{Name: "stake_amount", Type: anchor.U64},
					{Name: "is_active", Type: anchor.Bool},
					{Name: "total_votes", Type: anchor.U64},
					{Name: "registered_at", Type: anchor.I64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 338,
			},
			{
				Name: LayoutConsensusRequest,
				Fields: []anchor.Field{
					{Name: "agent_id", Type: anchor.String},
					{Name: "requester", Type: anchor.PublicKey},
					{Name: "action_type", Type: anchor.String},
					{Name: "data_hash", Type: anchor.FixedBytes(DataHashSize)},
					{Name: "threshold", Type: anchor.U8},
					{Name: "validator_keys", Type: anchor.Vec(anchor.PublicKey)},
					{Name: "approvals", Type: anchor.U8},
					{Name: "rejections", Type: anchor.U8},
					{Name: "status", Type: anchor.U8},
					{Name: "requested_at", Type: anchor.I64},
					{Name: "finalized_at", Type: anchor.I64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 521,
			},
			{
				Name: LayoutVoteRecord,
				Fields: []anchor.Field{
					{Name: "consensus", Type: anchor.PublicKey},
					{Name: "validator", Type: anchor.PublicKey},
					{Name: "request_id", Type: anchor.String},
					{Name: "approve", Type: anchor.Bool},
					{Name: "evidence_uri", Type: anchor.String},
					{Name: "voted_at", Type: anchor.I64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 354,
			},
		},
		Errors: registry.NewProgramErrors(
			[2]string{"AgentIdTooLong", "Agent ID too long (max 32 chars)"},
			[2]string{"ValidatorNameTooLong", "Validator name too long (max 64 chars)"},
			[2]string{"ActionTypeTooLong", "Action type too long (max 64 chars)"},
			[2]string{"RequestIdTooLong", "Request ID too long (max 64 chars)"},
			[2]string{"MetadataUriTooLong", "Metadata URI too long (max 200 chars)"},
			[2]string{"TooManyValidators", "Too many validators (max 10)"},
			[2]string{"InvalidThreshold", "Invalid threshold"},
			[2]string{"ValidatorNotActive", "Validator is not active"},
			[2]string{"ValidatorNotInList", "Validator not in consensus validator list"},
			[2]string{"ConsensusAlreadyFinalized", "Consensus already finalized"},
			[2]string{"ConsensusNotTimedOut", "Consensus not timed out yet (24h)"},
		),
		Limits: []registry.Limit{
			{Instruction: RegisterValidator, Arg: "validator_name", Max: MaxValidatorNameLength, ProgramError: "ValidatorNameTooLong"},
			{Instruction: RegisterValidator, Arg: "metadata_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: RequestConsensus, Arg: ParamAgentID, Max: MaxAgentIDLength, ProgramError: "AgentIdTooLong"},
			{Instruction: RequestConsensus, Arg: ParamActionType, Max: MaxActionTypeLength, ProgramError: "ActionTypeTooLong"},
			{Instruction: RequestConsensus, Arg: "validator_keys", Max: MaxValidators, ProgramError: "TooManyValidators"},
			{Instruction: CastVote, Arg: "request_id", Max: MaxRequestIDLength, ProgramError: "RequestIdTooLong"},
			{Instruction: CastVote, Arg: "evidence_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
		},
	}
}
