// Package identity describes the agent identity and reputation program
// (spl_8004).
package identity

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const (
	ProgramName = "spl_8004"

	DevnetProgramID   = "G8iYmvncvWsfHRrxZvKuPU6B2kcMj82Lpcf6og6SyMkW"
	LocalnetProgramID = "Bb95aVcDasGfZ5HWE2aickWD86aCiUncZVKEJoBRZraG"
)

// Program limits
const (
	MaxAgentIDLength      = 64
	MaxMetadataURILength  = 200
	MaxEvidenceURILength  = 200
	MaxReasonLength       = 200
	MaxTaskIDLength       = 32
	MaxTitleLength        = 64
	MaxDescriptionLength  = 256
	MaxCategoryLength     = 32
	MaxBidMessageLength   = 128
	MaxCommissionRate     = 1000
	MaxScoreDelta         = 500
	InitialReputation     = 5000
	MaxReputationScore    = 10000
	TaskHashSize          = 32
	DefaultCommissionRate = 300
)

// Instructions
const (
	InitializeConfig = "initialize_config"
	RegisterAgent    = "register_agent"
	UpdateMetadata   = "update_metadata"
	SubmitValidation = "submit_validation"
	UpdateReputation = "update_reputation"
	DeactivateAgent  = "deactivate_agent"
	ClaimRewards     = "claim_rewards"
	StakeValidator   = "stake_validator"
	UnstakeValidator = "unstake_validator"
	AssignReputation = "assign_reputation"
	PublishTask      = "publish_task"
	SubmitBid        = "submit_bid"
	AcceptBid        = "accept_bid"
)

// Account layouts
const (
	LayoutGlobalConfig       = "GlobalConfig"
	LayoutIdentityRegistry   = "IdentityRegistry"
	LayoutReputationRegistry = "ReputationRegistry"
	LayoutRewardPool         = "RewardPool"
	LayoutValidator          = "Validator"
	LayoutValidationRegistry = "ValidationRegistry"
	LayoutTaskRegistry       = "TaskRegistry"
	LayoutTaskBid            = "TaskBid"
)

// Seed templates
const (
	AddressConfig            = "config"
	AddressIdentity          = "identity"
	AddressReputation        = "reputation"
	AddressRewardPool        = "reward_pool"
	AddressValidator         = "validator"
	AddressValidation        = "validation"
	AddressTask              = "task"
	AddressPublisherIdentity = "publisher_identity"
	AddressBidderIdentity    = "bidder_identity"
	AddressBid               = "bid"
)

// Parameters referenced by seed templates and account slots, in addition to
// the instruction arguments.
const (
	ParamAgentID            = "agent_id"
	ParamTaskHash           = "task_hash"
	ParamOwner              = "owner"
	ParamAuthority          = "authority"
	ParamValidator          = "validator"
	ParamValidatorAuthority = "validator_authority"
	ParamAgent              = "agent"
	ParamPublisher          = "publisher"
	ParamBidder             = "bidder"
	ParamTask               = "task"
	ParamBid                = "bid"
	ParamTreasury           = "treasury"
)

// Status values of TaskRegistry.status and TaskBid.status.
const (
	TaskStatusOpen uint8 = iota
	TaskStatusAssigned
	TaskStatusInProgress
	TaskStatusUnderReview
	TaskStatusCompleted
	TaskStatusCancelled
)

const (
	BidStatusPending uint8 = iota
	BidStatusAccepted
	BidStatusRejected
)

// New returns the program description.
func New() *registry.Program {
	return &registry.Program{
		Name:    ProgramName,
		Variant: registry.VariantIdentity,
		ProgramIDs: map[registry.Cluster]ed25519.PublicKey{
			registry.ClusterDevnet:   registry.MustPublicKey(DevnetProgramID),
			registry.ClusterLocalnet: registry.MustPublicKey(LocalnetProgramID),
		},
		Addresses: []registry.SeedTemplate{
			registry.NewSeedTemplate(AddressConfig, registry.Literal("config")),
			registry.NewSeedTemplate(AddressIdentity, registry.Literal("identity"), registry.Param(ParamAgentID)),
			registry.NewSeedTemplate(AddressReputation, registry.Literal("reputation"), registry.Param(ParamAgentID)),
			registry.NewSeedTemplate(AddressRewardPool, registry.Literal("reward_pool"), registry.Param(ParamAgentID)),
			registry.NewSeedTemplate(AddressValidator, registry.Literal("validator"), registry.Param(ParamValidatorAuthority)),
			registry.NewSeedTemplate(AddressValidation, registry.Literal("validation"), registry.Param(ParamAgentID), registry.Param(ParamTaskHash)),
			registry.NewSeedTemplate(AddressTask, registry.Literal("task"), registry.Param("task_id")),
			registry.NewSeedTemplate(AddressPublisherIdentity, registry.Literal("identity"), registry.Param(ParamPublisher)),
			registry.NewSeedTemplate(AddressBidderIdentity, registry.Literal("identity"), registry.Param(ParamBidder)),
			registry.NewSeedTemplate(AddressBid, registry.Literal("bid"), registry.Param(ParamTask), registry.Param(ParamBidder)),
		},
		Instructions: []registry.InstructionSchema{
			{
				Name: InitializeConfig,
				Args: []anchor.Field{
					{Name: "commission_rate", Type: anchor.U16},
					{Name: "treasury", Type: anchor.PublicKey},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamAuthority, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: RegisterAgent,
				Args: []anchor.Field{
					{Name: ParamAgentID, Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("identity", AddressIdentity, true),
					registry.Derived("reputation", AddressReputation, true),
					registry.Derived("reward_pool", AddressRewardPool, true),
					registry.Signer(ParamOwner, true),
					registry.Derived("config", AddressConfig, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: UpdateMetadata,
				Args: []anchor.Field{
					{Name: "new_metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("identity", AddressIdentity, true),
					registry.Signer(ParamOwner, false),
				},
			},
			{
				Name: SubmitValidation,
				Args: []anchor.Field{
					{Name: ParamTaskHash, Type: anchor.FixedBytes(TaskHashSize)},
					{Name: "approved", Type: anchor.Bool},
					{Name: "evidence_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("validation", AddressValidation, true),
					registry.Derived("identity", AddressIdentity, false),
					registry.Signer(ParamValidator, true),
					registry.Derived("config", AddressConfig, true),
					registry.Account(ParamTreasury, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: UpdateReputation,
				Accounts: []registry.AccountSlot{
					registry.Derived("reputation", AddressReputation, true),
					registry.Derived("validation", AddressValidation, false),
					registry.Signer(ParamAuthority, false),
				},
			},
			{
				Name: DeactivateAgent,
				Accounts: []registry.AccountSlot{
					registry.Derived("identity", AddressIdentity, true),
					registry.Signer(ParamOwner, false),
				},
			},
			{
				Name: ClaimRewards,
				Accounts: []registry.AccountSlot{
					registry.Derived("reward_pool", AddressRewardPool, true),
					registry.Signer(ParamAgent, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: StakeValidator,
				Args: []anchor.Field{
					{Name: "amount", Type: anchor.U64},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("config", AddressConfig, true),
					registry.Derived("validator", AddressValidator, true),
					registry.SignerFrom("user", ParamValidatorAuthority, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: UnstakeValidator,
				Args: []anchor.Field{
					{Name: "amount", Type: anchor.U64},
				},
				Accounts: []registry.AccountSlot{
					registry.SignerFrom("user", ParamValidatorAuthority, true),
					registry.Derived("validator", AddressValidator, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: AssignReputation,
				Args: []anchor.Field{
					{Name: "score_delta", Type: anchor.I64},
					{Name: "reason", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("reputation", AddressReputation, true),
					registry.Derived("agent", AddressIdentity, false),
					registry.Derived("validator", AddressValidator, false),
					registry.Signer(ParamValidatorAuthority, false),
				},
			},
			{
				Name: PublishTask,
				Args: []anchor.Field{
					{Name: "task_id", Type: anchor.String},
					{Name: "title", Type: anchor.String},
					{Name: "description", Type: anchor.String},
					{Name: "budget", Type: anchor.U64},
					{Name: "category", Type: anchor.String},
					{Name: "deadline", Type: anchor.Option(anchor.I64)},
				},
				Accounts: []registry.AccountSlot{
					registry.Signer(ParamPublisher, true),
					registry.Derived("task_registry", AddressTask, true),
					registry.Derived("identity", AddressPublisherIdentity, false),
					registry.SystemProgram(),
				},
			},
			{
				Name: SubmitBid,
				Args: []anchor.Field{
					{Name: "bid_seed", Type: anchor.String},
					{Name: "amount", Type: anchor.U64},
					{Name: "estimated_duration", Type: anchor.I64},
					{Name: "message", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Signer(ParamBidder, true),
					registry.Derived("bid", AddressBid, true),
					registry.Account(ParamTask, true),
					registry.Derived("bidder_identity", AddressBidderIdentity, false),
					registry.SystemProgram(),
				},
			},
			{
				Name: AcceptBid,
				Accounts: []registry.AccountSlot{
					registry.Signer(ParamPublisher, true),
					registry.Account(ParamTask, true),
					registry.Account(ParamBid, true),
					registry.Derived("agent_identity", AddressBidderIdentity, false),
				},
			},
		},
		Layouts: []registry.AccountLayout{
			{
				Name: LayoutGlobalConfig,
				Fields: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "treasury", Type: anchor.PublicKey},
					{Name: "commission_rate", Type: anchor.U16},
					{Name: "total_agents", Type: anchor.U64},
					{Name: "total_validations", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 99,
			},
			{
				Name: LayoutIdentityRegistry,
				Fields: []anchor.Field{
					{Name: "owner", Type: anchor.PublicKey},
					{Name: "agent_id", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
					{Name: "created_at", Type: anchor.I64},
					{Name: "updated_at", Type: anchor.I64},
					{Name: "is_active", Type: anchor.Bool},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 338,
			},
			{
				Name: LayoutReputationRegistry,
				Fields: []anchor.Field{
					{Name: "agent", Type: anchor.PublicKey},
					{Name: "score", Type: anchor.U64},
					{Name: "total_tasks", Type: anchor.U64},
					{Name: "successful_tasks", Type: anchor.U64},
					{Name: "failed_tasks", Type: anchor.U64},
					{Name: "last_updated", Type: anchor.I64},
					{Name: "stake_amount", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 89,
			},
			{
				Name: LayoutRewardPool,
				Fields: []anchor.Field{
					{Name: "agent", Type: anchor.PublicKey},
					{Name: "claimable_amount", Type: anchor.U64},
					{Name: "last_claim", Type: anchor.I64},
					{Name: "total_claimed", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 73,
			},
			{
				Name: LayoutValidator,
				Fields: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "staked_amount", Type: anchor.U64},
					{Name: "is_active", Type: anchor.Bool},
					{Name: "last_stake_timestamp", Type: anchor.I64},
					{Name: "total_validations", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 74,
			},
			{
				Name: LayoutValidationRegistry,
				Fields: []anchor.Field{
					{Name: "agent", Type: anchor.PublicKey},
					{Name: "validator", Type: anchor.PublicKey},
					{Name: "task_hash", Type: anchor.FixedBytes(TaskHashSize)},
					{Name: "approved", Type: anchor.Bool},
					{Name: "timestamp", Type: anchor.I64},
					{Name: "evidence_uri", Type: anchor.String},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 326,
			},
			{
				Name: LayoutTaskRegistry,
				Fields: []anchor.Field{
					{Name: "task_id", Type: anchor.String},
					{Name: "publisher", Type: anchor.PublicKey},
					{Name: "title", Type: anchor.String},
					{Name: "description", Type: anchor.String},
					{Name: "budget", Type: anchor.U64},
					{Name: "category", Type: anchor.String},
					{Name: "status", Type: anchor.U8},
					{Name: "assigned_agent", Type: anchor.Option(anchor.PublicKey)},
					{Name: "created_at", Type: anchor.I64},
					{Name: "deadline", Type: anchor.Option(anchor.I64)},
					{Name: "completed_at", Type: anchor.Option(anchor.I64)},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 509,
			},
			{
				Name: LayoutTaskBid,
				Fields: []anchor.Field{
					{Name: "task", Type: anchor.PublicKey},
					{Name: "bidder", Type: anchor.PublicKey},
					{Name: "amount", Type: anchor.U64},
					{Name: "estimated_duration", Type: anchor.I64},
					{Name: "message", Type: anchor.String},
					{Name: "created_at", Type: anchor.I64},
					{Name: "status", Type: anchor.U8},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 230,
			},
		},
		Errors: registry.NewProgramErrors(
			[2]string{"AgentIdTooLong", "Agent ID exceeds maximum length of 64 characters"},
			[2]string{"MetadataUriTooLong", "Metadata URI exceeds maximum length of 200 characters"},
			[2]string{"EvidenceUriTooLong", "Evidence URI exceeds maximum length of 200 characters"},
			[2]string{"AgentNotActive", "Agent is not active"},
			[2]string{"Unauthorized", "Unauthorized: caller is not the agent owner"},
			[2]string{"InvalidReputationScore", "Invalid reputation score"},
			[2]string{"ValidationAlreadyExists", "Validation already exists for this task hash"},
			[2]string{"InsufficientReputation", "Insufficient reputation score for this action"},
			[2]string{"InvalidCommissionRate", "Commission rate exceeds maximum allowed (10%)"},
			[2]string{"RewardClaimTooEarly", "Reward claim too early, must wait 24 hours"},
			[2]string{"NoRewardsAvailable", "No rewards available to claim"},
			[2]string{"ArithmeticOverflow", "Arithmetic overflow"},
			[2]string{"AgentAlreadyRegistered", "Agent already registered"},
			[2]string{"ValidatorNotActive", "Validator is not active or doesn't meet minimum stake"},
			[2]string{"InsufficientStake", "Insufficient stake amount"},
			[2]string{"ReasonTooLong", "Reason text exceeds maximum length of 200 characters"},
			[2]string{"InvalidScoreDelta", "Invalid score delta: must be between -500 and +500"},
			[2]string{"TaskIdTooLong", "Task ID is too long (max 32 chars)"},
			[2]string{"TitleTooLong", "Title is too long (max 64 chars)"},
			[2]string{"DescriptionTooLong", "Description is too long (max 256 chars)"},
			[2]string{"CategoryTooLong", "Category is too long (max 32 chars)"},
			[2]string{"InvalidBudget", "Budget must be greater than 0"},
			[2]string{"TaskNotOpen", "Task is not open for bidding"},
			[2]string{"InvalidBidAmount", "Bid amount must be > 0 and <= task budget"},
			[2]string{"MessageTooLong", "Message is too long (max 128 chars)"},
			[2]string{"NotTaskPublisher", "Only task publisher can accept bids"},
			[2]string{"BidTaskMismatch", "Bid does not match task"},
			[2]string{"BidNotPending", "Bid is not pending"},
		),
		Limits: []registry.Limit{
			{Instruction: RegisterAgent, Arg: ParamAgentID, Max: MaxAgentIDLength, ProgramError: "AgentIdTooLong"},
			{Instruction: RegisterAgent, Arg: "metadata_uri", Max: MaxMetadataURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: UpdateMetadata, Arg: "new_metadata_uri", Max: MaxMetadataURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: SubmitValidation, Arg: "evidence_uri", Max: MaxEvidenceURILength, ProgramError: "EvidenceUriTooLong"},
			{Instruction: AssignReputation, Arg: "reason", Max: MaxReasonLength, ProgramError: "ReasonTooLong"},
			{Instruction: PublishTask, Arg: "task_id", Max: MaxTaskIDLength, ProgramError: "TaskIdTooLong"},
			{Instruction: PublishTask, Arg: "title", Max: MaxTitleLength, ProgramError: "TitleTooLong"},
			{Instruction: PublishTask, Arg: "description", Max: MaxDescriptionLength, ProgramError: "DescriptionTooLong"},
			{Instruction: PublishTask, Arg: "category", Max: MaxCategoryLength, ProgramError: "CategoryTooLong"},
			{Instruction: SubmitBid, Arg: "message", Max: MaxBidMessageLength, ProgramError: "MessageTooLong"},
		},
	}
}
