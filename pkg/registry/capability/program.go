// Package capability describes the agent capability program (spl_acp).
package capability

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const (
	ProgramName = "spl_acp"

	DevnetProgramID   = "FAnRqmauRE5vtk7ft3FWHicrKKRw3XwbxvYVxuaeRcCK"
	LocalnetProgramID = "52Ln3ibGw3saQ6QiERyW55dmo4SqmGX5CFSWBHqMjuMZ"
)

const (
	MaxAgentIDLength        = 32
	MaxCapabilityTypeLength = 64
	MaxVersionLength        = 16
	MaxURILength            = 200
)

const (
	InitializeConfig  = "initialize_config"
	DeclareCapability = "declare_capability"
	UpdateCapability  = "update_capability"
	RevokeCapability  = "revoke_capability"
)

const (
	LayoutGlobalConfig       = "GlobalConfig"
	LayoutCapabilityRegistry = "CapabilityRegistry"
)

const (
	AddressConfig     = "config"
	AddressCapability = "capability"
)

const (
	ParamAgentID        = "agent_id"
	ParamCapabilityType = "capability_type"
	ParamOwner          = "owner"
	ParamPayer          = "payer"
)

func New() *registry.Program {
	return &registry.Program{
		Name:    ProgramName,
		Variant: registry.VariantCapability,
		ProgramIDs: map[registry.Cluster]ed25519.PublicKey{
			registry.ClusterDevnet:   registry.MustPublicKey(DevnetProgramID),
			registry.ClusterLocalnet: registry.MustPublicKey(LocalnetProgramID),
		},
		Addresses: []registry.SeedTemplate{
			registry.NewSeedTemplate(AddressConfig, registry.Literal("config")),
			registry.NewSeedTemplate(
				AddressCapability,
				registry.Literal("capability"),
				registry.Param(ParamAgentID),
				registry.Param(ParamCapabilityType),
			),
		},
		Instructions: []registry.InstructionSchema{
			{
				Name: InitializeConfig,
				Args: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "registration_fee", Type: anchor.U64},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamPayer, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: DeclareCapability,
				Args: []anchor.Field{
					{Name: ParamAgentID, Type: anchor.String},
					{Name: ParamCapabilityType, Type: anchor.String},
					{Name: "version", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("capability", AddressCapability, true),
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamOwner, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: UpdateCapability,
				Args: []anchor.Field{
					{Name: "new_version", Type: anchor.String},
					{Name: "new_metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("capability", AddressCapability, true),
					registry.Signer(ParamOwner, false),
				},
			},
			{
				Name: RevokeCapability,
				Accounts: []registry.AccountSlot{
					registry.Derived("capability", AddressCapability, true),
					registry.Signer(ParamOwner, false),
				},
			},
		},
		Layouts: []registry.AccountLayout{
			{
				Name: LayoutGlobalConfig,
				Fields: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "registration_fee", Type: anchor.U64},
					{Name: "total_capabilities", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 57,
			},
			{
				Name: LayoutCapabilityRegistry,
				Fields: []anchor.Field{
					{Name: "agent_id", Type: anchor.String},
					{Name: "owner", Type: anchor.PublicKey},
					{Name: "capability_type", Type: anchor.String},
					{Name: "version", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
					{Name: "is_active", Type: anchor.Bool},
					{Name: "declared_at", Type: anchor.I64},
					{Name: "updated_at", Type: anchor.I64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 386,
			},
		},
		Errors: registry.NewProgramErrors(
			[2]string{"AgentIdTooLong", "Agent ID too long (max 32 chars)"},
			[2]string{"CapabilityTypeTooLong", "Capability type too long (max 64 chars)"},
			[2]string{"VersionTooLong", "Version string too long (max 16 chars)"},
			[2]string{"MetadataUriTooLong", "Metadata URI too long (max 200 chars)"},
			[2]string{"CapabilityNotActive", "Capability is not active"},
		),
		Limits: []registry.Limit{
			{Instruction: DeclareCapability, Arg: ParamAgentID, Max: MaxAgentIDLength, ProgramError: "AgentIdTooLong"},
			{Instruction: DeclareCapability, Arg: ParamCapabilityType, Max: MaxCapabilityTypeLength, ProgramError: "CapabilityTypeTooLong"},
			{Instruction: DeclareCapability, Arg: "version", Max: MaxVersionLength, ProgramError: "VersionTooLong"},
			{Instruction: DeclareCapability, Arg: "metadata_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: UpdateCapability, Arg: "new_version", Max: MaxVersionLength, ProgramError: "VersionTooLong"},
			{Instruction: UpdateCapability, Arg: "new_metadata_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
		},
	}
}
