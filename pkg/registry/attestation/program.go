// Package attestation describes the trust attestation program (spl_tap).
package attestation

import (
	"crypto/ed25519"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const (
	ProgramName = "spl_tap"

	DevnetProgramID   = "DTtjXcvxsKHnukZiLtaQ2dHJXC5HtUAwUa9WgsMd3So4"
	LocalnetProgramID = "4PXmkfGMdsKvjTmAwnTmyhxzNXCyHDXXLFcFZQjxobuT"
)

const (
	MaxAgentIDLength         = 32
	MaxAttestationTypeLength = 64
	MaxIssuerNameLength      = 64
	MaxURILength             = 200
	MaxReasonLength          = 200
	SignatureSize            = 64
)

const (
	InitializeConfig  = "initialize_config"
	RegisterIssuer    = "register_issuer"
	IssueAttestation  = "issue_attestation"
	RevokeAttestation = "revoke_attestation"
	VerifyAttestation = "verify_attestation"
)

const (
	LayoutGlobalConfig        = "GlobalConfig"
	LayoutIssuerRegistry      = "IssuerRegistry"
	LayoutAttestationRegistry = "AttestationRegistry"
)

const (
	AddressConfig      = "config"
	AddressIssuer      = "issuer"
	AddressAttestation = "attestation"
)

const (
	ParamAgentID         = "agent_id"
	ParamAttestationType = "attestation_type"
	ParamOwner           = "owner"
	ParamPayer           = "payer"
)

func New() *registry.Program {
	return &registry.Program{
		Name:    ProgramName,
		Variant: registry.VariantAttestation,
		ProgramIDs: map[registry.Cluster]ed25519.PublicKey{
			registry.ClusterDevnet:   registry.MustPublicKey(DevnetProgramID),
			registry.ClusterLocalnet: registry.MustPublicKey(LocalnetProgramID),
		},
		Addresses: []registry.SeedTemplate{
			registry.NewSeedTemplate(AddressConfig, registry.Literal("config")),
			registry.NewSeedTemplate(AddressIssuer, registry.Literal("issuer"), registry.Param(ParamOwner)),
			registry.NewSeedTemplate(
				AddressAttestation,
				registry.Literal("attestation"),
				registry.Param(ParamAgentID),
				registry.Param(ParamAttestationType),
				registry.AddressOf(AddressIssuer),
			),
		},
		Instructions: []registry.InstructionSchema{
			{
				Name: InitializeConfig,
				Args: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "min_stake_for_issuer", Type: anchor.U64},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamPayer, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: RegisterIssuer,
				Args: []anchor.Field{
					{Name: "issuer_name", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("issuer", AddressIssuer, true),
					registry.Derived("config", AddressConfig, true),
					registry.Signer(ParamOwner, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: IssueAttestation,
				Args: []anchor.Field{
					{Name: ParamAgentID, Type: anchor.String},
					{Name: ParamAttestationType, Type: anchor.String},
					{Name: "claims_uri", Type: anchor.String},
					{Name: "expires_at", Type: anchor.I64},
					{Name: "signature", Type: anchor.FixedBytes(SignatureSize)},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("attestation", AddressAttestation, true),
					registry.Derived("issuer", AddressIssuer, true),
					registry.Signer(ParamOwner, true),
					registry.SystemProgram(),
				},
			},
			{
				Name: RevokeAttestation,
				Args: []anchor.Field{
					{Name: "reason", Type: anchor.String},
				},
				Accounts: []registry.AccountSlot{
					registry.Derived("attestation", AddressAttestation, true),
					registry.Derived("issuer", AddressIssuer, false),
					registry.Signer(ParamOwner, false),
				},
			},
			{
				Name: VerifyAttestation,
				Accounts: []registry.AccountSlot{
					registry.Derived("attestation", AddressAttestation, false),
				},
			},
		},
		Layouts: []registry.AccountLayout{
			{
				Name: LayoutGlobalConfig,
				Fields: []anchor.Field{
					{Name: "authority", Type: anchor.PublicKey},
					{Name: "min_stake_for_issuer", Type: anchor.U64},
					{Name: "total_issuers", Type: anchor.U64},
					{Name: "total_attestations", Type: anchor.U64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 65,
			},
			{
				Name: LayoutIssuerRegistry,
				Fields: []anchor.Field{
					{Name: "owner", Type: anchor.PublicKey},
					{Name: "name", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
					{Name: "stake_amount", Type: anchor.U64},
					{Name: "is_active", Type: anchor.Bool},
					{Name: "total_attestations", Type: anchor.U64},
					{Name: "registered_at", Type: anchor.I64},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 338,
			},
			{
				Name: LayoutAttestationRegistry,
				Fields: []anchor.Field{
					{Name: "agent_id", Type: anchor.String},
					{Name: "issuer", Type: anchor.PublicKey},
					{Name: "attestation_type", Type: anchor.String},
					{Name: "claims_uri", Type: anchor.String},
					{Name: "issued_at", Type: anchor.I64},
					{Name: "expires_at", Type: anchor.I64},
					{Name: "signature", Type: anchor.FixedBytes(SignatureSize)},
					{Name: "is_revoked", Type: anchor.Bool},
					{Name: "bump", Type: anchor.U8},
				},
				Space: 430,
			},
		},
		Errors: registry.NewProgramErrors(
			[2]string{"AgentIdTooLong", "Agent ID too long (max 32 chars)"},
			[2]string{"IssuerNameTooLong", "Issuer name too long (max 64 chars)"},
			[2]string{"AttestationTypeTooLong", "Attestation type too long (max 64 chars)"},
			[2]string{"MetadataUriTooLong", "Metadata URI too long (max 200 chars)"},
			[2]string{"ReasonTooLong", "Reason too long (max 200 chars)"},
			[2]string{"IssuerNotActive", "Issuer is not active"},
			[2]string{"AttestationAlreadyRevoked", "Attestation already revoked"},
			[2]string{"UnauthorizedIssuer", "Unauthorized issuer"},
		),
		Limits: []registry.Limit{
			{Instruction: RegisterIssuer, Arg: "issuer_name", Max: MaxIssuerNameLength, ProgramError: "IssuerNameTooLong"},
			{Instruction: RegisterIssuer, Arg: "metadata_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: IssueAttestation, Arg: ParamAgentID, Max: MaxAgentIDLength, ProgramError: "AgentIdTooLong"},
			{Instruction: IssueAttestation, Arg: ParamAttestationType, Max: MaxAttestationTypeLength, ProgramError: "AttestationTypeTooLong"},
			{Instruction: IssueAttestation, Arg: "claims_uri", Max: MaxURILength, ProgramError: "MetadataUriTooLong"},
			{Instruction: RevokeAttestation, Arg: "reason", Max: MaxReasonLength, ProgramError: "ReasonTooLong"},
		},
	}
}
