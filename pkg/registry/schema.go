package registry

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

// Variant names one of the registry programs.
type Variant string

const (
	VariantIdentity    Variant = "identity"
	VariantAttestation Variant = "attestation"
	VariantConsensus   Variant = "consensus"
	VariantCapability  Variant = "capability"
)

// Cluster is a Solana cluster a program is deployed to.
type Cluster string

const (
	ClusterLocalnet Cluster = "localnet"
	ClusterDevnet   Cluster = "devnet"
	ClusterTestnet  Cluster = "testnet"
	ClusterMainnet  Cluster = "mainnet-beta"
)

func ParseCluster(s string) (Cluster, error) {
	switch strings.ToLower(s) {
	case "localnet", "localhost", "local":
		return ClusterLocalnet, nil
	case "devnet":
		return ClusterDevnet, nil
	case "testnet":
		return ClusterTestnet, nil
	case "mainnet-beta", "mainnet":
		return ClusterMainnet, nil
	}
	return "", errors.Errorf("unknown cluster: %q", s)
}

type SeedKind uint8

const (
	// SeedLiteral is a fixed UTF-8 tag such as "identity".
	SeedLiteral SeedKind = iota

	// SeedParam is a caller or argument value: strings are used as UTF-8
	// bytes, public keys and byte arrays as raw bytes.
	SeedParam

	// SeedAddress is the derived address of another template of the same
	// program.
	SeedAddress
)

type SeedComponent struct {
	Kind  SeedKind
	Value string
}

func Literal(tag string) SeedComponent {
	return SeedComponent{Kind: SeedLiteral, Value: tag}
}

func Param(name string) SeedComponent {
	return SeedComponent{Kind: SeedParam, Value: name}
}

func AddressOf(template string) SeedComponent {
	return SeedComponent{Kind: SeedAddress, Value: template}
}

func (c SeedComponent) String() string {
	switch c.Kind {
	case SeedLiteral:
		return fmt.Sprintf("%q", c.Value)
	case SeedParam:
		return c.Value
	default:
		return "&" + c.Value
	}
}

// SeedTemplate describes how the seeds of a program derived address are
// assembled.
type SeedTemplate struct {
	Name       string
	Components []SeedComponent
}

func NewSeedTemplate(name string, components ...SeedComponent) SeedTemplate {
	return SeedTemplate{Name: name, Components: components}
}

func (t SeedTemplate) String() string {
	parts := make([]string, len(t.Components))
	for i, c := range t.Components {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s[%s]", t.Name, strings.Join(parts, ", "))
}

type AccountSource uint8

const (
	// SourceParam takes the address from the caller parameter named Ref.
	SourceParam AccountSource = iota

	// SourceDerived derives the address from the seed template named Ref.
	SourceDerived

	// SourceSystemProgram is the system program.
	SourceSystemProgram
)

// AccountSlot is one entry of an instruction's ordered account list.
type AccountSlot struct {
	Name       string
	Source     AccountSource
	Ref        string
	IsSigner   bool
	IsWritable bool
}

// Derived is a program derived account.
func Derived(name, template string, writable bool) AccountSlot {
	return AccountSlot{Name: name, Source: SourceDerived, Ref: template, IsWritable: writable}
}

// Signer is a caller supplied account that signs the transaction.
func Signer(name string, writable bool) AccountSlot {
	return AccountSlot{Name: name, Source: SourceParam, Ref: name, IsSigner: true, IsWritable: writable}
}

// Account is a caller supplied account that does not sign.
func Account(name string, writable bool) AccountSlot {
	return AccountSlot{Name: name, Source: SourceParam, Ref: name, IsWritable: writable}
}

// SignerFrom is a signing account whose address is the caller parameter
// named param.
func SignerFrom(name, param string, writable bool) AccountSlot {
	return AccountSlot{Name: name, Source: SourceParam, Ref: param, IsSigner: true, IsWritable: writable}
}

func SystemProgram() AccountSlot {
	return AccountSlot{Name: "system_program", Source: SourceSystemProgram}
}

// InstructionSchema is the declarative description of an instruction:
// ordered typed arguments and ordered account roles.
type InstructionSchema struct {
	Name     string
	Args     []anchor.Field
	Accounts []AccountSlot
}

func (s *InstructionSchema) Discriminator() anchor.Discriminator {
	return anchor.InstructionDiscriminator(s.Name)
}

// Arg returns the argument with the provided name and its position.
func (s *InstructionSchema) Arg(name string) (anchor.Field, int, bool) {
	for i, f := range s.Args {
		if f.Name == name {
			return f, i, true
		}
	}
	return anchor.Field{}, -1, false
}

// AccountLayout is the field layout of an account type. Space is the number
// of bytes allocated for the account, discriminator included. Zero means the
// allocation is unknown.
type AccountLayout struct {
	Name   string
	Fields []anchor.Field
	Space  int
}

func (l *AccountLayout) Discriminator() anchor.Discriminator {
	return anchor.AccountDiscriminator(l.Name)
}

// Field returns the index of the named field.
func (l *AccountLayout) Field(name string) (int, bool) {
	for i, f := range l.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ProgramError is an error declared by a program, reported as a custom
// error code.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// NewProgramErrors numbers the names from anchor.ProgramErrorOffset in
// declaration order, as Anchor does.
func NewProgramErrors(entries ...[2]string) []ProgramError {
	errs := make([]ProgramError, len(entries))
	for i, e := range entries {
		errs[i] = ProgramError{
			Code: anchor.ProgramErrorOffset + uint32(i),
			Name: e[0],
			Msg:  e[1],
		}
	}
	return errs
}

// Program is the full description of one on-chain program.
type Program struct {
	Name         string
	Variant      Variant
	ProgramIDs   map[Cluster]ed25519.PublicKey
	Instructions []InstructionSchema
	Addresses    []SeedTemplate
	Layouts      []AccountLayout
	Errors       []ProgramError
	Limits       []Limit
}

func (p *Program) ProgramID(cluster Cluster) (ed25519.PublicKey, error) {
	id, ok := p.ProgramIDs[cluster]
	if !ok {
		return nil, &anchor.SchemaError{
			Kind:   anchor.UnknownProgram,
			Name:   p.Name,
			Detail: fmt.Sprintf("not deployed to %s", cluster),
		}
	}
	return id, nil
}

func (p *Program) Instruction(name string) (*InstructionSchema, error) {
	for i := range p.Instructions {
		if p.Instructions[i].Name == name {
			return &p.Instructions[i], nil
		}
	}
	return nil, &anchor.SchemaError{Kind: anchor.UnknownInstruction, Name: name, Detail: p.Name}
}

func (p *Program) Address(name string) (*SeedTemplate, bool) {
	for i := range p.Addresses {
		if p.Addresses[i].Name == name {
			return &p.Addresses[i], true
		}
	}
	return nil, false
}

func (p *Program) Layout(name string) (*AccountLayout, error) {
	for i := range p.Layouts {
		if p.Layouts[i].Name == name {
			return &p.Layouts[i], nil
		}
	}
	return nil, &anchor.SchemaError{Kind: anchor.UnknownLayout, Name: name, Detail: p.Name}
}

// LookupError returns the declared program error for a custom error code.
func (p *Program) LookupError(code uint32) (*ProgramError, bool) {
	for i := range p.Errors {
		if p.Errors[i].Code == code {
			return &p.Errors[i], true
		}
	}
	return nil, false
}

// Validate checks that names are unique and every template or slot
// reference resolves without cycles.
func (p *Program) Validate() error {
	if p.Name == "" {
		return errors.New("program name is required")
	}

	for cluster, id := range p.ProgramIDs {
		if len(id) != ed25519.PublicKeySize {
			return errors.Errorf("%s: invalid program id for %s", p.Name, cluster)
		}
	}

	templates := make(map[string]*SeedTemplate)
	for i := range p.Addresses {
		t := &p.Addresses[i]
		if _, exists := templates[t.Name]; exists {
			return invalidTemplate(p, t.Name, "duplicate template")
		}
		templates[t.Name] = t
	}

	for name := range templates {
		if err := checkTemplate(p, templates, name, map[string]bool{}); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, ix := range p.Instructions {
		if seen[ix.Name] {
			return invalidTemplate(p, ix.Name, "duplicate instruction")
		}
		seen[ix.Name] = true

		args := make(map[string]bool)
		for _, a := range ix.Args {
			if args[a.Name] {
				return invalidTemplate(p, ix.Name, fmt.Sprintf("duplicate argument %s", a.Name))
			}
			args[a.Name] = true
		}

		for _, slot := range ix.Accounts {
			switch slot.Source {
			case SourceDerived:
				if _, ok := templates[slot.Ref]; !ok {
					return invalidTemplate(p, ix.Name, fmt.Sprintf("account %s references unknown template %s", slot.Name, slot.Ref))
				}
				if slot.IsSigner {
					return invalidTemplate(p, ix.Name, fmt.Sprintf("derived account %s cannot sign", slot.Name))
				}
			case SourceParam:
				if slot.Ref == "" {
					return invalidTemplate(p, ix.Name, fmt.Sprintf("account %s has no parameter", slot.Name))
				}
			}
		}
	}

	layouts := make(map[string]bool)
	for _, l := range p.Layouts {
		if layouts[l.Name] {
			return invalidTemplate(p, l.Name, "duplicate layout")
		}
		layouts[l.Name] = true
	}

	codes := make(map[uint32]bool)
	for _, e := range p.Errors {
		if codes[e.Code] {
			return invalidTemplate(p, e.Name, fmt.Sprintf("duplicate error code %d", e.Code))
		}
		codes[e.Code] = true
	}

	return nil
}

func checkTemplate(p *Program, templates map[string]*SeedTemplate, name string, visiting map[string]bool) error {
	if visiting[name] {
		return invalidTemplate(p, name, "cyclic address reference")
	}

	t, ok := templates[name]
	if !ok {
		return invalidTemplate(p, name, "unknown template")
	}

	visiting[name] = true
	defer delete(visiting, name)

	for _, c := range t.Components {
		if c.Kind != SeedAddress {
			continue
		}
		if err := checkTemplate(p, templates, c.Value, visiting); err != nil {
			return err
		}
	}
	return nil
}

func invalidTemplate(p *Program, name, detail string) error {
	return &anchor.SchemaError{
		Kind:   anchor.InvalidTemplate,
		Name:   name,
		Detail: fmt.Sprintf("%s: %s", p.Name, detail),
	}
}

// MustPublicKey decodes a base58 public key, panicking on malformed input.
// It is meant for static program tables.
func MustPublicKey(s string) ed25519.PublicKey {
	b, err := base58.Decode(s)
	if err != nil || len(b) != ed25519.PublicKeySize {
		panic(fmt.Sprintf("invalid public key: %q", s))
	}
	return b
}

// Scanner copies the fields of a decoded account into dst, in layout order.
// A nil destination skips its field.
type Scanner interface {
	Scan(dst ...interface{}) error
}
