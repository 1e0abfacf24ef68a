package instruction

import (
	"crypto/ed25519"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
	"github.com/noema-protocol/registry-client/pkg/solana/pda"
	"github.com/noema-protocol/registry-client/pkg/solana/system"
)

// Resolver turns the account slots of a schema into concrete account roles.
type Resolver struct {
	log     *logrus.Entry
	deriver pda.Deriver
}

func NewResolver(deriver pda.Deriver) *Resolver {
	return &Resolver{
		log:     logrus.StandardLogger().WithField("type", "instruction/resolver"),
		deriver: deriver,
	}
}

// Resolve returns the account roles of schema, in declaration order. Derived
// slots are computed from the program's seed templates, parameter slots are
// looked up in params.
func (r *Resolver) Resolve(programID ed25519.PublicKey, program *registry.Program, schema *registry.InstructionSchema, params Params) ([]AccountRole, error) {
	s := r.newSession(programID, program, params)

	roles := make([]AccountRole, len(schema.Accounts))
	for i, slot := range schema.Accounts {
		var address ed25519.PublicKey
		var err error

		switch slot.Source {
		case registry.SourceSystemProgram:
			address = system.ProgramKey
		case registry.SourceParam:
			address, err = params.PublicKey(slot.Ref)
		case registry.SourceDerived:
			var derived pda.Address
			derived, err = s.address(slot.Ref)
			address = derived.PublicKey
		default:
			err = &anchor.SchemaError{
				Kind:   anchor.InvalidTemplate,
				Name:   slot.Name,
				Detail: fmt.Sprintf("unknown account source %d", slot.Source),
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s: account %s", schema.Name, slot.Name)
		}

		roles[i] = AccountRole{
			Address:    address,
			IsSigner:   slot.IsSigner,
			IsWritable: slot.IsWritable,
		}
	}

	return roles, nil
}

// Address derives the address of the named seed template.
func (r *Resolver) Address(programID ed25519.PublicKey, program *registry.Program, template string, params Params) (pda.Address, error) {
	return r.newSession(programID, program, params).address(template)
}

// Instruction looks up the named instruction, checks program limits, resolves
// its accounts and builds it. Arguments are visible to seed templates by name,
// and params may supply the remaining values.
func (r *Resolver) Instruction(programID ed25519.PublicKey, program *registry.Program, name string, values []interface{}, params Params) (solana.Instruction, error) {
	schema, err := program.Instruction(name)
	if err != nil {
		return solana.Instruction{}, err
	}

	if len(values) != len(schema.Args) {
		return solana.Instruction{}, anchor.NewArityError(schema.Name, len(schema.Args), len(values))
	}

	if err := program.CheckLimits(schema, values); err != nil {
		return solana.Instruction{}, err
	}

	accounts, err := r.Resolve(programID, program, schema, NewParams(schema, values).Merge(params))
	if err != nil {
		return solana.Instruction{}, err
	}

	ix, err := Build(programID, schema, values, accounts)
	if err != nil {
		return solana.Instruction{}, err
	}

	r.log.WithFields(logrus.Fields{
		"method":      "Instruction",
		"program":     program.Name,
		"instruction": schema.Name,
		"accounts":    len(accounts),
	}).Trace("instruction built")

	return ix, nil
}

// session memoises derived addresses for one resolution, so templates that
// reference each other are derived once.
type session struct {
	deriver   pda.Deriver
	programID ed25519.PublicKey
	program   *registry.Program
	params    Params
	resolved  map[string]pda.Address
	visiting  map[string]bool
}

func (r *Resolver) newSession(programID ed25519.PublicKey, program *registry.Program, params Params) *session {
	return &session{
		deriver:   r.deriver,
		programID: programID,
		program:   program,
		params:    params,
		resolved:  make(map[string]pda.Address),
		visiting:  make(map[string]bool),
	}
}

func (s *session) address(name string) (pda.Address, error) {
	if addr, ok := s.resolved[name]; ok {
		return addr, nil
	}

	if s.visiting[name] {
		return pda.Address{}, &anchor.SchemaError{
			Kind:   anchor.InvalidTemplate,
			Name:   name,
			Detail: "cyclic address reference",
		}
	}

	template, ok := s.program.Address(name)
	if !ok {
		return pda.Address{}, &anchor.SchemaError{
			Kind:   anchor.InvalidTemplate,
			Name:   name,
			Detail: fmt.Sprintf("%s: unknown template", s.program.Name),
		}
	}

	s.visiting[name] = true
	defer delete(s.visiting, name)

	seeds := make([][]byte, len(template.Components))
	for i, c := range template.Components {
		switch c.Kind {
		case registry.SeedLiteral:
			seeds[i] = []byte(c.Value)
		case registry.SeedParam:
			seed, err := s.params.Seed(c.Value)
			if err != nil {
				return pda.Address{}, errors.Wrapf(err, "template %s", name)
			}
			seeds[i] = seed
		case registry.SeedAddress:
			ref, err := s.address(c.Value)
			if err != nil {
				return pda.Address{}, err
			}
			seeds[i] = ref.PublicKey
		default:
			return pda.Address{}, &anchor.SchemaError{
				Kind:   anchor.InvalidTemplate,
				Name:   name,
				Detail: fmt.Sprintf("unknown seed kind %d", c.Kind),
			}
		}
	}

	addr, err := s.deriver.Derive(s.programID, seeds...)
	if err != nil {
		return pda.Address{}, errors.Wrapf(err, "template %s", name)
	}

	s.resolved[name] = addr
	return addr, nil
}
