// Package instruction builds program instructions from registry schemas.
package instruction

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

// AccountRole is one entry of an instruction's account list.
type AccountRole struct {
	Address    ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

func (a AccountRole) String() string {
	var flags string
	if a.IsWritable {
		flags += "w"
	}
	if a.IsSigner {
		flags += "s"
	}
	if len(flags) == 0 {
		flags = "r"
	}
	return fmt.Sprintf("%s[%s]", base58.Encode(a.Address), flags)
}

func (a AccountRole) meta() solana.AccountMeta {
	if a.IsWritable {
		return solana.NewAccountMeta(a.Address, a.IsSigner)
	}
	return solana.NewReadonlyAccountMeta(a.Address, a.IsSigner)
}

// Build encodes values against the schema and attaches the accounts in the
// order given, with the flags given. Nothing is reordered or inferred.
func Build(programID ed25519.PublicKey, schema *registry.InstructionSchema, values []interface{}, accounts []AccountRole) (solana.Instruction, error) {
	if len(programID) != ed25519.PublicKeySize {
		return solana.Instruction{}, &anchor.SchemaError{
			Kind:   anchor.UnknownProgram,
			Name:   schema.Name,
			Detail: fmt.Sprintf("invalid program id length %d", len(programID)),
		}
	}

	if len(values) != len(schema.Args) {
		return solana.Instruction{}, anchor.NewArityError(schema.Name, len(schema.Args), len(values))
	}

	if len(schema.Accounts) > 0 && len(accounts) != len(schema.Accounts) {
		return solana.Instruction{}, &anchor.SchemaError{
			Kind:   anchor.ArityMismatch,
			Name:   schema.Name,
			Detail: fmt.Sprintf("expected %d accounts, got %d", len(schema.Accounts), len(accounts)),
		}
	}

	data, err := anchor.EncodeInstruction(schema.Name, schema.Args, values)
	if err != nil {
		return solana.Instruction{}, err
	}

	metas := make([]solana.AccountMeta, len(accounts))
	for i, a := range accounts {
		if len(a.Address) != ed25519.PublicKeySize {
			return solana.Instruction{}, &anchor.SchemaError{
				Kind:   anchor.MissingParam,
				Name:   schema.Name,
				Detail: fmt.Sprintf("account %d has an invalid address", i),
			}
		}
		metas[i] = a.meta()
	}

	return solana.NewInstruction(programID, data, metas...), nil
}
