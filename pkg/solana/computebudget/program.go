package compute_budget

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	commandSetComputeUnitLimit uint8 = 2
	commandSetComputeUnitPrice uint8 = 3
)

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(computeUnitPrice uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], computeUnitPrice)

	return solana.NewInstruction(ProgramKey, data)
}

// Budget returns the instructions for the provided limit and price. Zero
// values are omitted.
func Budget(computeUnitLimit uint32, computeUnitPrice uint64) []solana.Instruction {
	var instructions []solana.Instruction
	if computeUnitLimit > 0 {
		instructions = append(instructions, SetComputeUnitLimit(computeUnitLimit))
	}
	if computeUnitPrice > 0 {
		instructions = append(instructions, SetComputeUnitPrice(computeUnitPrice))
	}
	return instructions
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	if len(data) != 5 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}

	if data[0] != commandSetComputeUnitLimit {
		return 0, errors.New("invalid instruction")
	}

	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	if len(data) != 9 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}

	if data[0] != commandSetComputeUnitPrice {
		return 0, errors.New("invalid instruction")
	}

	return binary.LittleEndian.Uint64(data[1:]), nil
}
