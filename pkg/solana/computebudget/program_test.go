package compute_budget

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "ComputeBudget111111111111111111111111111111", base58.Encode(ProgramKey))
}

func TestBudget(t *testing.T) {
	assert.Empty(t, Budget(0, 0))

	instructions := Budget(200_000, 0)
	require.Len(t, instructions, 1)
	limit, err := ParseSetComputeUnitLimitIxnData(instructions[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, limit)

	instructions = Budget(200_000, 1_000)
	require.Len(t, instructions, 2)
	price, err := ParseSetComputeUnitPriceIxnData(instructions[1].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000, price)
	assert.Empty(t, instructions[1].Accounts)

	_, err = ParseSetComputeUnitLimitIxnData(instructions[1].Data)
	assert.Error(t, err)
	_, err = ParseSetComputeUnitPriceIxnData(instructions[0].Data)
	assert.Error(t, err)
}
