package memo

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana"
)

// ProgramKey is the address of the memo program.
//
// Current key: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
var ProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

var ErrNotMemo = errors.New("instruction is not a memo")

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/entrypoint.rs
func Instruction(data string) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte(data),
	)
}

// Decompile returns the text of the memo instruction at index.
func Decompile(m solana.Message, index int) (string, error) {
	if index < 0 || index >= len(m.Instructions) {
		return "", errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return "", ErrNotMemo
	}

	return string(i.Data), nil
}

// Find returns the text of the first memo in the message.
func Find(m solana.Message) (string, bool) {
	for i := range m.Instructions {
		if text, err := Decompile(m, i); err == nil {
			return text, true
		}
	}
	return "", false
}
