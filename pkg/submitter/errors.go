package submitter

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

type ErrorKind uint8

const (
	// Expired indicates the blockhash passed its last valid block height
	// before the transaction landed.
	Expired ErrorKind = iota + 1
	AlreadyFinalized
	InvalidTransition
	TimedOut
	SignerRejected
)

func (k ErrorKind) String() string {
	switch k {
	case Expired:
		return "expired"
	case AlreadyFinalized:
		return "already finalized"
	case InvalidTransition:
		return "invalid transition"
	case TimedOut:
		return "timed out"
	case SignerRejected:
		return "signer rejected"
	}
	return "unknown"
}

// Error is a lifecycle error of a Submission.
type Error struct {
	Kind  ErrorKind
	State State
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (state %s): %v", e.Kind, e.State, e.Err)
	}
	return fmt.Sprintf("%s (state %s)", e.Kind, e.State)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind returns whether err is an *Error of the provided kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// OnChainRejection is returned when the network rejects a transaction,
// either during preflight or after it landed.
type OnChainRejection struct {
	Signature solana.Signature

	// InstructionIndex is the failing instruction, or -1 when the failure was
	// not attributed to an instruction.
	InstructionIndex int

	CustomCode    uint32
	HasCustomCode bool

	// ProgramError is the registry declared error for CustomCode, if known.
	ProgramError *registry.ProgramError

	// AnchorError is the Anchor error reported in the logs, if any.
	AnchorError *anchor.LogError

	Logs []string
	Err  *solana.TransactionError
}

func (e *OnChainRejection) Error() string {
	var sb strings.Builder
	sb.WriteString("transaction rejected")
	if e.Signature != (solana.Signature{}) {
		sb.WriteString(" ")
		sb.WriteString(e.Signature.String())
	}

	switch {
	case e.ProgramError != nil:
		fmt.Fprintf(&sb, ": %s", e.ProgramError.Error())
	case e.AnchorError != nil:
		fmt.Fprintf(&sb, ": %s (%d): %s", e.AnchorError.Code, e.AnchorError.Number, e.AnchorError.Message)
	case e.Err != nil:
		fmt.Fprintf(&sb, ": %s", e.Err.Error())
	}
	return sb.String()
}

func (e *OnChainRejection) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// SimulationError is returned when a dry run of the transaction fails. Logs
// are the node's program logs, verbatim.
type SimulationError struct {
	Err          *solana.TransactionError
	Logs         []string
	ProgramError *registry.ProgramError
	AnchorError  *anchor.LogError
}

func (e *SimulationError) Error() string {
	msg := "simulation failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.ProgramError != nil {
		msg += " (" + e.ProgramError.Name + ")"
	} else if e.AnchorError != nil {
		msg += " (" + e.AnchorError.Code + ")"
	}
	return msg
}

func (e *SimulationError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}
