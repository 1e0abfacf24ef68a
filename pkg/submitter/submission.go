package submitter

import (
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"

	"github.com/noema-protocol/registry-client/pkg/solana"
)

// State is the lifecycle state of a Submission.
type State uint8

const (
	StateUnknown State = iota
	StateBuilt
	StateSigned
	StateSimulated
	StateSent
	StateConfirmed
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSimulated:
		return "simulated"
	case StateSent:
		return "sent"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// IsTerminal returns whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// Submission is a single transaction moving through the submit pipeline. It
// is owned by one caller and is not safe for concurrent use.
type Submission struct {
	ID    uuid.UUID
	State State

	Payer        ed25519.PublicKey
	Instructions []solana.Instruction

	// Transaction holds the compiled message and, once signed, its
	// signatures.
	Transaction          solana.Transaction
	Blockhash            solana.Blockhash
	LastValidBlockHeight uint64
	Signature            solana.Signature

	// SentSignature is the signature the node reported when the transaction
	// was sent. Status is always tracked by Signature.
	SentSignature solana.Signature

	// Logs are the most recent program logs observed for the transaction,
	// from simulation, preflight or the confirmed transaction.
	Logs          []string
	UnitsConsumed uint64

	// Err is the error that moved the submission into a terminal failure
	// state.
	Err error

	CreatedAt   time.Time
	SentAt      time.Time
	ConfirmedAt time.Time
}

// SignatureString returns the base58 transaction signature, or an empty
// string before signing.
func (s *Submission) SignatureString() string {
	if s.Signature == (solana.Signature{}) {
		return ""
	}
	return s.Signature.String()
}

func (s *Submission) fail(err error) error {
	s.State = StateFailed
	s.Err = err
	return err
}
