package anchor

import (
	"fmt"
)

type EncodingErrorKind uint8

const (
	Overflow EncodingErrorKind = iota
	TypeMismatch
	LengthMismatch
)

func (k EncodingErrorKind) String() string {
	switch k {
	case Overflow:
		return "overflow"
	case TypeMismatch:
		return "type mismatch"
	case LengthMismatch:
		return "length mismatch"
	default:
		return "unknown"
	}
}

// EncodingError is returned when a value cannot be represented by its
// declared field type.
type EncodingError struct {
	Kind  EncodingErrorKind
	Field string
	Type  Type
	Value interface{}
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s (%T) as %s: %s", e.Field, e.Value, e.Type, e.Kind)
}

type SchemaErrorKind uint8

const (
	ArityMismatch SchemaErrorKind = iota
	UnknownProgram
	UnknownInstruction
	UnknownLayout
	MissingParam
	InvalidTemplate
)

func (k SchemaErrorKind) String() string {
	switch k {
	case ArityMismatch:
		return "arity mismatch"
	case UnknownProgram:
		return "unknown program"
	case UnknownInstruction:
		return "unknown instruction"
	case UnknownLayout:
		return "unknown layout"
	case MissingParam:
		return "missing parameter"
	case InvalidTemplate:
		return "invalid template"
	default:
		return "unknown"
	}
}

// SchemaError is returned when a call does not match the declared schema.
type SchemaError struct {
	Kind   SchemaErrorKind
	Name   string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Name, e.Detail)
}

// NewArityError returns the error for a call with the wrong number of values.
func NewArityError(name string, expected, actual int) *SchemaError {
	return &SchemaError{
		Kind:   ArityMismatch,
		Name:   name,
		Detail: fmt.Sprintf("expected %d values, got %d", expected, actual),
	}
}

type DecodeErrorKind uint8

const (
	UnexpectedLayout DecodeErrorKind = iota
)

// DecodeError is returned when bytes do not match the expected layout. No
// partially decoded values are returned alongside it.
type DecodeError struct {
	Kind   DecodeErrorKind
	Layout string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	var where string
	if e.Layout != "" {
		where = e.Layout
	}
	if e.Field != "" {
		if where != "" {
			where += "."
		}
		where += e.Field
	}

	if where == "" {
		return fmt.Sprintf("unexpected layout: %s", e.Reason)
	}
	return fmt.Sprintf("unexpected layout at %s: %s", where, e.Reason)
}

// Anchor framework error codes, reported by programs as custom errors below
// the 6000 offset used for program declared errors.
//
// Source: https://github.com/coral-xyz/anchor/blob/v0.29.0/lang/src/error.rs
var frameworkErrors = map[uint32]string{
	100:  "InstructionMissing",
	101:  "InstructionFallbackNotFound",
	102:  "InstructionDidNotDeserialize",
	103:  "InstructionDidNotSerialize",
	2000: "ConstraintMut",
	2001: "ConstraintHasOne",
	2002: "ConstraintSigner",
	2003: "ConstraintRaw",
	2004: "ConstraintOwner",
	2005: "ConstraintRentExempt",
	2006: "ConstraintSeeds",
	2012: "ConstraintAddress",
	3000: "AccountDiscriminatorAlreadySet",
	3001: "AccountDiscriminatorNotFound",
	3002: "AccountDiscriminatorMismatch",
	3003: "AccountDidNotDeserialize",
	3004: "AccountDidNotSerialize",
	3005: "AccountNotEnoughKeys",
	3006: "AccountNotMutable",
	3007: "AccountOwnedByWrongProgram",
	3008: "InvalidProgramId",
	3010: "AccountNotSigner",
	3011: "AccountNotSystemOwned",
	3012: "AccountNotInitialized",
	4100: "DeclaredProgramIdMismatch",
}

// ProgramErrorOffset is the first custom error code of program declared
// errors.
const ProgramErrorOffset = 6000

// FrameworkError returns the name of an Anchor framework error code.
func FrameworkError(code uint32) (string, bool) {
	name, ok := frameworkErrors[code]
	return name, ok
}
