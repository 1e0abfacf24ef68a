package registry

import (
	"fmt"
	"reflect"
)

// Limit bounds the byte length of a string argument, or the element count of
// a vec argument, as enforced by the program. ProgramError names the program
// error raised when the limit is exceeded.
type Limit struct {
	Instruction  string
	Arg          string
	Max          int
	ProgramError string
}

// LimitError is returned when an argument exceeds a program limit. The
// encoder never truncates, so this check is the caller's only protection
// against a guaranteed on-chain rejection.
type LimitError struct {
	Instruction  string
	Arg          string
	Max          int
	Actual       int
	ProgramError string
}

func (e *LimitError) Error() string {
	if e.ProgramError == "" {
		return fmt.Sprintf("%s: %s exceeds limit of %d (got %d)", e.Instruction, e.Arg, e.Max, e.Actual)
	}
	return fmt.Sprintf("%s: %s exceeds limit of %d (got %d): %s", e.Instruction, e.Arg, e.Max, e.Actual, e.ProgramError)
}

// CheckLength returns a LimitError if value is longer than max bytes.
func CheckLength(instruction, arg, value string, max int, programError string) error {
	if len(value) <= max {
		return nil
	}
	return &LimitError{
		Instruction:  instruction,
		Arg:          arg,
		Max:          max,
		Actual:       len(value),
		ProgramError: programError,
	}
}

// CheckLimits validates values, in schema argument order, against the limits
// the program declares for the instruction.
func (p *Program) CheckLimits(schema *InstructionSchema, values []interface{}) error {
	for _, l := range p.Limits {
		if l.Instruction != schema.Name {
			continue
		}

		_, i, ok := schema.Arg(l.Arg)
		if !ok || i >= len(values) {
			continue
		}

		n, ok := length(values[i])
		if !ok || n <= l.Max {
			continue
		}

		return &LimitError{
			Instruction:  schema.Name,
			Arg:          l.Arg,
			Max:          l.Max,
			Actual:       n,
			ProgramError: l.ProgramError,
		}
	}
	return nil
}

func length(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		return len(s), true
	}
	if v == nil {
		return 0, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}
