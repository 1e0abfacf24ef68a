package anchor

import (
	"fmt"
)

// Kind identifies the wire encoding of a field.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI64
	KindBool
	KindString
	KindFixedBytes
	KindPublicKey
	KindVec
	KindOption
)

// Type is a Borsh type as used by Anchor instruction arguments and account
// layouts.
type Type struct {
	Kind Kind

	// Len is the byte length of a KindFixedBytes type.
	Len int

	// Elem is the element type of a KindVec or KindOption type.
	Elem *Type
}

var (
	U8        = Type{Kind: KindU8}
	U16       = Type{Kind: KindU16}
	U32       = Type{Kind: KindU32}
	U64       = Type{Kind: KindU64}
	I64       = Type{Kind: KindI64}
	Bool      = Type{Kind: KindBool}
	String    = Type{Kind: KindString}
	PublicKey = Type{Kind: KindPublicKey}
)

// FixedBytes is a byte array of exactly n bytes, written without a length
// prefix.
func FixedBytes(n int) Type {
	return Type{Kind: KindFixedBytes, Len: n}
}

// Vec is a u32 LE element count followed by the encoded elements.
func Vec(elem Type) Type {
	return Type{Kind: KindVec, Elem: &elem}
}

// Option is a single tag byte (0 or 1) followed by the value when present.
func Option(elem Type) Type {
	return Type{Kind: KindOption, Elem: &elem}
}

// Equal reports whether both types have the same encoding.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || t.Len != other.Len {
		return false
	}
	if t.Elem == nil || other.Elem == nil {
		return t.Elem == nil && other.Elem == nil
	}
	return t.Elem.Equal(*other.Elem)
}

// FixedSize returns the encoded size of the type, and false if the size
// depends on the value.
func (t Type) FixedSize() (int, bool) {
	switch t.Kind {
	case KindU8, KindBool:
		return 1, true
	case KindU16:
		return 2, true
	case KindU32:
		return 4, true
	case KindU64, KindI64:
		return 8, true
	case KindFixedBytes:
		return t.Len, true
	case KindPublicKey:
		return 32, true
	default:
		return 0, false
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFixedBytes:
		return fmt.Sprintf("[u8; %d]", t.Len)
	case KindPublicKey:
		return "pubkey"
	case KindVec:
		return fmt.Sprintf("vec<%s>", t.elem())
	case KindOption:
		return fmt.Sprintf("option<%s>", t.elem())
	default:
		return fmt.Sprintf("unknown(%d)", t.Kind)
	}
}

func (t Type) elem() Type {
	if t.Elem == nil {
		return Type{Kind: 0xff}
	}
	return *t.Elem
}

// Field is a named, typed value in an instruction payload or account layout.
type Field struct {
	Name string
	Type Type
}

func (f Field) String() string {
	return fmt.Sprintf("%s: %s", f.Name, f.Type)
}

// Names returns the field names in order.
func Names(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
