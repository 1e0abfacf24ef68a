package anchor

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

// EncodeInstruction encodes the instruction payload: the discriminator of
// name followed by the values in field order.
func EncodeInstruction(name string, fields []Field, values []interface{}) ([]byte, error) {
	if len(values) != len(fields) {
		return nil, NewArityError(name, len(fields), len(values))
	}

	disc := InstructionDiscriminator(name)

	buf := bytes.NewBuffer(make([]byte, 0, DiscriminatorSize+estimateSize(fields)))
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, errors.Wrap(err, "failed to write instruction discriminator")
	}

	if err := encodeFields(enc, fields, values); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeAccount encodes account data as an Anchor program stores it: the
// account discriminator of layout followed by the values. The result is not
// padded to the account's allocated space.
func EncodeAccount(layout string, fields []Field, values []interface{}) ([]byte, error) {
	if len(values) != len(fields) {
		return nil, NewArityError(layout, len(fields), len(values))
	}

	disc := AccountDiscriminator(layout)

	buf := bytes.NewBuffer(make([]byte, 0, DiscriminatorSize+estimateSize(fields)))
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, errors.Wrap(err, "failed to write account discriminator")
	}

	if err := encodeFields(enc, fields, values); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Encode encodes values in field order, without a discriminator.
func Encode(fields []Field, values []interface{}) ([]byte, error) {
	if len(values) != len(fields) {
		return nil, NewArityError("fields", len(fields), len(values))
	}

	buf := bytes.NewBuffer(make([]byte, 0, estimateSize(fields)))
	if err := encodeFields(bin.NewBorshEncoder(buf), fields, values); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeFields(enc *bin.Encoder, fields []Field, values []interface{}) error {
	for i, f := range fields {
		if err := encodeValue(enc, f.Name, f.Type, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(enc *bin.Encoder, name string, t Type, v interface{}) error {
	mismatch := func(kind EncodingErrorKind) error {
		return &EncodingError{Kind: kind, Field: name, Type: t, Value: v}
	}

	switch t.Kind {
	case KindU8, KindU16, KindU32, KindU64:
		mag, neg, ok := integer(v)
		if !ok {
			return mismatch(TypeMismatch)
		}
		if neg || mag > maxUnsigned(t.Kind) {
			return mismatch(Overflow)
		}

		switch t.Kind {
		case KindU8:
			return enc.WriteUint8(uint8(mag))
		case KindU16:
			return enc.WriteUint16(uint16(mag), binary.LittleEndian)
		case KindU32:
			return enc.WriteUint32(uint32(mag), binary.LittleEndian)
		default:
			return enc.WriteUint64(mag, binary.LittleEndian)
		}
	case KindI64:
		mag, neg, ok := integer(v)
		if !ok {
			return mismatch(TypeMismatch)
		}

		var i int64
		switch {
		case neg && mag > 1<<63:
			return mismatch(Overflow)
		case neg:
			i = int64(-mag)
		case mag > math.MaxInt64:
			return mismatch(Overflow)
		default:
			i = int64(mag)
		}
		return enc.WriteInt64(i, binary.LittleEndian)
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch(TypeMismatch)
		}
		return enc.WriteBool(b)
	case KindString:
		s, ok := v.(string)
		if !ok {
			return mismatch(TypeMismatch)
		}
		if uint64(len(s)) > math.MaxUint32 {
			return mismatch(Overflow)
		}
		if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteBytes([]byte(s), false)
	case KindFixedBytes, KindPublicKey:
		b, ok := byteSlice(v)
		if !ok {
			return mismatch(TypeMismatch)
		}

		expected, _ := t.FixedSize()
		if len(b) != expected {
			return mismatch(LengthMismatch)
		}
		return enc.WriteBytes(b, false)
	case KindVec:
		if t.Elem == nil {
			return mismatch(TypeMismatch)
		}

		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return mismatch(TypeMismatch)
		}
		if uint64(rv.Len()) > math.MaxUint32 {
			return mismatch(Overflow)
		}

		if err := enc.WriteUint32(uint32(rv.Len()), binary.LittleEndian); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(enc, name, *t.Elem, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case KindOption:
		if t.Elem == nil {
			return mismatch(TypeMismatch)
		}

		inner, present := optional(v)
		if !present {
			return enc.WriteUint8(0)
		}
		if err := enc.WriteUint8(1); err != nil {
			return err
		}
		return encodeValue(enc, name, *t.Elem, inner)
	default:
		return mismatch(TypeMismatch)
	}
}

func maxUnsigned(k Kind) uint64 {
	switch k {
	case KindU8:
		return math.MaxUint8
	case KindU16:
		return math.MaxUint16
	case KindU32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// integer returns the magnitude and sign of any Go integer value.
func integer(v interface{}) (mag uint64, neg bool, ok bool) {
	switch t := v.(type) {
	case int:
		return signed(int64(t))
	case int8:
		return signed(int64(t))
	case int16:
		return signed(int64(t))
	case int32:
		return signed(int64(t))
	case int64:
		return signed(t)
	case uint:
		return uint64(t), false, true
	case uint8:
		return uint64(t), false, true
	case uint16:
		return uint64(t), false, true
	case uint32:
		return uint64(t), false, true
	case uint64:
		return t, false, true
	default:
		return 0, false, false
	}
}

func signed(i int64) (uint64, bool, bool) {
	if i < 0 {
		return uint64(-(i + 1)) + 1, true, true
	}
	return uint64(i), false, true
}

// byteSlice accepts []byte, named byte slices such as ed25519.PublicKey, and
// byte arrays such as [32]byte.
func byteSlice(v interface{}) ([]byte, bool) {
	if b, ok := v.([]byte); ok {
		return b, true
	}
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}

	b := make([]byte, rv.Len())
	for i := range b {
		b[i] = byte(rv.Index(i).Uint())
	}
	return b, true
}

// optional treats nil and nil pointers as absent, and dereferences non-nil
// pointers.
func optional(v interface{}) (interface{}, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	}
	return v, true
}

func estimateSize(fields []Field) int {
	var size int
	for _, f := range fields {
		if n, ok := f.Type.FixedSize(); ok {
			size += n
		} else {
			size += 4
		}
	}
	return size
}
