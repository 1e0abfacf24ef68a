package anchor

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
)

// DecodeInstruction decodes instruction data produced by EncodeInstruction
// for name. Trailing bytes are rejected.
func DecodeInstruction(name string, fields []Field, data []byte) ([]interface{}, error) {
	disc := InstructionDiscriminator(name)
	if !disc.Matches(data) {
		return nil, &DecodeError{Layout: name, Reason: "instruction discriminator mismatch"}
	}

	return decode(name, fields, data[DiscriminatorSize:], false)
}

// Decode decodes values encoded with Encode. Trailing bytes are rejected.
func Decode(fields []Field, data []byte) ([]interface{}, error) {
	return decode("", fields, data, false)
}

// DecodeAccount decodes the data of an account created by an Anchor program.
// The data must begin with the account discriminator of layout. Bytes after
// the last field are allocation padding and are ignored.
func DecodeAccount(layout string, fields []Field, data []byte) ([]interface{}, error) {
	if len(data) < DiscriminatorSize {
		return nil, &DecodeError{Layout: layout, Reason: fmt.Sprintf("account data too short: %d bytes", len(data))}
	}

	disc := AccountDiscriminator(layout)
	if !disc.Matches(data) {
		return nil, &DecodeError{Layout: layout, Reason: "account discriminator mismatch"}
	}

	return decode(layout, fields, data[DiscriminatorSize:], true)
}

func decode(layout string, fields []Field, data []byte, allowTrailing bool) ([]interface{}, error) {
	dec := bin.NewBorshDecoder(data)

	values := make([]interface{}, len(fields))
	for i, f := range fields {
		v, err := decodeValue(dec, f.Type)
		if err != nil {
			return nil, &DecodeError{Layout: layout, Field: f.Name, Reason: err.Error()}
		}
		values[i] = v
	}

	if !allowTrailing && dec.Remaining() > 0 {
		return nil, &DecodeError{Layout: layout, Reason: fmt.Sprintf("%d trailing bytes", dec.Remaining())}
	}

	return values, nil
}

func decodeValue(dec *bin.Decoder, t Type) (interface{}, error) {
	if size, ok := t.FixedSize(); ok && dec.Remaining() < size {
		return nil, fmt.Errorf("need %d bytes for %s, have %d", size, t, dec.Remaining())
	}

	switch t.Kind {
	case KindU8:
		return dec.ReadUint8()
	case KindU16:
		return dec.ReadUint16(binary.LittleEndian)
	case KindU32:
		return dec.ReadUint32(binary.LittleEndian)
	case KindU64:
		return dec.ReadUint64(binary.LittleEndian)
	case KindI64:
		return dec.ReadInt64(binary.LittleEndian)
	case KindBool:
		b, err := dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, fmt.Errorf("invalid bool value %d", b)
		}
	case KindString:
		b, err := readPrefixed(dec)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("invalid utf-8 string")
		}
		return string(b), nil
	case KindFixedBytes:
		return readN(dec, t.Len)
	case KindPublicKey:
		b, err := readN(dec, ed25519.PublicKeySize)
		if err != nil {
			return nil, err
		}
		return ed25519.PublicKey(b), nil
	case KindVec:
		if t.Elem == nil {
			return nil, fmt.Errorf("vec without element type")
		}

		count, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		// Every element occupies at least one byte
		if int64(count) > int64(dec.Remaining()) {
			return nil, fmt.Errorf("vec count %d exceeds remaining %d bytes", count, dec.Remaining())
		}

		items := make([]interface{}, count)
		for i := range items {
			if items[i], err = decodeValue(dec, *t.Elem); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return items, nil
	case KindOption:
		if t.Elem == nil {
			return nil, fmt.Errorf("option without element type")
		}

		tag, err := dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 0:
			return nil, nil
		case 1:
			return decodeValue(dec, *t.Elem)
		default:
			return nil, fmt.Errorf("invalid option tag %d", tag)
		}
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func readPrefixed(dec *bin.Decoder) ([]byte, error) {
	if dec.Remaining() < 4 {
		return nil, fmt.Errorf("need 4 bytes for length prefix, have %d", dec.Remaining())
	}

	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	return readN(dec, int(n))
}

func readN(dec *bin.Decoder, n int) ([]byte, error) {
	if n < 0 || n > dec.Remaining() {
		return nil, fmt.Errorf("need %d bytes, have %d", n, dec.Remaining())
	}
	if n == 0 {
		return []byte{}, nil
	}

	b, err := dec.ReadNBytes(n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
