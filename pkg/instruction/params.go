package instruction

import (
	"crypto/ed25519"
	"reflect"

	"github.com/mr-tron/base58"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

// Params are the named values available to seed templates and account slots.
// Instruction arguments are visible under their argument names.
type Params map[string]interface{}

// NewParams exposes the instruction arguments by name. Values beyond the
// declared arguments are ignored.
func NewParams(schema *registry.InstructionSchema, values []interface{}) Params {
	p := make(Params, len(schema.Args))
	for i, f := range schema.Args {
		if i >= len(values) {
			break
		}
		p[f.Name] = values[i]
	}
	return p
}

// With returns a copy of the params with name set to v.
func (p Params) With(name string, v interface{}) Params {
	cloned := make(Params, len(p)+1)
	for k, existing := range p {
		cloned[k] = existing
	}
	cloned[name] = v
	return cloned
}

// Merge returns a copy of the params overlaid with other. Values in other
// take precedence.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// PublicKey returns the named param as an account address. Base58 strings
// are accepted alongside raw 32 byte values.
func (p Params) PublicKey(name string) (ed25519.PublicKey, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, missingParam(name)
	}

	if s, ok := v.(string); ok {
		decoded, err := base58.Decode(s)
		if err != nil || len(decoded) != ed25519.PublicKeySize {
			return nil, &anchor.EncodingError{Kind: anchor.TypeMismatch, Field: name, Type: anchor.PublicKey, Value: v}
		}
		return decoded, nil
	}

	b, ok := rawBytes(v)
	if !ok {
		return nil, &anchor.EncodingError{Kind: anchor.TypeMismatch, Field: name, Type: anchor.PublicKey, Value: v}
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, &anchor.EncodingError{Kind: anchor.LengthMismatch, Field: name, Type: anchor.PublicKey, Value: v}
	}
	return b, nil
}

// Seed returns the named param as seed bytes: strings as UTF-8, public keys
// and byte arrays as raw bytes.
func (p Params) Seed(name string) ([]byte, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, missingParam(name)
	}

	if s, ok := v.(string); ok {
		return []byte(s), nil
	}

	b, ok := rawBytes(v)
	if !ok {
		return nil, &anchor.EncodingError{Kind: anchor.TypeMismatch, Field: name, Type: anchor.Vec(anchor.U8), Value: v}
	}
	return b, nil
}

func rawBytes(v interface{}) ([]byte, bool) {
	switch t := v.(type) {
	case ed25519.PublicKey:
		return t, true
	case []byte:
		return t, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}

	b := make([]byte, rv.Len())
	for i := range b {
		b[i] = byte(rv.Index(i).Uint())
	}
	return b, true
}

func missingParam(name string) error {
	return &anchor.SchemaError{Kind: anchor.MissingParam, Name: name}
}
