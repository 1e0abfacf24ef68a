package reader

import (
	"crypto/ed25519"
	"fmt"
	"reflect"

	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

var _ registry.Scanner = (*Record)(nil)

// Record is a decoded program account.
type Record struct {
	Layout   string
	Address  ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64
	Slot     uint64

	fields []anchor.Field
	values []interface{}
}

// Decode decodes account data against layout. Data longer than the
// layout's allocated space is rejected, shorter padding is tolerated.
func Decode(layout *registry.AccountLayout, address ed25519.PublicKey, data []byte) (*Record, error) {
	if layout.Space > 0 && len(data) > layout.Space {
		return nil, &anchor.DecodeError{
			Kind:   anchor.UnexpectedLayout,
			Layout: layout.Name,
			Reason: fmt.Sprintf("account data is %d bytes, layout allocates %d", len(data), layout.Space),
		}
	}

	values, err := anchor.DecodeAccount(layout.Name, layout.Fields, data)
	if err != nil {
		return nil, err
	}

	return &Record{
		Layout:  layout.Name,
		Address: address,
		fields:  layout.Fields,
		values:  values,
	}, nil
}

func (r *Record) Fields() []anchor.Field {
	return r.fields
}

// Values returns the decoded values in layout order.
func (r *Record) Values() []interface{} {
	return r.values
}

// Value returns the named decoded value.
func (r *Record) Value(name string) (interface{}, error) {
	for i, f := range r.fields {
		if f.Name == name {
			return r.values[i], nil
		}
	}
	return nil, r.fieldError(name, "no such field")
}

func (r *Record) String(name string) (string, error) {
	v, err := r.typed(name, anchor.KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Record) Uint8(name string) (uint8, error) {
	v, err := r.typed(name, anchor.KindU8)
	if err != nil {
		return 0, err
	}
	return v.(uint8), nil
}

func (r *Record) Uint16(name string) (uint16, error) {
	v, err := r.typed(name, anchor.KindU16)
	if err != nil {
		return 0, err
	}
	return v.(uint16), nil
}

func (r *Record) Uint32(name string) (uint32, error) {
	v, err := r.typed(name, anchor.KindU32)
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

func (r *Record) Uint64(name string) (uint64, error) {
	v, err := r.typed(name, anchor.KindU64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func (r *Record) Int64(name string) (int64, error) {
	v, err := r.typed(name, anchor.KindI64)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (r *Record) Bool(name string) (bool, error) {
	v, err := r.typed(name, anchor.KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (r *Record) PublicKey(name string) (ed25519.PublicKey, error) {
	v, err := r.typed(name, anchor.KindPublicKey)
	if err != nil {
		return nil, err
	}
	return v.(ed25519.PublicKey), nil
}

func (r *Record) Bytes(name string) ([]byte, error) {
	v, err := r.typed(name, anchor.KindFixedBytes)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Record) PublicKeys(name string) ([]ed25519.PublicKey, error) {
	v, err := r.Value(name)
	if err != nil {
		return nil, err
	}

	var keys []ed25519.PublicKey
	if err := assign(&keys, v); err != nil {
		return nil, r.fieldError(name, err.Error())
	}
	return keys, nil
}

// Scan copies the decoded values into dst in layout order. Fewer
// destinations than fields leaves the remaining fields unread.
func (r *Record) Scan(dst ...interface{}) error {
	if len(dst) > len(r.values) {
		return &anchor.DecodeError{
			Kind:   anchor.UnexpectedLayout,
			Layout: r.Layout,
			Reason: fmt.Sprintf("%d destinations for %d fields", len(dst), len(r.values)),
		}
	}

	for i, d := range dst {
		if d == nil {
			continue
		}
		if err := assign(d, r.values[i]); err != nil {
			return r.fieldError(r.fields[i].Name, err.Error())
		}
	}
	return nil
}

func (r *Record) typed(name string, kind anchor.Kind) (interface{}, error) {
	for i, f := range r.fields {
		if f.Name != name {
			continue
		}
		if f.Type.Kind != kind {
			return nil, r.fieldError(name, fmt.Sprintf("field is %s", f.Type))
		}
		return r.values[i], nil
	}
	return nil, r.fieldError(name, "no such field")
}

func (r *Record) fieldError(name, reason string) error {
	return &anchor.DecodeError{
		Kind:   anchor.UnexpectedLayout,
		Layout: r.Layout,
		Field:  name,
		Reason: reason,
	}
}

func assign(dst, v interface{}) error {
	switch d := dst.(type) {
	case *interface{}:
		*d = v
		return nil
	case *string:
		if s, ok := v.(string); ok {
			*d = s
			return nil
		}
	case *uint8:
		if n, ok := v.(uint8); ok {
			*d = n
			return nil
		}
	case *uint16:
		if n, ok := v.(uint16); ok {
			*d = n
			return nil
		}
	case *uint32:
		if n, ok := v.(uint32); ok {
			*d = n
			return nil
		}
	case *uint64:
		if n, ok := v.(uint64); ok {
			*d = n
			return nil
		}
	case *int64:
		if n, ok := v.(int64); ok {
			*d = n
			return nil
		}
	case *bool:
		if b, ok := v.(bool); ok {
			*d = b
			return nil
		}
	case *ed25519.PublicKey:
		switch k := v.(type) {
		case ed25519.PublicKey:
			*d = k
			return nil
		case nil:
			*d = nil
			return nil
		}
	case *[]byte:
		if b, ok := v.([]byte); ok {
			*d = b
			return nil
		}
	case **int64:
		switch n := v.(type) {
		case int64:
			*d = &n
			return nil
		case nil:
			*d = nil
			return nil
		}
	case *[]ed25519.PublicKey:
		items, ok := v.([]interface{})
		if !ok {
			break
		}
		keys := make([]ed25519.PublicKey, len(items))
		for i, item := range items {
			k, ok := item.(ed25519.PublicKey)
			if !ok {
				return fmt.Errorf("element %d is %T", i, item)
			}
			keys[i] = k
		}
		*d = keys
		return nil
	default:
		return assignArray(dst, v)
	}

	return fmt.Errorf("cannot scan %T into %T", v, dst)
}

// assignArray handles fixed size byte array destinations such as *[32]byte.
func assignArray(dst, v interface{}) error {
	b, ok := v.([]byte)
	rv := reflect.ValueOf(dst)
	if !ok || rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Array || rv.Elem().Type().Elem().Kind() != reflect.Uint8 {
		return fmt.Errorf("cannot scan %T into %T", v, dst)
	}

	arr := rv.Elem()
	if arr.Len() != len(b) {
		return fmt.Errorf("cannot scan %d bytes into %T", len(b), dst)
	}
	reflect.Copy(arr, reflect.ValueOf(b))
	return nil
}
