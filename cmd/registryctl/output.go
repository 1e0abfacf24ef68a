package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"reflect"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"

	"github.com/noema-protocol/registry-client/pkg/reader"
	"github.com/noema-protocol/registry-client/pkg/solana"
)

// printJSON writes v as indented JSON, with public keys in base58 and other
// byte strings in hex.
func printJSON(w io.Writer, v interface{}) error {
	b, err := sonic.ConfigStd.MarshalIndent(render(reflect.ValueOf(v)), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func recordJSON(r *reader.Record) map[string]interface{} {
	fields := make(map[string]interface{}, len(r.Fields()))
	for i, f := range r.Fields() {
		fields[f.Name] = render(reflect.ValueOf(r.Values()[i]))
	}

	return map[string]interface{}{
		"layout":   r.Layout,
		"address":  base58.Encode(r.Address),
		"owner":    base58.Encode(r.Owner),
		"lamports": r.Lamports,
		"slot":     r.Slot,
		"fields":   fields,
	}
}

var (
	publicKeyType = reflect.TypeOf(ed25519.PublicKey(nil))
	signatureType = reflect.TypeOf(solana.Signature{})
)

func render(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}

	switch v.Type() {
	case publicKeyType:
		if v.Len() == 0 {
			return nil
		}
		return base58.Encode(v.Bytes())
	case signatureType:
		sig := v.Interface().(solana.Signature)
		return base58.Encode(sig[:])
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return render(v.Elem())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return hex.EncodeToString(v.Bytes())
		}
		items := make([]interface{}, v.Len())
		for i := range items {
			items[i] = render(v.Index(i))
		}
		return items
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return hex.EncodeToString(b)
		}
	case reflect.Map:
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = render(iter.Value())
		}
		return out
	case reflect.Struct:
		out := make(map[string]interface{}, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			f := v.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			out[snakeCase(f.Name)] = render(v.Field(i))
		}
		return out
	}
	return v.Interface()
}

// snakeCase converts exported Go field names, including initialisms such as
// AgentID and MetadataURI, to snake_case.
func snakeCase(s string) string {
	runes := []rune(s)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
