package registry

import (
	"crypto/ed25519"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

type idl struct {
	Version      string           `json:"version"`
	Name         string           `json:"name"`
	Address      string           `json:"address"`
	Instructions []idlInstruction `json:"instructions"`
	Accounts     []idlTypeDef     `json:"accounts"`
	Errors       []idlError       `json:"errors"`
	Metadata     struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"metadata"`
}

type idlInstruction struct {
	Name     string       `json:"name"`
	Accounts []idlAccount `json:"accounts"`
	Args     []idlField   `json:"args"`
}

type idlAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type idlField struct {
	Name string      `json:"name"`
	Type interface{} `json:"type"`
}

type idlTypeDef struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []idlField `json:"fields"`
	} `json:"type"`
}

type idlError struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ParseIDL loads a program description from a legacy Anchor IDL. Instruction,
// argument and account names are converted to the snake_case the program
// hashes and derives with. Every account becomes a caller parameter, except
// the system program, since IDLs of this version carry no seed information.
// The program id, when present, is registered for cluster.
func ParseIDL(data []byte, variant Variant, cluster Cluster) (*Program, error) {
	var raw idl
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal idl")
	}

	name := raw.Name
	if name == "" {
		name = raw.Metadata.Name
	}

	p := &Program{
		Name:       name,
		Variant:    variant,
		ProgramIDs: make(map[Cluster]ed25519.PublicKey),
	}

	address := raw.Address
	if address == "" {
		address = raw.Metadata.Address
	}
	if address != "" {
		id, err := parsePublicKey(address)
		if err != nil {
			return nil, errors.Wrap(err, "invalid program address")
		}
		p.ProgramIDs[cluster] = id
	}

	for _, ix := range raw.Instructions {
		schema := InstructionSchema{
			Name: SnakeCase(ix.Name),
		}

		for _, a := range ix.Args {
			t, err := parseIDLType(a.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "instruction %s argument %s", ix.Name, a.Name)
			}
			schema.Args = append(schema.Args, anchor.Field{Name: SnakeCase(a.Name), Type: t})
		}

		for _, a := range ix.Accounts {
			accountName := SnakeCase(a.Name)
			if accountName == "system_program" {
				schema.Accounts = append(schema.Accounts, SystemProgram())
				continue
			}

			slot := Account(accountName, a.IsMut)
			slot.IsSigner = a.IsSigner
			schema.Accounts = append(schema.Accounts, slot)
		}

		p.Instructions = append(p.Instructions, schema)
	}

	for _, acc := range raw.Accounts {
		if acc.Type.Kind != "" && acc.Type.Kind != "struct" {
			return nil, errors.Errorf("account %s: unsupported kind %s", acc.Name, acc.Type.Kind)
		}

		layout := AccountLayout{Name: acc.Name}
		for _, f := range acc.Type.Fields {
			t, err := parseIDLType(f.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "account %s field %s", acc.Name, f.Name)
			}
			layout.Fields = append(layout.Fields, anchor.Field{Name: SnakeCase(f.Name), Type: t})
		}
		p.Layouts = append(p.Layouts, layout)
	}

	for _, e := range raw.Errors {
		p.Errors = append(p.Errors, ProgramError{Code: e.Code, Name: e.Name, Msg: e.Msg})
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseIDLType(v interface{}) (anchor.Type, error) {
	switch t := v.(type) {
	case string:
		switch t {
		case "u8":
			return anchor.U8, nil
		case "u16":
			return anchor.U16, nil
		case "u32":
			return anchor.U32, nil
		case "u64":
			return anchor.U64, nil
		case "i64":
			return anchor.I64, nil
		case "bool":
			return anchor.Bool, nil
		case "string":
			return anchor.String, nil
		case "publicKey", "pubkey":
			return anchor.PublicKey, nil
		case "bytes":
			return anchor.Vec(anchor.U8), nil
		}
		return anchor.Type{}, errors.Errorf("unsupported type %q", t)
	case map[string]interface{}:
		if inner, ok := t["vec"]; ok {
			elem, err := parseIDLType(inner)
			if err != nil {
				return anchor.Type{}, err
			}
			return anchor.Vec(elem), nil
		}

		if inner, ok := t["option"]; ok {
			elem, err := parseIDLType(inner)
			if err != nil {
				return anchor.Type{}, err
			}
			return anchor.Option(elem), nil
		}

		if inner, ok := t["array"]; ok {
			pair, ok := inner.([]interface{})
			if !ok || len(pair) != 2 || pair[0] != "u8" {
				return anchor.Type{}, errors.Errorf("unsupported array type %v", inner)
			}

			n, ok := pair[1].(float64)
			if !ok || n <= 0 || n != float64(int(n)) {
				return anchor.Type{}, errors.Errorf("invalid array length %v", pair[1])
			}
			return anchor.FixedBytes(int(n)), nil
		}

		return anchor.Type{}, errors.Errorf("unsupported type %v", t)
	default:
		return anchor.Type{}, errors.Errorf("unsupported type %v", v)
	}
}

// SnakeCase converts camelCase IDL names to the snake_case used by the
// program source, e.g. registerAgent becomes register_agent.
func SnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func parsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key length: %d", len(b))
	}
	return b, nil
}
