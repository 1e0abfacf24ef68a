package anchor

import (
	"crypto/ed25519"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// ParseValue converts the textual form of a value into the Go value the
// encoder expects for t. Public keys are base58, fixed byte arrays are hex,
// vec elements are comma separated and an empty option is absent.
func ParseValue(t Type, s string) (interface{}, error) {
	switch t.Kind {
	case KindU8, KindU16, KindU32, KindU64:
		bits := map[Kind]int{KindU8: 8, KindU16: 16, KindU32: 32, KindU64: 64}[t.Kind]
		v, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t)
		}
		switch t.Kind {
		case KindU8:
			return uint8(v), nil
		case KindU16:
			return uint16(v), nil
		case KindU32:
			return uint32(v), nil
		default:
			return v, nil
		}
	case KindI64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t)
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t)
		}
		return v, nil
	case KindString:
		return s, nil
	case KindFixedBytes:
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t)
		}
		if len(b) != t.Len {
			return nil, errors.Errorf("invalid %s: got %d bytes", t, len(b))
		}
		return b, nil
	case KindPublicKey:
		b, err := base58.Decode(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t)
		}
		if len(b) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid %s: got %d bytes", t, len(b))
		}
		return ed25519.PublicKey(b), nil
	case KindVec:
		if t.Elem == nil {
			return nil, errors.New("vec without element type")
		}
		if s == "" {
			return []interface{}{}, nil
		}

		parts := strings.Split(s, ",")
		items := make([]interface{}, len(parts))
		for i, p := range parts {
			v, err := ParseValue(*t.Elem, strings.TrimSpace(p))
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			items[i] = v
		}
		return items, nil
	case KindOption:
		if t.Elem == nil {
			return nil, errors.New("option without element type")
		}
		if s == "" {
			return nil, nil
		}
		return ParseValue(*t.Elem, s)
	default:
		return nil, errors.Errorf("unsupported type %s", t)
	}
}

// LogError is an Anchor error reported through the program log.
type LogError struct {
	Code    string
	Number  uint32
	Message string

	// Account is set when the error was caused by a specific account.
	Account string
}

var logErrorPattern = regexp.MustCompile(`AnchorError (?:caused by account: (\S+)|occurred|thrown in \S+)\. Error Code: (\w+)\. Error Number: (\d+)\. Error Message: (.*?)\.?$`)

// ParseLogError returns the first Anchor error found in the program logs.
func ParseLogError(logs []string) (*LogError, bool) {
	for _, l := range logs {
		m := logErrorPattern.FindStringSubmatch(l)
		if m == nil {
			continue
		}

		n, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			continue
		}

		return &LogError{
			Code:    m[2],
			Number:  uint32(n),
			Message: m[4],
			Account: m[1],
		}, true
	}

	return nil, false
}
