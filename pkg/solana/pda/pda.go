// Package pda derives program derived addresses and memoises the result for
// the lifetime of the process.
package pda

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/noema-protocol/registry-client/pkg/cache"
	"github.com/noema-protocol/registry-client/pkg/solana"
)

const (
	// DefaultCacheBudget is the number of derived addresses kept in memory.
	DefaultCacheBudget = 4096
)

// Address is a program derived address and the bump seed that moved it off
// the curve.
type Address struct {
	PublicKey ed25519.PublicKey
	Bump      uint8
}

func (a Address) String() string {
	return base58.Encode(a.PublicKey)
}

type DerivationErrorKind uint8

const (
	NoValidBump DerivationErrorKind = iota
	TooManySeeds
	SeedTooLong
)

func (k DerivationErrorKind) String() string {
	switch k {
	case NoValidBump:
		return "no valid bump"
	case TooManySeeds:
		return "too many seeds"
	case SeedTooLong:
		return "seed too long"
	default:
		return "unknown"
	}
}

// DerivationError is returned when an address cannot be derived from the
// program and seeds.
type DerivationError struct {
	Kind    DerivationErrorKind
	Program ed25519.PublicKey
	Err     error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot derive address for program %s: %s", base58.Encode(e.Program), e.Kind)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

// Deriver derives program addresses. Seed order is significant and seeds are
// used byte for byte.
type Deriver interface {
	Derive(program ed25519.PublicKey, seeds ...[]byte) (Address, error)
}

type deriver struct {
	log   *logrus.Entry
	cache cache.Cache
}

// NewDeriver returns a Deriver that memoises up to budget addresses. A
// non-positive budget disables memoisation.
func NewDeriver(budget int) Deriver {
	d := &deriver{
		log: logrus.StandardLogger().WithField("type", "solana/pda"),
	}
	if budget > 0 {
		d.cache = cache.NewCache(budget)
	}
	return d
}

func (d *deriver) Derive(program ed25519.PublicKey, seeds ...[]byte) (Address, error) {
	if len(program) != ed25519.PublicKeySize {
		return Address{}, errors.Errorf("invalid program id length: %d", len(program))
	}

	var key string
	if d.cache != nil {
		key = cacheKey(program, seeds)
		if cached, ok := d.cache.Retrieve(key); ok {
			return cached.(Address), nil
		}
	}

	addr, err := Derive(program, seeds...)
	if err != nil {
		return Address{}, err
	}

	if d.cache != nil {
		// A concurrent derivation of the same key may have won the insert
		if err := d.cache.Insert(key, addr, 1); err != nil && err != cache.ErrKeyExists {
			d.log.WithError(err).Warn("failed to cache derived address")
		}
	}

	return addr, nil
}

// Derive derives an address without memoisation.
func Derive(program ed25519.PublicKey, seeds ...[]byte) (Address, error) {
	pub, bump, err := solana.FindProgramAddressAndBump(program, seeds...)
	switch err {
	case nil:
		return Address{PublicKey: pub, Bump: bump}, nil
	case solana.ErrTooManySeeds:
		return Address{}, &DerivationError{Kind: TooManySeeds, Program: program, Err: err}
	case solana.ErrMaxSeedLengthExceeded:
		return Address{}, &DerivationError{Kind: SeedTooLong, Program: program, Err: err}
	case solana.ErrNoValidBump:
		return Address{}, &DerivationError{Kind: NoValidBump, Program: program, Err: err}
	default:
		return Address{}, errors.Wrap(err, "failed to derive program address")
	}
}

// cacheKey length prefixes every seed so that ["ab", "c"] and ["a", "bc"]
// never share a key.
func cacheKey(program ed25519.PublicKey, seeds [][]byte) string {
	var sb strings.Builder
	sb.Write(program)

	var n [4]byte
	for _, s := range seeds {
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		sb.Write(n[:])
		sb.Write(s)
	}
	return sb.String()
}
