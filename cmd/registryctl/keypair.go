package main

import (
	"bytes"
	"crypto/ed25519"
	"os"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// loadKeypair reads a private key in the Solana CLI format, a JSON array of
// the 64 key bytes, or as a base58 string.
func loadKeypair(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keypair")
	}
	return parseKeypair(data)
}

func parseKeypair(data []byte) (ed25519.PrivateKey, error) {
	data = bytes.TrimSpace(data)

	var raw []byte
	if bytes.HasPrefix(data, []byte("[")) {
		var values []int
		if err := sonic.Unmarshal(data, &values); err != nil {
			return nil, errors.Wrap(err, "invalid keypair json")
		}

		raw = make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("invalid keypair byte at %d: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(string(data))
		if err != nil {
			return nil, errors.Wrap(err, "invalid base58 keypair")
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	key := ed25519.PrivateKey(raw)
	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !bytes.Equal(derived, key) {
		return nil, errors.New("keypair public key does not match its seed")
	}
	return key, nil
}
