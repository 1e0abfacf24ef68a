package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a random signing key
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return key
}

// GenerateSolanaKeys returns n random public keys, for accounts that never
// sign.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		keys[i] = GenerateSolanaKeypair(t).Public().(ed25519.PublicKey)
	}
	return keys
}

// KeypairFromSeed returns a deterministic keypair, for tests that compare
// against golden addresses or signatures.
func KeypairFromSeed(seed byte) ed25519.PrivateKey {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	return ed25519.NewKeyFromSeed(s)
}
