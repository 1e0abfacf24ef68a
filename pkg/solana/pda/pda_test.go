package pda

import (
	"crypto/ed25519"
	"sync"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	identityProgram    = "G8iYmvncvWsfHRrxZvKuPU6B2kcMj82Lpcf6og6SyMkW"
	attestationProgram = "DTtjXcvxsKHnukZiLtaQ2dHJXC5HtUAwUa9WgsMd3So4"
	consensusProgram   = "A4Ee2KoPz4y9XyEBta9DyXvKPnWy2GvprDzfVF1PnjtR"
	capabilityProgram  = "FAnRqmauRE5vtk7ft3FWHicrKKRw3XwbxvYVxuaeRcCK"

	owner = "5nNBW1KhzHVbR4NMPLYPRYj3UN5vgiw5GrtpdK6eGoce"
)

func TestDerive_Golden(t *testing.T) {
	d := NewDeriver(DefaultCacheBudget)

	issuerPDA := mustDerive(t, d, attestationProgram, []byte("issuer"), mustBase58(t, owner))
	consensusPDA := mustDerive(t, d, consensusProgram, []byte("consensus"), []byte("agent-001"), []byte("transfer"), mustBase58(t, owner))
	validatorPDA := mustDerive(t, d, consensusProgram, []byte("validator"), mustBase58(t, owner))

	taskHash := make([]byte, 32)
	for i := range taskHash {
		taskHash[i] = byte(i)
	}

	for _, tc := range []struct {
		program  string
		seeds    [][]byte
		expected string
		bump     uint8
	}{
		{identityProgram, [][]byte{[]byte("config")}, "2VYQzU6tbUDowqvfLFoz5MNLmU8tB12gQwannWU2otsw", 249},
		{identityProgram, [][]byte{[]byte("identity"), []byte("agent-001")}, "BTFUfZc991HyYpuBrqABKfkengGKMMZyVXtAmhtPM1hf", 255},
		{identityProgram, [][]byte{[]byte("identity"), []byte("test-agent-001")}, "4L1jKj3UtFpRLf2FKtkDN3CPqqosDZ32jwWDNmfRuiyX", 252},
		{identityProgram, [][]byte{[]byte("reputation"), []byte("agent-001")}, "Ap4wF8tcHq4JYbvhtUY2d9EzcuePMyYB8s6iKnv9sfka", 255},
		{identityProgram, [][]byte{[]byte("reward_pool"), []byte("agent-001")}, "Dgvewb4tzmg9BdE8pkPEgfeG6L1gaWcs5uVZxoy79F6J", 255},
		{identityProgram, [][]byte{[]byte("validator"), mustBase58(t, owner)}, "CcLbZU4h4oDyrg6jJLaJNHNEKBr26uvtP3m2QUU4rcoj", 254},
		{identityProgram, [][]byte{[]byte("validation"), []byte("agent-001"), taskHash}, "TqWXs8gNHou9enUZJc9ns72ACDsLYa2tCTzrv5iRgVJ", 255},
		{attestationProgram, [][]byte{[]byte("config")}, "8SfDQJn3xRyiNsBMHNQcZJCk7aDdbaRrARiaB3etnRxy", 254},
		{attestationProgram, [][]byte{[]byte("issuer"), mustBase58(t, owner)}, "6hQ6yNcYW6P7iP4fszbP4r3Vj5iJKTQEHCAVDf5gcP3n", 254},
		{attestationProgram, [][]byte{[]byte("attestation"), []byte("agent-001"), []byte("kyc"), issuerPDA.PublicKey}, "AcGBQRNrv9rdAu4BhvqwKAdsUp8SftHe2NypKLHdFLdq", 253},
		{consensusProgram, [][]byte{[]byte("validator"), mustBase58(t, owner)}, "BiwEYghoKv2H4TLddeLAJyLBibVjSoc44Tna4XJVkQb1", 255},
		{consensusProgram, [][]byte{[]byte("consensus"), []byte("agent-001"), []byte("transfer"), mustBase58(t, owner)}, "297A3z4RUfuVyk8QTQMpqV8vaxS4xLNC5KyCKGVuquiV", 255},
		{consensusProgram, [][]byte{[]byte("vote"), consensusPDA.PublicKey, validatorPDA.PublicKey}, "J5reLk13GTqX7dKkbsXGtysbxezqNr9vYvfuoDBjtRjs", 253},
		{capabilityProgram, [][]byte{[]byte("config")}, "BcTM5qX7PPNToi7r48gJ12EhDc5o9SxaUnor7GZwQzuY", 255},
		{capabilityProgram, [][]byte{[]byte("capability"), []byte("agent-001"), []byte("text-generation")}, "bCbyTVDHboh9HGnJkq8aXXbbPhPbEGakwvBo61qP3c2", 255},
	} {
		addr := mustDerive(t, d, tc.program, tc.seeds...)
		assert.Equal(t, tc.expected, addr.String())
		assert.Equal(t, tc.bump, addr.Bump)

		// Same inputs, same output, cached or not
		uncached, err := Derive(mustBase58(t, tc.program), tc.seeds...)
		require.NoError(t, err)
		assert.Equal(t, addr, uncached)
	}
}

func TestDerive_MatchesSolanaGo(t *testing.T) {
	d := NewDeriver(0)

	for _, seeds := range [][][]byte{
		{[]byte("config")},
		{[]byte("identity"), []byte("agent-001")},
		{[]byte("identity"), []byte("nonexistent")},
		{[]byte("capability"), []byte("agent-001"), []byte("text-generation")},
		{[]byte("validator"), mustBase58(t, owner)},
	} {
		addr, err := d.Derive(mustBase58(t, identityProgram), seeds...)
		require.NoError(t, err)

		expected, bump, err := solanago.FindProgramAddress(seeds, solanago.MustPublicKeyFromBase58(identityProgram))
		require.NoError(t, err)

		assert.Equal(t, expected.String(), addr.String())
		assert.Equal(t, bump, addr.Bump)
	}
}

func TestDerive_SeedOrder(t *testing.T) {
	d := NewDeriver(DefaultCacheBudget)

	a := mustDerive(t, d, identityProgram, []byte("identity"), []byte("agent-001"))
	b := mustDerive(t, d, identityProgram, []byte("agent-001"), []byte("identity"))
	assert.NotEqual(t, a.PublicKey, b.PublicKey)

	// Concatenation boundaries matter to the cache key but not to the hash
	c := mustDerive(t, d, identityProgram, []byte("identityagent-001"))
	e, err := Derive(mustBase58(t, identityProgram), []byte("identityagent-001"))
	require.NoError(t, err)
	assert.Equal(t, e, c)
	assert.Equal(t, a.PublicKey, c.PublicKey)
}

func TestDerive_Limits(t *testing.T) {
	d := NewDeriver(DefaultCacheBudget)
	program := mustBase58(t, identityProgram)

	_, err := d.Derive(program, make([]byte, 33))
	assertDerivationError(t, err, SeedTooLong)

	_, err = d.Derive(program, make([]byte, 32))
	assert.NoError(t, err)

	seeds := make([][]byte, 16)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, err = d.Derive(program, seeds...)
	assertDerivationError(t, err, TooManySeeds)

	_, err = d.Derive(program, seeds[:15]...)
	assert.NoError(t, err)

	_, err = d.Derive(program[:31], []byte("config"))
	assert.Error(t, err)
}

func TestDerive_Concurrent(t *testing.T) {
	d := NewDeriver(8)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			addr, err := d.Derive(mustBase58(t, identityProgram), []byte("identity"), []byte("agent-001"))
			assert.NoError(t, err)
			assert.Equal(t, "BTFUfZc991HyYpuBrqABKfkengGKMMZyVXtAmhtPM1hf", addr.String())

			_, err = d.Derive(mustBase58(t, identityProgram), []byte("identity"), []byte{byte(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func mustDerive(t *testing.T, d Deriver, program string, seeds ...[]byte) Address {
	addr, err := d.Derive(mustBase58(t, program), seeds...)
	require.NoError(t, err)
	return addr
}

func mustBase58(t *testing.T, s string) ed25519.PublicKey {
	b, err := base58.Decode(s)
	require.NoError(t, err)
	return b
}

func assertDerivationError(t *testing.T, err error, kind DerivationErrorKind) {
	var derr *DerivationError
	require.True(t, errors.As(err, &derr), "expected DerivationError, got %v", err)
	assert.Equal(t, kind, derr.Kind)
}
