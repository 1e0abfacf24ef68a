package submitter

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/solana"
)

// Signer signs serialized transactions on behalf of an account. Signers are
// external to the submitter: a wallet, a KMS or a local keypair.
type Signer interface {
	PublicKey() ed25519.PublicKey

	// SignTransaction returns the serialized transaction with the signer's
	// signature attached. The message must not be altered.
	SignTransaction(ctx context.Context, txn []byte) ([]byte, error)
}

// KeypairSigner signs with local private keys. The first key is the signer's
// public key, the rest are co-signers such as new account keypairs.
type KeypairSigner struct {
	keys []ed25519.PrivateKey
}

func NewKeypairSigner(key ed25519.PrivateKey, cosigners ...ed25519.PrivateKey) *KeypairSigner {
	return &KeypairSigner{
		keys: append([]ed25519.PrivateKey{key}, cosigners...),
	}
}

func (s *KeypairSigner) PublicKey() ed25519.PublicKey {
	return s.keys[0].Public().(ed25519.PublicKey)
}

func (s *KeypairSigner) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	var txn solana.Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return nil, errors.Wrap(err, "invalid transaction")
	}

	if err := txn.Sign(s.keys...); err != nil {
		return nil, err
	}

	return txn.Marshal(), nil
}
