package mcrypto

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
)

// Ed25519Signer signs with an in-memory ed25519 private key.
type Ed25519Signer struct {
	key ed25519.PrivateKey
	pub PublicKey
}

var _ Signer = Ed25519Signer{}

// NewEd25519Signer returns a signer for key.
// It panics if key has the wrong length.
func NewEd25519Signer(key ed25519.PrivateKey) Ed25519Signer {
	if len(key) != ed25519.PrivateKeySize {
		panic(fmt.Errorf(
			"ILLEGAL: ed25519 private key must be %d bytes (got %d)",
			ed25519.PrivateKeySize, len(key),
		))
	}

	pub, err := PublicKeyFromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		panic(fmt.Errorf("BUG: derived public key had wrong size: %w", err))
	}

	return Ed25519Signer{key: key, pub: pub}
}

// GenerateEd25519Signer creates a signer with a fresh key drawn from rand.
// A nil rand uses crypto/rand.
func GenerateEd25519Signer(rand io.Reader) (Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return Ed25519Signer{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return NewEd25519Signer(priv), nil
}

// Sign implements [Signer].
// Signing with an in-memory key never blocks, so ctx is only checked up front.
func (s Ed25519Signer) Sign(ctx context.Context, transcript []byte) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}

	var sig Signature
	copy(sig[:], ed25519.Sign(s.key, transcript))
	return sig, nil
}

// PublicKey implements [Signer].
func (s Ed25519Signer) PublicKey() PublicKey {
	return s.pub
}

// Ed25519Verifier verifies ed25519 signatures.
type Ed25519Verifier struct{}

var _ Verifier = Ed25519Verifier{}

// Verify implements [Verifier].
func (Ed25519Verifier) Verify(pub PublicKey, transcript []byte, sig Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), transcript, sig[:]) {
		return SignatureInvalidError{Err: errors.New("invalid ed25519 signature")}
	}
	return nil
}
