// Package mcryptotest contains signers and verifiers for tests.
package mcryptotest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/lareeq/massa/mcrypto"
)

// NewSigner returns an ed25519 signer whose key is derived from the test name
// and the given label, so that keys are stable across runs
// and distinct labels in one test yield distinct keys.
func NewSigner(t testing.TB, label string) mcrypto.Ed25519Signer {
	seed := sha256.Sum256([]byte(t.Name() + "\n" + label))
	return mcrypto.NewEd25519Signer(ed25519.NewKeyFromSeed(seed[:]))
}

// FixedSignature returns a deterministic signature-shaped value
// that does not verify against anything.
func FixedSignature(label string) mcrypto.Signature {
	var sig mcrypto.Signature
	a := sha256.Sum256([]byte(label))
	b := sha256.Sum256(a[:])
	copy(sig[:], a[:])
	copy(sig[len(a):], b[:])
	return sig
}
