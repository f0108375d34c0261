// Package mcrypto contains the fixed-size signature and key values
// carried in bootstrap messages,
// and the signing and verification contracts the handshake consumes.
package mcrypto

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
)

// SignatureSize is the fixed length of an encoded [Signature].
const SignatureSize = ed25519.SignatureSize

// PublicKeySize is the fixed length of an encoded [PublicKey].
const PublicKeySize = ed25519.PublicKeySize

// Signature is a raw signature.
// Its wire form is exactly its SignatureSize bytes, with no length prefix.
type Signature [SignatureSize]byte

// SignatureFromBytes copies b into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, fmt.Errorf("invalid signature length %d (want %d)", len(b), SignatureSize)
	}
	copy(s[:], b)
	return s, nil
}

// String returns the bs58check form of s.
func (s Signature) String() string {
	return encodeCheck(s[:])
}

// ParseSignature parses the output of [Signature.String].
func ParseSignature(text string) (Signature, error) {
	b, err := decodeCheck(text)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to parse signature: %w", err)
	}
	return SignatureFromBytes(b)
}

// PublicKey is a raw ed25519 public key.
type PublicKey [PublicKeySize]byte

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeySize {
		return k, fmt.Errorf("invalid public key length %d (want %d)", len(b), PublicKeySize)
	}
	copy(k[:], b)
	return k, nil
}

// String returns the bs58check form of k.
func (k PublicKey) String() string {
	return encodeCheck(k[:])
}

// ParsePublicKey parses the output of [PublicKey.String].
func ParsePublicKey(text string) (PublicKey, error) {
	b, err := decodeCheck(text)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// Signer produces signatures over arbitrary transcripts.
//
// Implementations may block, for instance when the key lives in an HSM;
// they should respect cancellation of ctx.
type Signer interface {
	Sign(ctx context.Context, transcript []byte) (Signature, error)

	// PublicKey returns the key that verifies this signer's signatures.
	PublicKey() PublicKey
}

// Verifier checks signatures over transcripts.
//
// Verify must return nil only if sig is a valid signature by pub over transcript.
// Malformed signature bytes are reported as errors, never as panics.
type Verifier interface {
	Verify(pub PublicKey, transcript []byte, sig Signature) error
}

// ErrSignatureInvalid matches any [SignatureInvalidError].
var ErrSignatureInvalid = errors.New("signature invalid")

// SignatureInvalidError is returned from a [Verifier]
// when a signature does not verify.
type SignatureInvalidError struct {
	// Optional detail from the underlying algorithm.
	Err error
}

func (e SignatureInvalidError) Error() string {
	if e.Err == nil {
		return "signature invalid"
	}
	return "signature invalid: " + e.Err.Error()
}

func (e SignatureInvalidError) Is(target error) bool {
	return target == ErrSignatureInvalid
}

func (e SignatureInvalidError) Unwrap() error {
	return e.Err
}
