package mtest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomDataForTest returns a byte slice of size sz
// containing pseudorandom data, derived from a seed based on the test name.
func RandomDataForTest(t *testing.T, sz int) []byte {
	out := make([]byte, sz)
	if _, err := RandomReaderForTest(t).Read(out); err != nil {
		panic(err)
	}

	return out
}

// RandomReaderForTest returns a deterministic reader seeded from the test name.
// Two calls in the same test return readers producing the same stream.
func RandomReaderForTest(t *testing.T) *rand.ChaCha8 {
	// Sha256 happens to be the right size for the chacha8 seed,
	// and this fits well anyway since that means
	// we are not limited by the length of any particular test name.
	return rand.NewChaCha8(sha256.Sum256([]byte(t.Name())))
}
