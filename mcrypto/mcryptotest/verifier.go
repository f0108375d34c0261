package mcryptotest

import (
	"errors"
	"sync"

	"github.com/lareeq/massa/mcrypto"
)

// RecordingVerifier wraps a [mcrypto.Verifier]
// and records every transcript it was asked to verify.
// It is safe for concurrent use.
type RecordingVerifier struct {
	V mcrypto.Verifier

	mu          sync.Mutex
	transcripts [][]byte
}

var _ mcrypto.Verifier = (*RecordingVerifier)(nil)

func (v *RecordingVerifier) Verify(pub mcrypto.PublicKey, transcript []byte, sig mcrypto.Signature) error {
	v.mu.Lock()
	v.transcripts = append(v.transcripts, append([]byte(nil), transcript...))
	v.mu.Unlock()

	return v.V.Verify(pub, transcript, sig)
}

// Transcripts returns copies of every transcript seen so far, in order.
func (v *RecordingVerifier) Transcripts() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([][]byte, len(v.transcripts))
	for i, t := range v.transcripts {
		out[i] = append([]byte(nil), t...)
	}
	return out
}

// DenyingVerifier rejects every signature.
type DenyingVerifier struct{}

var _ mcrypto.Verifier = DenyingVerifier{}

func (DenyingVerifier) Verify(mcrypto.PublicKey, []byte, mcrypto.Signature) error {
	return mcrypto.SignatureInvalidError{Err: errors.New("denied by test verifier")}
}
