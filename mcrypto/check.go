package mcrypto

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// checksumSize is the number of double-SHA-256 bytes
// appended to a payload before base58 encoding.
const checksumSize = 4

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumSize]
}

func encodeCheck(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumSize)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)
	return base58.Encode(buf)
}

func decodeCheck(text string) ([]byte, error) {
	buf, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	if len(buf) < checksumSize {
		return nil, errors.New("input too short for checksum")
	}

	payload := buf[:len(buf)-checksumSize]
	if !bytes.Equal(checksum(payload), buf[len(buf)-checksumSize:]) {
		return nil, errors.New("checksum mismatch")
	}
	return payload, nil
}
