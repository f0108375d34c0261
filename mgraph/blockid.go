// Package mgraph contains the consensus graph snapshot
// transferred at the end of a bootstrap.
//
// The snapshot is produced and consumed by the consensus engine;
// this package only defines its shape and its bounded compact codec.
// Semantic checks (parents existing, cliques being maximal, and so on)
// belong to the consensus engine.
package mgraph

import (
	"bytes"
	"maps"
	"slices"

	"github.com/lareeq/massa/mcodec"
	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// BlockIDSize is the length of a [BlockID].
const BlockIDSize = 32

// BlockID identifies a block by the hash of its header.
type BlockID [BlockIDSize]byte

// BlockIDForTests returns the SHA-256 of s as a BlockID,
// giving tests readable, distinct identifiers.
func BlockIDForTests(s string) BlockID {
	return sha256.Sum256([]byte(s))
}

func (id BlockID) String() string {
	return base58.Encode(id[:])
}

// Compare orders block IDs bytewise.
func (id BlockID) Compare(other BlockID) int {
	return bytes.Compare(id[:], other[:])
}

// BlockIDSet is an unordered set of block IDs.
// Its encoding lists members in ascending [BlockID.Compare] order.
type BlockIDSet map[BlockID]struct{}

// NewBlockIDSet returns a set of ids.
// It returns nil for no ids, matching what decoders produce.
func NewBlockIDSet(ids ...BlockID) BlockIDSet {
	if len(ids) == 0 {
		return nil
	}
	s := make(BlockIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in s.
func (s BlockIDSet) Has(id BlockID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members of s in ascending order.
func (s BlockIDSet) Sorted() []BlockID {
	return slices.SortedFunc(maps.Keys(s), BlockID.Compare)
}

func appendBlockID(dst []byte, id BlockID) []byte {
	return append(dst, id[:]...)
}

func readBlockID(c *mcodec.Cursor, field string) (BlockID, error) {
	var id BlockID
	err := c.ReadInto(field, id[:])
	return id, err
}

// appendBlockIDSet writes a varint count followed by the sorted members.
func appendBlockIDSet(dst []byte, s BlockIDSet, field string, limit uint32) ([]byte, error) {
	if err := mcodec.CheckLimit(field, len(s), limit); err != nil {
		return nil, err
	}

	dst = mcodec.AppendUvarint(dst, uint64(len(s)))
	for _, id := range s.Sorted() {
		dst = appendBlockID(dst, id)
	}
	return dst, nil
}

func readBlockIDSet(c *mcodec.Cursor, field string, limit uint32) (BlockIDSet, error) {
	n, err := c.Length(field, limit)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	s := make(BlockIDSet, n)
	var prev BlockID
	for i := range n {
		id, err := readBlockID(c, field)
		if err != nil {
			return nil, err
		}
		if i > 0 && prev.Compare(id) >= 0 {
			return nil, nonCanonicalError{Field: field, ID: id}
		}
		s[id] = struct{}{}
		prev = id
	}
	return s, nil
}
