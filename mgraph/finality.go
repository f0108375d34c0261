package mgraph

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/lareeq/massa/mcodec"
)

// appendFinality writes one bit per active block, set when the block is final,
// packed into ceil(n/8) bytes.
// Bits are little endian within each word,
// which matches the in-memory layout of the bitset words.
func appendFinality(dst []byte, blocks []ExportActiveBlock) []byte {
	n := len(blocks)
	if n == 0 {
		return dst
	}

	bs := bitset.New(uint(n))
	for i, b := range blocks {
		if b.IsFinal {
			bs.Set(uint(i))
		}
	}

	words := bs.Words()
	for i := range finalityBytes(n) {
		dst = append(dst, byte(words[i/8]>>(8*(i%8))))
	}
	return dst
}

func readFinality(c *mcodec.Cursor, blocks []ExportActiveBlock) error {
	n := len(blocks)
	if n == 0 {
		return nil
	}

	raw, err := c.Fixed("finality bitset", finalityBytes(n))
	if err != nil {
		return err
	}

	words := make([]uint64, (n+63)/64)
	for i, b := range raw {
		words[i/8] |= uint64(b) << (8 * (i % 8))
	}
	bs := bitset.From(words)

	// Padding bits past the last block must be clear.
	if extra, ok := bs.NextSet(uint(n)); ok {
		return fmt.Errorf("finality bitset has padding bit %d set for %d blocks", extra, n)
	}

	for i := range blocks {
		blocks[i].IsFinal = bs.Test(uint(i))
	}
	return nil
}

func finalityBytes(n int) int {
	return (n + 7) / 8
}
