package mgraph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/lareeq/massa/mcodec"
)

// BlockRef is a block and the period of its slot.
type BlockRef struct {
	ID     BlockID
	Period uint64
}

func appendBlockRef(dst []byte, r BlockRef) ([]byte, error) {
	if r.Period > mcodec.MaxVarintValue {
		return nil, fmt.Errorf("period %d out of encodable range", r.Period)
	}
	dst = appendBlockID(dst, r.ID)
	return mcodec.AppendUvarint(dst, r.Period), nil
}

func readBlockRef(c *mcodec.Cursor, field string) (BlockRef, error) {
	id, err := readBlockID(c, field)
	if err != nil {
		return BlockRef{}, err
	}
	period, err := c.Uvarint(field + " period")
	if err != nil {
		return BlockRef{}, err
	}
	return BlockRef{ID: id, Period: period}, nil
}

// appendBlockRefs writes a varint count bounded by limit, then each ref.
func appendBlockRefs(dst []byte, refs []BlockRef, field string, limit uint32) ([]byte, error) {
	if err := mcodec.CheckLimit(field, len(refs), limit); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(refs)))

	var err error
	for _, r := range refs {
		if dst, err = appendBlockRef(dst, r); err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
	}
	return dst, nil
}

func readBlockRefs(c *mcodec.Cursor, field string, limit uint32) ([]BlockRef, error) {
	n, err := c.Length(field, limit)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]BlockRef, n)
	for i := range out {
		if out[i], err = readBlockRef(c, field); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExportActiveBlock is an active block as exported for bootstrap.
type ExportActiveBlock struct {
	ID BlockID

	// The serialized block, opaque to this package.
	Block []byte

	// Parent of this block in each thread.
	Parents []BlockRef

	// Children of this block in each thread, mapped to their period.
	// Entries for threads without children are nil.
	Children []map[BlockID]uint64

	// Blocks this block depends on.
	Dependencies BlockIDSet

	// Whether the block is final.
	// Encoded in the graph's finality bitset rather than per block.
	IsFinal bool
}

func (b ExportActiveBlock) appendCompact(dst []byte, sc *mcodec.SerializationContext) ([]byte, error) {
	dst = appendBlockID(dst, b.ID)

	if err := mcodec.CheckLimit("block size", len(b.Block), sc.MaxBlockSize); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(b.Block)))
	dst = append(dst, b.Block...)

	var err error
	if dst, err = appendBlockRefs(dst, b.Parents, "block parents", uint32(sc.ParentCount)); err != nil {
		return nil, err
	}

	if err := mcodec.CheckLimit("children threads", len(b.Children), uint32(sc.ParentCount)); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(b.Children)))
	for _, children := range b.Children {
		if err := mcodec.CheckLimit("block children", len(children), sc.MaxBootstrapChildren); err != nil {
			return nil, err
		}
		dst = mcodec.AppendUvarint(dst, uint64(len(children)))
		for _, id := range slices.SortedFunc(maps.Keys(children), BlockID.Compare) {
			if dst, err = appendBlockRef(dst, BlockRef{ID: id, Period: children[id]}); err != nil {
				return nil, fmt.Errorf("block children: %w", err)
			}
		}
	}

	return appendBlockIDSet(dst, b.Dependencies, "block dependencies", sc.MaxBootstrapDeps)
}

func (b *ExportActiveBlock) decode(c *mcodec.Cursor, sc *mcodec.SerializationContext) error {
	var err error
	if b.ID, err = readBlockID(c, "active block id"); err != nil {
		return err
	}

	sz, err := c.Length("block size", sc.MaxBlockSize)
	if err != nil {
		return err
	}
	raw, err := c.Fixed("block", sz)
	if err != nil {
		return err
	}
	b.Block = nil
	if sz > 0 {
		// Copy so the snapshot does not pin the whole message buffer.
		b.Block = slices.Clone(raw)
	}

	if b.Parents, err = readBlockRefs(c, "block parents", uint32(sc.ParentCount)); err != nil {
		return err
	}

	threads, err := c.Length("children threads", uint32(sc.ParentCount))
	if err != nil {
		return err
	}
	b.Children = nil
	if threads > 0 {
		b.Children = make([]map[BlockID]uint64, threads)
	}
	for t := range b.Children {
		n, err := c.Length("block children", sc.MaxBootstrapChildren)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		m := make(map[BlockID]uint64, n)
		var prev BlockID
		for i := range n {
			r, err := readBlockRef(c, "block child")
			if err != nil {
				return err
			}
			if i > 0 && prev.Compare(r.ID) >= 0 {
				return nonCanonicalError{Field: "block children", ID: r.ID}
			}
			m[r.ID] = r.Period
			prev = r.ID
		}
		b.Children[t] = m
	}

	b.Dependencies, err = readBlockIDSet(c, "block dependencies", sc.MaxBootstrapDeps)
	return err
}

// BootstrapableGraph is the snapshot of consensus state
// sent as the last step of a bootstrap.
//
// The compact encoding is, in order:
// the active blocks, a finality bitset over the active blocks,
// the best parents, the latest final blocks,
// the incompatibility graph head, and the maximal cliques.
// Per-thread sequences (block parents and children, best parents,
// latest final blocks) are a varint count bounded by ParentCount,
// followed by that many entries.
// Maps and sets are written in ascending block ID order,
// and decoding rejects any other order or duplicate IDs,
// so that every graph has exactly one encoding.
type BootstrapableGraph struct {
	// Active blocks, in the order the consensus engine exported them.
	ActiveBlocks []ExportActiveBlock

	// Best parent in each thread.
	BestParents []BlockID

	// Latest final block and its period, in each thread.
	LatestFinalBlocksPeriods []BlockRef

	// Head of the incompatibility graph:
	// each block mapped to the blocks it conflicts with.
	GIHead map[BlockID]BlockIDSet

	// Maximal cliques of mutually compatible blocks.
	MaxCliques []BlockIDSet
}

var _ mcodec.Codec = (*BootstrapableGraph)(nil)

// AppendCompact implements [mcodec.Encoder].
func (g BootstrapableGraph) AppendCompact(dst []byte, sc *mcodec.SerializationContext) ([]byte, error) {
	if err := mcodec.CheckLimit("active blocks", len(g.ActiveBlocks), sc.MaxBootstrapBlocks); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(g.ActiveBlocks)))

	var err error
	for i, b := range g.ActiveBlocks {
		if dst, err = b.appendCompact(dst, sc); err != nil {
			return nil, fmt.Errorf("active block %d: %w", i, err)
		}
	}
	dst = appendFinality(dst, g.ActiveBlocks)

	if err := mcodec.CheckLimit("best parents", len(g.BestParents), uint32(sc.ParentCount)); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(g.BestParents)))
	for _, id := range g.BestParents {
		dst = appendBlockID(dst, id)
	}

	if dst, err = appendBlockRefs(
		dst, g.LatestFinalBlocksPeriods, "latest final blocks", uint32(sc.ParentCount),
	); err != nil {
		return nil, err
	}

	if err := mcodec.CheckLimit("incompatibility graph", len(g.GIHead), sc.MaxBootstrapBlocks); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(g.GIHead)))
	for _, id := range slices.SortedFunc(maps.Keys(g.GIHead), BlockID.Compare) {
		dst = appendBlockID(dst, id)
		if dst, err = appendBlockIDSet(dst, g.GIHead[id], "incompatibilities", sc.MaxBootstrapBlocks); err != nil {
			return nil, err
		}
	}

	if err := mcodec.CheckLimit("max cliques", len(g.MaxCliques), sc.MaxBootstrapCliques); err != nil {
		return nil, err
	}
	dst = mcodec.AppendUvarint(dst, uint64(len(g.MaxCliques)))
	for _, clique := range g.MaxCliques {
		if dst, err = appendBlockIDSet(dst, clique, "clique", sc.MaxBootstrapBlocks); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// DecodeCompact implements [mcodec.Decoder].
func (g *BootstrapableGraph) DecodeCompact(src []byte, sc *mcodec.SerializationContext) (int, error) {
	c := mcodec.NewCursor(src, sc)

	var out BootstrapableGraph

	n, err := c.Length("active blocks", sc.MaxBootstrapBlocks)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		out.ActiveBlocks = make([]ExportActiveBlock, n)
	}
	for i := range out.ActiveBlocks {
		if err := out.ActiveBlocks[i].decode(c, sc); err != nil {
			return 0, fmt.Errorf("active block %d: %w", i, err)
		}
	}
	if err := readFinality(c, out.ActiveBlocks); err != nil {
		return 0, err
	}

	n, err = c.Length("best parents", uint32(sc.ParentCount))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		out.BestParents = make([]BlockID, n)
	}
	for i := range out.BestParents {
		if out.BestParents[i], err = readBlockID(c, "best parent"); err != nil {
			return 0, err
		}
	}

	out.LatestFinalBlocksPeriods, err = readBlockRefs(c, "latest final blocks", uint32(sc.ParentCount))
	if err != nil {
		return 0, err
	}

	n, err = c.Length("incompatibility graph", sc.MaxBootstrapBlocks)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		out.GIHead = make(map[BlockID]BlockIDSet, n)
	}
	var prev BlockID
	for i := range n {
		id, err := readBlockID(c, "incompatibility graph block")
		if err != nil {
			return 0, err
		}
		if i > 0 && prev.Compare(id) >= 0 {
			return 0, nonCanonicalError{Field: "incompatibility graph", ID: id}
		}
		prev = id

		if out.GIHead[id], err = readBlockIDSet(c, "incompatibilities", sc.MaxBootstrapBlocks); err != nil {
			return 0, err
		}
	}

	n, err = c.Length("max cliques", sc.MaxBootstrapCliques)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		out.MaxCliques = make([]BlockIDSet, n)
	}
	for i := range out.MaxCliques {
		if out.MaxCliques[i], err = readBlockIDSet(c, "clique", sc.MaxBootstrapBlocks); err != nil {
			return 0, err
		}
	}

	*g = out
	return c.Offset(), nil
}

type nonCanonicalError struct {
	Field string
	ID    BlockID
}

func (e nonCanonicalError) Error() string {
	return fmt.Sprintf("%s: block %s out of order or duplicated", e.Field, e.ID)
}
