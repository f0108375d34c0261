package mgraph_test

import (
	"fmt"
	"testing"

	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcodec/mcodectest"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mgraph/mgraphtest"
	"github.com/stretchr/testify/require"
)

func twoThreadContext() *mcodec.SerializationContext {
	sc := mcodec.DefaultSerializationContext()
	sc.ParentCount = 2
	return &sc
}

func TestBootstrapableGraph_compliance(t *testing.T) {
	// Nine final blocks cross a byte boundary in the finality bitset.
	var nineBlocks []mgraph.ExportActiveBlock
	for i := range 9 {
		nineBlocks = append(nineBlocks, mgraph.ExportActiveBlock{
			ID:      mgraph.BlockIDForTests(fmt.Sprintf("b%d", i)),
			IsFinal: i%2 == 0,
		})
	}

	mcodectest.TestCodecCompliance(t, twoThreadContext(), []mcodectest.Case[mgraph.BootstrapableGraph]{
		{Name: "empty", Value: mgraph.BootstrapableGraph{}},
		{Name: "two threads", Value: mgraphtest.TwoThreadGraph()},
		{Name: "active blocks", Value: mgraphtest.ActiveGraph()},
		{Name: "nine blocks", Value: mgraph.BootstrapableGraph{ActiveBlocks: nineBlocks}},
	})
}

func TestBootstrapableGraph_preservesOrder(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()
	g := mgraphtest.TwoThreadGraph()

	enc, err := g.AppendCompact(nil, sc)
	require.NoError(t, err)

	var got mgraph.BootstrapableGraph
	n, err := got.DecodeCompact(enc, sc)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)

	require.Equal(t, mgraph.BlockIDForTests("parent11"), got.BestParents[0])
	require.Equal(t, mgraph.BlockIDForTests("parent12"), got.BestParents[1])
	require.Equal(t, uint64(24), got.LatestFinalBlocksPeriods[1].Period)
	require.True(t, got.GIHead[mgraph.BlockIDForTests("gi_head12")].Has(mgraph.BlockIDForTests("set22")))
}

func TestBootstrapableGraph_encodeLimits(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()
	sc.MaxBootstrapCliques = 1
	sc.MaxBootstrapDeps = 1
	sc.MaxBlockSize = 4

	for name, g := range map[string]mgraph.BootstrapableGraph{
		"too many best parents": {
			BestParents: make([]mgraph.BlockID, 3),
		},
		"too many cliques": {
			MaxCliques: []mgraph.BlockIDSet{nil, nil},
		},
		"too many dependencies": {
			ActiveBlocks: []mgraph.ExportActiveBlock{{
				Dependencies: mgraph.NewBlockIDSet(
					mgraph.BlockIDForTests("a"), mgraph.BlockIDForTests("b"),
				),
			}},
		},
		"block too large": {
			ActiveBlocks: []mgraph.ExportActiveBlock{{Block: []byte("12345")}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := g.AppendCompact(nil, sc)
			require.ErrorIs(t, err, mcodec.ErrLimitExceeded)
		})
	}
}

func TestBootstrapableGraph_decodeLimitsBeforeAllocation(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()

	// A declared count of a billion active blocks with nothing following
	// must fail on the count, not on truncation.
	in := mcodec.AppendUvarint(nil, 1_000_000_000)

	var got mgraph.BootstrapableGraph
	_, err := got.DecodeCompact(in, sc)
	require.ErrorIs(t, err, mcodec.ErrLimitExceeded)
}

func TestBootstrapableGraph_decodeLimitIsContextual(t *testing.T) {
	t.Parallel()

	g := mgraphtest.TwoThreadGraph()
	enc, err := g.AppendCompact(nil, twoThreadContext())
	require.NoError(t, err)

	// The same bytes under a single-thread context exceed the parent count.
	oneThread := twoThreadContext()
	oneThread.ParentCount = 1

	var got mgraph.BootstrapableGraph
	_, err = got.DecodeCompact(enc, oneThread)
	require.ErrorIs(t, err, mcodec.ErrLimitExceeded)
}

func TestBootstrapableGraph_rejectsNonCanonical(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()

	a := mgraph.BlockIDForTests("a")
	b := mgraph.BlockIDForTests("b")
	if a.Compare(b) > 0 {
		a, b = b, a
	}

	// Hand-build a graph whose single clique lists b before a.
	var in []byte
	in = mcodec.AppendUvarint(in, 0) // active blocks
	in = mcodec.AppendUvarint(in, 0) // best parents
	in = mcodec.AppendUvarint(in, 0) // latest final
	in = mcodec.AppendUvarint(in, 0) // gi head
	in = mcodec.AppendUvarint(in, 1) // cliques
	in = mcodec.AppendUvarint(in, 2)
	in = append(in, b[:]...)
	in = append(in, a[:]...)

	var got mgraph.BootstrapableGraph
	_, err := got.DecodeCompact(in, sc)
	require.ErrorContains(t, err, "out of order or duplicated")

	// Duplicates are rejected the same way.
	in = in[:len(in)-2*mgraph.BlockIDSize]
	in = append(in, a[:]...)
	in = append(in, a[:]...)
	_, err = got.DecodeCompact(in, sc)
	require.ErrorContains(t, err, "out of order or duplicated")
}

func TestBootstrapableGraph_emptyCollectionsDecodeNil(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()
	empty := mgraph.BootstrapableGraph{
		ActiveBlocks: []mgraph.ExportActiveBlock{{
			ID:           mgraph.BlockIDForTests("only"),
			Block:        []byte{},
			Parents:      []mgraph.BlockRef{},
			Children:     []map[mgraph.BlockID]uint64{{}, {}},
			Dependencies: mgraph.BlockIDSet{},
		}},
		BestParents:              []mgraph.BlockID{},
		LatestFinalBlocksPeriods: []mgraph.BlockRef{},
		GIHead:                   map[mgraph.BlockID]mgraph.BlockIDSet{},
		MaxCliques:               []mgraph.BlockIDSet{},
	}
	canonical := mgraph.BootstrapableGraph{
		ActiveBlocks: []mgraph.ExportActiveBlock{{
			ID:       mgraph.BlockIDForTests("only"),
			Children: []map[mgraph.BlockID]uint64{nil, nil},
		}},
	}

	encEmpty, err := empty.AppendCompact(nil, sc)
	require.NoError(t, err)
	encCanonical, err := canonical.AppendCompact(nil, sc)
	require.NoError(t, err)
	require.Equal(t, encCanonical, encEmpty)

	var got mgraph.BootstrapableGraph
	require.NoError(t, mcodec.Decode(&got, encEmpty, sc))
	require.Equal(t, canonical, got)
}

func TestBootstrapableGraph_rejectsFinalityPadding(t *testing.T) {
	t.Parallel()

	sc := twoThreadContext()
	g := mgraph.BootstrapableGraph{
		ActiveBlocks: []mgraph.ExportActiveBlock{{ID: mgraph.BlockIDForTests("only")}},
	}
	enc, err := g.AppendCompact(nil, sc)
	require.NoError(t, err)

	// Layout: count(1) + id(32) + block len(1) + parents(1) + children(1) + deps(1),
	// then the single finality byte.
	finalityIdx := 1 + mgraph.BlockIDSize + 4
	require.Zero(t, enc[finalityIdx])
	enc[finalityIdx] = 0x02

	var got mgraph.BootstrapableGraph
	_, err = got.DecodeCompact(enc, sc)
	require.ErrorContains(t, err, "padding bit")
}

func TestBlockIDSet_Sorted(t *testing.T) {
	t.Parallel()

	s := mgraph.NewBlockIDSet(
		mgraph.BlockIDForTests("x"), mgraph.BlockIDForTests("y"), mgraph.BlockIDForTests("z"),
	)
	sorted := s.Sorted()
	require.Len(t, sorted, 3)
	for i := 1; i < len(sorted); i++ {
		require.Negative(t, sorted[i-1].Compare(sorted[i]))
	}

	require.Nil(t, mgraph.NewBlockIDSet())
}
