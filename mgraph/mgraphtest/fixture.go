// Package mgraphtest contains consensus graph fixtures for tests.
package mgraphtest

import "github.com/lareeq/massa/mgraph"

var id = mgraph.BlockIDForTests

// TwoThreadGraph returns a graph for a two-thread context
// with no active blocks, two best parents, two latest final blocks,
// three incompatibility graph entries and one clique of two blocks.
func TwoThreadGraph() mgraph.BootstrapableGraph {
	return mgraph.BootstrapableGraph{
		BestParents: []mgraph.BlockID{
			id("parent11"),
			id("parent12"),
		},
		LatestFinalBlocksPeriods: []mgraph.BlockRef{
			{ID: id("lfinal11"), Period: 23},
			{ID: id("lfinal12"), Period: 24},
		},
		GIHead: map[mgraph.BlockID]mgraph.BlockIDSet{
			id("gi_head11"): mgraph.NewBlockIDSet(id("set11"), id("set12")),
			id("gi_head12"): mgraph.NewBlockIDSet(id("set21"), id("set22")),
			id("gi_head13"): mgraph.NewBlockIDSet(id("set31"), id("set32")),
		},
		MaxCliques: []mgraph.BlockIDSet{
			mgraph.NewBlockIDSet(id("max_cliques11"), id("max_cliques12")),
		},
	}
}

// ActiveGraph returns a two-thread graph that also carries active blocks,
// with a mix of final and non-final blocks, children and dependencies.
func ActiveGraph() mgraph.BootstrapableGraph {
	g := TwoThreadGraph()
	g.ActiveBlocks = []mgraph.ExportActiveBlock{
		{
			ID:    id("genesis0"),
			Block: []byte("genesis block 0"),
			Children: []map[mgraph.BlockID]uint64{
				{id("block1"): 1},
				nil,
			},
			IsFinal: true,
		},
		{
			ID:    id("genesis1"),
			Block: []byte("genesis block 1"),
			Children: []map[mgraph.BlockID]uint64{
				{id("block1"): 1},
				{id("block2"): 1, id("block3"): 2},
			},
			IsFinal: true,
		},
		{
			ID:    id("block1"),
			Block: []byte("block 1"),
			Parents: []mgraph.BlockRef{
				{ID: id("genesis0"), Period: 0},
				{ID: id("genesis1"), Period: 0},
			},
			Dependencies: mgraph.NewBlockIDSet(id("genesis0"), id("genesis1")),
		},
		{
			ID: id("block2"),
			Parents: []mgraph.BlockRef{
				{ID: id("block1"), Period: 1},
				{ID: id("genesis1"), Period: 0},
			},
			Dependencies: mgraph.NewBlockIDSet(id("block1")),
		},
	}
	return g
}
