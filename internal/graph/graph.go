// Package graph turns decoded observations back into variable-length program
// graphs, the form a graph-based learner consumes. Batch merges several
// programs into one disjoint graph with node-index offsets.
package graph

import (
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
)

// #region types

// Program is the live graph structure of one decoded observation.
type Program struct {
	Labels []int32    // node descriptor codes, live length
	Edges  [][3]int32 // (source, target, kind) triples over Labels indices
	Adj    [][]int32  // outgoing targets per source node
	Cursor int32
}

// Batch is several programs merged into one disjoint graph. Member i's nodes
// occupy indices [Offsets[i], Offsets[i]+len(member i)); Membership maps each
// merged node back to its member index.
type Batch struct {
	Labels     []int32
	Edges      [][3]int32
	Offsets    []int32
	Membership []int32
}

// #endregion types

// #region build

// Build constructs the program graph of one decoded observation. Edge
// endpoints outside the live node range mean the observation violated its
// invariants upstream; Build fails loudly rather than skipping edges.
func Build(d encoding.Decoded) (*Program, error) {
	n := len(d.Nodes)
	adj := make([][]int32, n)
	for i, e := range d.Edges {
		src, dst := e[0], e[1]
		if src < 0 || int(src) >= n || dst < 0 || int(dst) >= n {
			return nil, fmt.Errorf("edge %d (%d -> %d) outside live node range [0, %d)", i, src, dst, n)
		}
		adj[src] = append(adj[src], dst)
	}
	return &Program{
		Labels: append([]int32(nil), d.Nodes...),
		Edges:  append([][3]int32(nil), d.Edges...),
		Adj:    adj,
		Cursor: d.CursorPosition,
	}, nil
}

// #endregion build

// #region build-batch

// BuildBatch merges decoded observations into one disjoint graph, shifting
// each member's node and edge indices by its offset.
func BuildBatch(ds []encoding.Decoded) (*Batch, error) {
	b := &Batch{
		Offsets: make([]int32, 0, len(ds)),
	}
	var offset int32
	for i, d := range ds {
		p, err := Build(d)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		b.Offsets = append(b.Offsets, offset)
		b.Labels = append(b.Labels, p.Labels...)
		for _, e := range p.Edges {
			b.Edges = append(b.Edges, [3]int32{e[0] + offset, e[1] + offset, e[2]})
		}
		for range p.Labels {
			b.Membership = append(b.Membership, int32(i))
		}
		offset += int32(len(p.Labels))
	}
	return b, nil
}

// #endregion build-batch
