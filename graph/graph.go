// Copyright 2025 Sonic Labs
// This file is part of Owl GPU Leakage Analyzer
//
// Owl is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Owl is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Owl. If not, see <http://www.gnu.org/licenses/>.

// Package graph holds the per-kernel behavior graph: one node per basic block
// carrying its control-flow and memory access distributions.
package graph

import (
	"slices"

	"github.com/0xsoniclabs/owl/flow"
	"github.com/0xsoniclabs/owl/memory"
)

// BlockID identifies a basic block within a kernel.
type BlockID = uint32

// Node is the aggregated behavior of one basic block.
type Node struct {
	ID     BlockID
	Flow   *flow.Distribution
	Memory *memory.Record
}

// NewNode returns a node with empty distributions.
func NewNode(id BlockID) *Node {
	return &Node{ID: id, Flow: flow.New(), Memory: memory.NewRecord()}
}

// Same reports whether both nodes hold the same block id and distributions.
func (n *Node) Same(other *Node) bool {
	return n.ID == other.ID && n.Flow.Equal(other.Flow) && n.Memory.Equal(other.Memory)
}

func (n *Node) merge(other *Node) {
	if n.Flow == nil {
		n.Flow = flow.New()
	}
	if n.Memory == nil {
		n.Memory = memory.NewRecord()
	}
	n.Flow.Merge(other.Flow)
	n.Memory.Merge(other.Memory)
}

func (n *Node) clone() *Node {
	res := &Node{ID: n.ID, Flow: flow.New(), Memory: memory.NewRecord()}
	res.merge(n)
	return res
}

// Graph stores nodes in an arena with an index sorted by block id.
type Graph struct {
	nodes []*Node
	index []int // positions in nodes, ordered by block id
}

func New() *Graph {
	return &Graph{}
}

func (g *Graph) search(id BlockID) (int, bool) {
	return slices.BinarySearchFunc(g.index, id, func(pos int, id BlockID) int {
		switch {
		case g.nodes[pos].ID < id:
			return -1
		case g.nodes[pos].ID > id:
			return 1
		}
		return 0
	})
}

// Add inserts n, merging it into an existing node with the same id.
func (g *Graph) Add(n *Node) {
	i, found := g.search(n.ID)
	if found {
		g.nodes[g.index[i]].merge(n)
		return
	}
	g.nodes = append(g.nodes, n)
	g.index = slices.Insert(g.index, i, len(g.nodes)-1)
}

// Node returns the node of block id, or nil.
func (g *Graph) Node(id BlockID) *Node {
	if g == nil {
		return nil
	}
	if i, found := g.search(id); found {
		return g.nodes[g.index[i]]
	}
	return nil
}

// Nodes returns all nodes ordered by block id.
func (g *Graph) Nodes() []*Node {
	if g == nil {
		return nil
	}
	res := make([]*Node, len(g.index))
	for i, pos := range g.index {
		res[i] = g.nodes[pos]
	}
	return res
}

// IDs returns the block ids in ascending order.
func (g *Graph) IDs() []BlockID {
	res := make([]BlockID, 0, g.Len())
	for _, n := range g.Nodes() {
		res = append(res, n.ID)
	}
	return res
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Merge folds the nodes of other into g. Nodes of other are copied.
func (g *Graph) Merge(other *Graph) {
	for _, n := range other.Nodes() {
		if existing := g.Node(n.ID); existing != nil {
			existing.merge(n)
		} else {
			g.Add(n.clone())
		}
	}
}

func (g *Graph) Clone() *Graph {
	res := New()
	res.Merge(g)
	return res
}

// Same reports whether both graphs cover the same basic blocks. Distribution
// content is not compared; use Equal for that.
func (g *Graph) Same(other *Graph) bool {
	return slices.Equal(g.IDs(), other.IDs())
}

// Equal reports whether both graphs hold the same nodes with the same
// distributions.
func (g *Graph) Equal(other *Graph) bool {
	return slices.EqualFunc(g.Nodes(), other.Nodes(), (*Node).Same)
}
