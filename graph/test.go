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

package graph

import (
	"github.com/0xsoniclabs/owl/align"
	"github.com/0xsoniclabs/owl/stats"
)

// FlowResult is the control-flow p-value of a basic block.
type FlowResult struct {
	Block BlockID
	P     float64
}

// MemoryResult is the memory access p-value of an instruction in a block.
type MemoryResult struct {
	Block BlockID
	Instr uint64
	P     float64
}

// Result holds the significant findings of a graph comparison.
type Result struct {
	Flow   []FlowResult
	Memory []MemoryResult
}

func (r *Result) IsEmpty() bool {
	return len(r.Flow) == 0 && len(r.Memory) == 0
}

func sameBlock(a, b *Node) bool {
	return a.ID == b.ID
}

// Test compares two graphs gathered from n and m runs. Nodes are paired by
// block id; for each pair the control-flow and memory tests run and results
// with a p-value below threshold are kept. A block observed on one side only
// is always reported with the p-value of maximal divergence.
func (g *Graph) Test(other *Graph, n, m int, threshold float64) *Result {
	res := &Result{}
	ls, rs := align.Align(g.Nodes(), other.Nodes(), sameBlock)
	for i := range ls {
		l, r := ls[i], rs[i]
		switch {
		case l.Present && r.Present:
			if p := l.Value.Flow.Test(r.Value.Flow, n, m); p < threshold {
				res.Flow = append(res.Flow, FlowResult{Block: l.Value.ID, P: p})
			}
			instrs, ok := l.Value.Memory.Test(r.Value.Memory, n, m)
			if !ok {
				continue
			}
			for _, in := range instrs {
				if in.P < threshold {
					res.Memory = append(res.Memory, MemoryResult{Block: l.Value.ID, Instr: in.Instr, P: in.P})
				}
			}
		case l.Present:
			res.Flow = append(res.Flow, FlowResult{Block: l.Value.ID, P: stats.KSPValue(1, n, m)})
		case r.Present:
			res.Flow = append(res.Flow, FlowResult{Block: r.Value.ID, P: stats.KSPValue(1, n, m)})
		}
	}
	return res
}
