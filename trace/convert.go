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

package trace

import (
	"github.com/0xsoniclabs/owl/flow"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/0xsoniclabs/owl/memory"
)

func poolsOf(allocs []RawAlloc) memory.Pools {
	res := make(memory.Pools, len(allocs))
	for i, a := range allocs {
		res[i] = memory.Pool{Base: a.Addr, Size: a.Size}
	}
	return res
}

func framesOf(raw []RawFrame) []Frame {
	res := make([]Frame, len(raw))
	for i, f := range raw {
		res[i] = Frame{Addr: f.Addr, Func: f.Func, File: f.File, Offset: f.Offset}
	}
	return res
}

// convertGraph builds the behavior graph of a kernel, rewriting every access
// address relative to the first pool containing it. The repetition position
// of an access is the ordinal of its entry in the instruction's data list.
func convertGraph(raw RawGraph, pools memory.Pools) *graph.Graph {
	g := graph.New()
	for _, rn := range raw.Nodes {
		n := graph.NewNode(rn.ID)
		n.Flow = flow.FromEdges(rn.Edges())
		for _, instr := range rn.MemAccess {
			rec := n.Memory.Instruction(instr.Addr)
			for pos, data := range instr.Data {
				for _, access := range data.Access {
					for _, m := range access.Memory {
						rec.Add(pos, pools.Resolve(m.Addr, access.Type), m.Count)
					}
				}
			}
		}
		g.Add(n)
	}
	return g
}

// Convert turns the raw output of one run into a Trace. Kernels declaring no
// pools of their own fall back to the allocations of the run. Contexts are
// taken from interner so that equal call stacks share one value.
func Convert(run *RawRun, interner *Interner) *Trace {
	fallback := poolsOf(run.Allocs)
	res := &Trace{Calls: make([]*Call, 0, len(run.Kernels)), Stacks: len(run.Contexts)}
	for _, rk := range run.Kernels {
		pools := poolsOf(rk.Pools)
		if len(pools) == 0 {
			pools = fallback
		}
		kernel := &Kernel{
			ID:    rk.ID,
			Type:  rk.Type,
			Name:  rk.Name,
			Graph: convertGraph(rk.Graph, pools),
		}
		res.Calls = append(res.Calls, NewCall(interner.Intern(framesOf(rk.Backtrace)), kernel))
	}
	return res
}

// Load reads and converts the tracer output stored in dir.
func Load(dir string, interner *Interner) (*Trace, error) {
	run, err := ReadRun(dir)
	if err != nil {
		return nil, err
	}
	return Convert(run, interner), nil
}

// Edges lists the control-flow edges of a raw node.
func (n RawNode) Edges() []flow.Edge {
	res := make([]flow.Edge, len(n.ControlFlow))
	for i, e := range n.ControlFlow {
		res[i] = flow.Edge{From: e.From, To: e.To, Count: e.Num}
	}
	return res
}
