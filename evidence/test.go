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

package evidence

import (
	"github.com/0xsoniclabs/owl/align"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/0xsoniclabs/owl/trace"
	"github.com/cockroachdb/errors"
)

// KernelResult holds the significant block and instruction findings of a
// kernel call present in both classes, along with the merged behavior graphs
// of both classes.
type KernelResult struct {
	Context *trace.Context
	Kernel  string
	Type    uint64
	Fixed   *graph.Graph
	Random  *graph.Graph
	graph.Result
}

// PresenceResult records a call whose count differs between the classes. A
// count of zero means the call was never observed in that class.
type PresenceResult struct {
	Context *trace.Context
	Kernel  string
	Type    uint64
	Fixed   int
	Random  int
}

// Result is the outcome of comparing two evidences.
type Result struct {
	Kernels  []KernelResult
	Presence []PresenceResult
}

// Test compares the evidence of the fixed class, gathered over n runs,
// against the random class, gathered over m runs. Findings with a p-value
// below threshold are kept.
func Test(fixed, random *Evidence, n, m int, threshold float64) (*Result, error) {
	res := &Result{}
	ls, rs := align.Align(fixed.calls, random.calls, trace.Matches)
	for i := range ls {
		l, r := ls[i], rs[i]
		switch {
		case l.Present && r.Present:
			fc, rc := l.Value, r.Value
			if fc.Kernel.Type != rc.Kernel.Type {
				return nil, errors.AssertionFailedf("kernel type mismatch at %s: %d != %d", fc.Context, fc.Kernel.Type, rc.Kernel.Type)
			}
			if fc.Count != rc.Count {
				res.Presence = append(res.Presence, presence(fc, fc.Count, rc.Count))
			}
			kr := fc.Kernel.Graph.Test(rc.Kernel.Graph, n, m, threshold)
			res.Kernels = append(res.Kernels, KernelResult{
				Context: fc.Context,
				Kernel:  fc.Kernel.Name,
				Type:    fc.Kernel.Type,
				Fixed:   fc.Kernel.Graph,
				Random:  rc.Kernel.Graph,
				Result:  *kr,
			})
		case l.Present:
			res.Presence = append(res.Presence, presence(l.Value, l.Value.Count, 0))
		case r.Present:
			res.Presence = append(res.Presence, presence(r.Value, 0, r.Value.Count))
		default:
			return nil, errors.AssertionFailedf("alignment produced an empty slot at %d", i)
		}
	}
	return res, nil
}

func presence(c *trace.Call, fixed, random int) PresenceResult {
	return PresenceResult{
		Context: c.Context,
		Kernel:  c.Kernel.Name,
		Type:    c.Kernel.Type,
		Fixed:   fixed,
		Random:  random,
	}
}
