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
	"github.com/0xsoniclabs/owl/graph"
)

// Kernel is the behavior recorded for one kernel launch.
type Kernel struct {
	ID    uint64
	Type  uint64
	Name  string
	Graph *graph.Graph
}

// Same reports whether two kernels were launched with the same identity and
// cover the same basic blocks.
func (k *Kernel) Same(other *Kernel) bool {
	return k.ID == other.ID && k.Type == other.Type && k.Name == other.Name && k.Graph.Same(other.Graph)
}

func (k *Kernel) Clone() *Kernel {
	return &Kernel{ID: k.ID, Type: k.Type, Name: k.Name, Graph: k.Graph.Clone()}
}

// Call is a kernel launched from a context, observed Count times.
type Call struct {
	Context *Context
	Kernel  *Kernel
	Count   int
}

// NewCall returns a single observation of kernel launched at ctx.
func NewCall(ctx *Context, kernel *Kernel) *Call {
	return &Call{Context: ctx, Kernel: kernel, Count: 1}
}

// Matches reports whether both calls were launched from the same context.
// Kernel content does not take part.
func Matches(a, b *Call) bool {
	return a.Context.Equal(b.Context)
}

// Same reports whether both calls share context, count and kernel identity.
func (c *Call) Same(other *Call) bool {
	return c.Context.Equal(other.Context) && c.Count == other.Count && c.Kernel.Same(other.Kernel)
}

// Trace is the ordered list of kernel calls of one run.
type Trace struct {
	Calls []*Call
	// Stacks is the number of host call stacks listed in the run's context
	// file, zero without one.
	Stacks int
}

// Same reports whether two traces launched the same kernels in the same
// order from the same contexts.
func (t *Trace) Same(other *Trace) bool {
	if len(t.Calls) != len(other.Calls) {
		return false
	}
	for i := range t.Calls {
		if !t.Calls[i].Same(other.Calls[i]) {
			return false
		}
	}
	return true
}
