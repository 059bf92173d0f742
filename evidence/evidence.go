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

// Package evidence accumulates the kernel calls observed over repeated runs
// of one input class and compares the evidence of two classes.
package evidence

import (
	"github.com/0xsoniclabs/owl/align"
	"github.com/0xsoniclabs/owl/trace"
	"github.com/cockroachdb/errors"
)

// Evidence is the merged observation of all runs of one input class: every
// distinct kernel call with the number of runs it was seen in and its merged
// behavior graph.
type Evidence struct {
	calls []*trace.Call
	runs  int
}

func New() *Evidence {
	return &Evidence{}
}

// Calls returns the accumulated kernel calls.
func (e *Evidence) Calls() []*trace.Call {
	return append([]*trace.Call(nil), e.calls...)
}

// Runs returns the number of traces merged so far.
func (e *Evidence) Runs() int {
	return e.runs
}

// Merge folds the calls of one run into e. Calls are paired by context; a
// paired call increments the count and merges its graph, an unpaired new call
// is added. The trace is consumed and must not be used afterwards.
func (e *Evidence) Merge(t *trace.Trace) error {
	ls, rs := align.Align(e.calls, t.Calls, trace.Matches)
	merged := make([]*trace.Call, 0, len(ls))
	for i := range ls {
		l, r := ls[i], rs[i]
		switch {
		case l.Present && r.Present:
			if r.Value.Count != 1 {
				return errors.AssertionFailedf("incoming call at %s has count %d, want 1", r.Value.Context, r.Value.Count)
			}
			if l.Value.Kernel.Type != r.Value.Kernel.Type {
				return errors.AssertionFailedf("kernel type mismatch at %s: %d != %d", l.Value.Context, l.Value.Kernel.Type, r.Value.Kernel.Type)
			}
			l.Value.Count += r.Value.Count
			l.Value.Kernel.Graph.Merge(r.Value.Kernel.Graph)
			merged = append(merged, l.Value)
		case l.Present:
			merged = append(merged, l.Value)
		case r.Present:
			merged = append(merged, r.Value)
		default:
			return errors.AssertionFailedf("alignment produced an empty slot at %d", i)
		}
	}
	e.calls = merged
	e.runs++
	return nil
}
