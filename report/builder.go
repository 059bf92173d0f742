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

package report

import (
	"cmp"
	"slices"
)

// Builder collects findings, dropping duplicates.
type Builder struct {
	kernels map[KernelLeak]struct{}
	flows   map[string]map[FlowLeak]struct{}
	mems    map[string]map[MemoryLeak]struct{}
}

func NewBuilder() *Builder {
	return &Builder{
		kernels: map[KernelLeak]struct{}{},
		flows:   map[string]map[FlowLeak]struct{}{},
		mems:    map[string]map[MemoryLeak]struct{}{},
	}
}

func (b *Builder) AddKernelLeak(l KernelLeak) {
	b.kernels[l] = struct{}{}
}

func (b *Builder) AddFlowLeak(ctx string, l FlowLeak) {
	if b.flows[ctx] == nil {
		b.flows[ctx] = map[FlowLeak]struct{}{}
	}
	b.flows[ctx][l] = struct{}{}
}

func (b *Builder) AddMemoryLeak(ctx string, l MemoryLeak) {
	if b.mems[ctx] == nil {
		b.mems[ctx] = map[MemoryLeak]struct{}{}
	}
	b.mems[ctx][l] = struct{}{}
}

// Build returns the report with every list in a deterministic order.
func (b *Builder) Build() *Report {
	r := New()
	for l := range b.kernels {
		r.KernelLeak = append(r.KernelLeak, l)
	}
	slices.SortFunc(r.KernelLeak, func(a, b KernelLeak) int {
		return cmp.Or(
			cmp.Compare(a.Context, b.Context),
			cmp.Compare(a.Kernel, b.Kernel),
			cmp.Compare(a.Fixed, b.Fixed),
			cmp.Compare(a.Random, b.Random),
		)
	})

	for ctx, set := range b.flows {
		list := make([]FlowLeak, 0, len(set))
		for l := range set {
			list = append(list, l)
		}
		slices.SortFunc(list, func(a, b FlowLeak) int {
			return cmp.Or(cmp.Compare(a.Kernel, b.Kernel), cmp.Compare(a.Block, b.Block), cmp.Compare(a.P, b.P))
		})
		r.FlowLeak[ctx] = list
	}

	for ctx, set := range b.mems {
		list := make([]MemoryLeak, 0, len(set))
		for l := range set {
			list = append(list, l)
		}
		slices.SortFunc(list, func(a, b MemoryLeak) int {
			return cmp.Or(
				cmp.Compare(a.Kernel, b.Kernel),
				cmp.Compare(a.Block, b.Block),
				cmp.Compare(a.Instr, b.Instr),
				cmp.Compare(a.P, b.P),
			)
		})
		r.MemoryLeak[ctx] = list
	}
	return r
}
