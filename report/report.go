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

// Package report assembles, stores and prints leakage reports.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/0xsoniclabs/owl/evidence"
	"golang.org/x/exp/maps"
)

// KernelLeak is a kernel call whose launch count differs between the classes.
type KernelLeak struct {
	Context string `json:"ctx"`
	Kernel  string `json:"kernel"`
	Fixed   int    `json:"fix_num"`
	Random  int    `json:"rnd_num"`
}

// FlowLeak is a basic block with diverging control flow.
type FlowLeak struct {
	Kernel string  `json:"kernel"`
	Block  uint32  `json:"bb"`
	P      float64 `json:"p"`
}

// MemoryLeak is an instruction with diverging memory accesses.
type MemoryLeak struct {
	Kernel string  `json:"kernel"`
	Instr  uint64  `json:"instr"`
	Block  uint32  `json:"bb"`
	P      float64 `json:"p"`
}

// Report lists all findings. Flow and memory findings are grouped by the
// rendered call context.
type Report struct {
	KernelLeak []KernelLeak            `json:"kernel_leak"`
	FlowLeak   map[string][]FlowLeak   `json:"cf_leak"`
	MemoryLeak map[string][]MemoryLeak `json:"df_leak"`
}

// New returns an empty report.
func New() *Report {
	return &Report{
		KernelLeak: []KernelLeak{},
		FlowLeak:   map[string][]FlowLeak{},
		MemoryLeak: map[string][]MemoryLeak{},
	}
}

// Empty reports whether no leakage was found.
func (r *Report) Empty() bool {
	return len(r.KernelLeak) == 0 && len(r.FlowLeak) == 0 && len(r.MemoryLeak) == 0
}

// Contexts returns all contexts with findings in ascending order.
func (r *Report) Contexts() []string {
	set := map[string]struct{}{}
	for _, k := range r.KernelLeak {
		set[k.Context] = struct{}{}
	}
	for ctx := range r.FlowLeak {
		set[ctx] = struct{}{}
	}
	for ctx := range r.MemoryLeak {
		set[ctx] = struct{}{}
	}
	keys := maps.Keys(set)
	sort.Strings(keys)
	return keys
}

// FromResult converts a comparison result into a report.
func FromResult(res *evidence.Result) *Report {
	b := NewBuilder()
	for _, p := range res.Presence {
		b.AddKernelLeak(KernelLeak{Context: p.Context.String(), Kernel: p.Kernel, Fixed: p.Fixed, Random: p.Random})
	}
	for _, k := range res.Kernels {
		ctx := k.Context.String()
		for _, f := range k.Flow {
			b.AddFlowLeak(ctx, FlowLeak{Kernel: k.Kernel, Block: f.Block, P: f.P})
		}
		for _, m := range k.Memory {
			b.AddMemoryLeak(ctx, MemoryLeak{Kernel: k.Kernel, Instr: m.Instr, Block: m.Block, P: m.P})
		}
	}
	return b.Build()
}

// Write stores the report as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode report; %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write report %s; %w", path, err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read report %s; %w", path, err)
	}
	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("cannot decode report %s; %w", path, err)
	}
	if r.KernelLeak == nil {
		r.KernelLeak = []KernelLeak{}
	}
	if r.FlowLeak == nil {
		r.FlowLeak = map[string][]FlowLeak{}
	}
	if r.MemoryLeak == nil {
		r.MemoryLeak = map[string][]MemoryLeak{}
	}
	return r, nil
}
