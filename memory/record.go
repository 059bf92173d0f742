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

package memory

import (
	"slices"

	"github.com/0xsoniclabs/owl/align"
	"github.com/0xsoniclabs/owl/stats"
)

// Instruction holds the address histograms of one static instruction, one per
// repetition position: Positions[i] covers the i-th dynamic execution of the
// instruction within a kernel launch.
type Instruction struct {
	ID        uint64
	Positions []Histogram
}

// Add records count accesses to addr at the given repetition position.
func (in *Instruction) Add(pos int, addr Address, count uint64) {
	if pos >= len(in.Positions) {
		in.Positions = append(in.Positions, make([]Histogram, pos+1-len(in.Positions))...)
	}
	in.Positions[pos].Add(addr, count)
}

// Merge sums the histograms position by position; positions only other has
// are appended.
func (in *Instruction) Merge(other *Instruction) {
	for pos, h := range other.Positions {
		if pos < len(in.Positions) {
			in.Positions[pos].Merge(h)
		} else {
			in.Positions = append(in.Positions, h.Clone())
		}
	}
}

func (in *Instruction) Clone() *Instruction {
	res := &Instruction{ID: in.ID, Positions: make([]Histogram, len(in.Positions))}
	for i, h := range in.Positions {
		res.Positions[i] = h.Clone()
	}
	return res
}

func (in *Instruction) Equal(other *Instruction) bool {
	return in.ID == other.ID && slices.EqualFunc(in.Positions, other.Positions, Histogram.Equal)
}

// Test returns the smallest p-value over the repetition positions recorded
// on both sides. Positions only one side has are not compared.
func (in *Instruction) Test(other *Instruction, n, m int) float64 {
	p := stats.KSPValue(0, n, m)
	for pos := range min(len(in.Positions), len(other.Positions)) {
		p = min(p, in.Positions[pos].Test(other.Positions[pos], n, m))
	}
	return p
}

// Record is the memory access distribution of a basic block, ordered by
// instruction id.
type Record struct {
	instrs []*Instruction
}

func NewRecord() *Record {
	return &Record{}
}

func (r *Record) find(id uint64) (int, bool) {
	return slices.BinarySearchFunc(r.instrs, id, func(in *Instruction, id uint64) int {
		switch {
		case in.ID < id:
			return -1
		case in.ID > id:
			return 1
		}
		return 0
	})
}

// Instruction returns the entry of id, creating it if needed.
func (r *Record) Instruction(id uint64) *Instruction {
	i, found := r.find(id)
	if !found {
		r.instrs = slices.Insert(r.instrs, i, &Instruction{ID: id})
	}
	return r.instrs[i]
}

// Lookup returns the entry of id without creating it.
func (r *Record) Lookup(id uint64) (*Instruction, bool) {
	if r == nil {
		return nil, false
	}
	if i, found := r.find(id); found {
		return r.instrs[i], true
	}
	return nil, false
}

// Add records count accesses of instruction id at the given position.
func (r *Record) Add(id uint64, pos int, addr Address, count uint64) {
	r.Instruction(id).Add(pos, addr, count)
}

// Instructions returns the recorded instructions ordered by id.
func (r *Record) Instructions() []*Instruction {
	if r == nil {
		return nil
	}
	return slices.Clone(r.instrs)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.instrs)
}

func (r *Record) IsEmpty() bool {
	return r.Len() == 0
}

func sameInstruction(a, b *Instruction) bool {
	return a.ID == b.ID
}

// Merge folds other into r, pairing instructions by id.
func (r *Record) Merge(other *Record) {
	for _, in := range other.Instructions() {
		i, found := r.find(in.ID)
		if found {
			r.instrs[i].Merge(in)
		} else {
			r.instrs = slices.Insert(r.instrs, i, in.Clone())
		}
	}
}

func (r *Record) Clone() *Record {
	res := &Record{instrs: make([]*Instruction, 0, r.Len())}
	for _, in := range r.Instructions() {
		res.instrs = append(res.instrs, in.Clone())
	}
	return res
}

func (r *Record) Equal(other *Record) bool {
	return slices.EqualFunc(r.Instructions(), other.Instructions(), (*Instruction).Equal)
}

// InstructionResult is the p-value of a single instruction.
type InstructionResult struct {
	Instr uint64
	P     float64
}

// Test compares two records gathered from n and m runs, pairing instructions
// by id. An instruction seen on one side only gets the p-value of maximal
// divergence. The second result is false if neither record holds any
// instruction, in which case no memory test applies.
func (r *Record) Test(other *Record, n, m int) ([]InstructionResult, bool) {
	if r.IsEmpty() && other.IsEmpty() {
		return nil, false
	}
	ls, rs := align.Align(r.Instructions(), other.Instructions(), sameInstruction)
	res := make([]InstructionResult, 0, len(ls))
	for i := range ls {
		l, rr := ls[i], rs[i]
		switch {
		case l.Present && rr.Present:
			res = append(res, InstructionResult{Instr: l.Value.ID, P: l.Value.Test(rr.Value, n, m)})
		case l.Present:
			res = append(res, InstructionResult{Instr: l.Value.ID, P: stats.KSPValue(1, n, m)})
		case rr.Present:
			res = append(res, InstructionResult{Instr: rr.Value.ID, P: stats.KSPValue(1, n, m)})
		}
	}
	return res, true
}
