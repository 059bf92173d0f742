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

// Package flow models the control-flow behavior of a basic block as a
// frequency table of observed edges and compares two such tables.
package flow

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Block identifies a basic block. Negative ids are sentinels emitted by the
// tracer, e.g. -2 for the kernel exit.
type Block = int64

// Edge is one observed control transfer with its frequency.
type Edge struct {
	From  Block
	To    Block
	Count uint64
}

// Distribution is a source -> destination -> count table. All rows share the
// same destination columns; a destination seen in any row is present,
// possibly with a zero count, in every row. Sources and destinations are kept
// in ascending order.
type Distribution struct {
	sources      []Block
	destinations []Block
	counts       [][]uint64 // counts[row][column]
}

// New returns an empty distribution.
func New() *Distribution {
	return &Distribution{}
}

// FromEdges builds a distribution from a list of edges.
func FromEdges(edges []Edge) *Distribution {
	d := New()
	for _, e := range edges {
		d.Insert(e.From, e.To, e.Count)
	}
	return d
}

// Insert adds count observations of the edge src -> dst.
func (d *Distribution) Insert(src, dst Block, count uint64) {
	col := d.column(dst)
	row := d.row(src)
	d.counts[row][col] += count
}

// column returns the index of dst, adding a zero column to all rows if needed.
func (d *Distribution) column(dst Block) int {
	col, found := slices.BinarySearch(d.destinations, dst)
	if found {
		return col
	}
	d.destinations = slices.Insert(d.destinations, col, dst)
	for i := range d.counts {
		d.counts[i] = slices.Insert(d.counts[i], col, 0)
	}
	return col
}

// row returns the index of src, adding a zero filled row if needed.
func (d *Distribution) row(src Block) int {
	row, found := slices.BinarySearch(d.sources, src)
	if found {
		return row
	}
	d.sources = slices.Insert(d.sources, row, src)
	d.counts = slices.Insert(d.counts, row, make([]uint64, len(d.destinations)))
	return row
}

// Merge adds all counts of other to d.
func (d *Distribution) Merge(other *Distribution) {
	if other == nil {
		return
	}
	for i, src := range other.sources {
		for j, dst := range other.destinations {
			d.Insert(src, dst, other.counts[i][j])
		}
	}
}

// Clone returns a deep copy of d.
func (d *Distribution) Clone() *Distribution {
	res := &Distribution{
		sources:      slices.Clone(d.sources),
		destinations: slices.Clone(d.destinations),
		counts:       make([][]uint64, len(d.counts)),
	}
	for i, row := range d.counts {
		res.counts[i] = slices.Clone(row)
	}
	return res
}

func (d *Distribution) IsEmpty() bool {
	return d == nil || len(d.sources) == 0
}

func (d *Distribution) Sources() []Block {
	return slices.Clone(d.sources)
}

func (d *Distribution) Destinations() []Block {
	return slices.Clone(d.destinations)
}

// Row returns the destination counts of src, aligned with Destinations. The
// second result is false if src was never observed.
func (d *Distribution) Row(src Block) ([]uint64, bool) {
	row, found := slices.BinarySearch(d.sources, src)
	if !found {
		return nil, false
	}
	return slices.Clone(d.counts[row]), true
}

// Count returns the frequency of the edge src -> dst.
func (d *Distribution) Count(src, dst Block) uint64 {
	row, found := slices.BinarySearch(d.sources, src)
	if !found {
		return 0
	}
	col, found := slices.BinarySearch(d.destinations, dst)
	if !found {
		return 0
	}
	return d.counts[row][col]
}

// Edges lists all edges with a non-zero count.
func (d *Distribution) Edges() []Edge {
	var res []Edge
	for i, src := range d.sources {
		for j, dst := range d.destinations {
			if c := d.counts[i][j]; c > 0 {
				res = append(res, Edge{From: src, To: dst, Count: c})
			}
		}
	}
	return res
}

// Matrix materializes the table; rows follow Sources, columns Destinations.
// An empty distribution yields nil.
func (d *Distribution) Matrix() *mat.Dense {
	if d.IsEmpty() || len(d.destinations) == 0 {
		return nil
	}
	data := make([]float64, 0, len(d.sources)*len(d.destinations))
	for _, row := range d.counts {
		for _, c := range row {
			data = append(data, float64(c))
		}
	}
	return mat.NewDense(len(d.sources), len(d.destinations), data)
}

// Equal reports whether both tables hold the same counts.
func (d *Distribution) Equal(other *Distribution) bool {
	if d.IsEmpty() || other.IsEmpty() {
		return d.IsEmpty() == other.IsEmpty()
	}
	if !slices.Equal(d.sources, other.sources) || !slices.Equal(d.destinations, other.destinations) {
		return false
	}
	for i := range d.counts {
		if !slices.Equal(d.counts[i], other.counts[i]) {
			return false
		}
	}
	return true
}

func (d *Distribution) String() string {
	var b strings.Builder
	for i, src := range d.sources {
		fmt.Fprintf(&b, "%d:", src)
		for j, dst := range d.destinations {
			fmt.Fprintf(&b, " %d=%d", dst, d.counts[i][j])
		}
		b.WriteString("\n")
	}
	return b.String()
}
