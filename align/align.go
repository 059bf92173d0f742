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

package align

// Slot is one position of an alignment. An absent slot marks an element that
// exists on the other side only.
type Slot[T any] struct {
	Value   T
	Present bool
}

// Some returns a present slot holding v.
func Some[T any](v T) Slot[T] {
	return Slot[T]{Value: v, Present: true}
}

// Align pairs up the elements of left and right along the shortest edit
// script. Both returned lists have the same length; position i of ls and rs
// together describe one match, deletion or insertion.
func Align[T any](left, right []T, eq func(a, b T) bool) (ls, rs []Slot[T]) {
	edits := Diff(left, right, eq)
	ls = make([]Slot[T], len(edits))
	rs = make([]Slot[T], len(edits))
	for i, e := range edits {
		if e.Left >= 0 {
			ls[i] = Some(left[e.Left])
		}
		if e.Right >= 0 {
			rs[i] = Some(right[e.Right])
		}
	}
	return ls, rs
}

// AlignComparable is Align using the == operator.
func AlignComparable[T comparable](left, right []T) (ls, rs []Slot[T]) {
	return Align(left, right, func(a, b T) bool { return a == b })
}
