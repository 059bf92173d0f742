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

// Package align computes edit-distance alignments of ordered sequences.
// It is used to pair up same-identity elements collected by independent runs:
// kernel calls by context, blocks and instructions by id.
package align

// Op is the kind of a single edit step.
type Op byte

const (
	Match  Op = iota // element present on both sides
	Delete           // element present on the left side only
	Insert           // element present on the right side only
)

func (o Op) String() string {
	switch o {
	case Match:
		return "match"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	}
	return "unknown"
}

// Edit is one step of an edit script. Left and Right index the input
// sequences; the index of the absent side is -1.
type Edit struct {
	Op    Op
	Left  int
	Right int
}

// Diff returns the shortest edit script turning left into right using the
// O(ND) greedy algorithm by Myers. Matched elements appear in the script in
// the order of both inputs.
func Diff[T any](left, right []T, eq func(a, b T) bool) []Edit {
	n, m := len(left), len(right)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		res := make([]Edit, m)
		for j := range res {
			res[j] = Edit{Op: Insert, Left: -1, Right: j}
		}
		return res
	case m == 0:
		res := make([]Edit, n)
		for i := range res {
			res[i] = Edit{Op: Delete, Left: i, Right: -1}
		}
		return res
	}

	maxD := n + m
	offset := maxD
	v := make([]int, 2*maxD+2)
	// trace[d] holds the furthest reaching x per diagonal before step d
	var trace [][]int

search:
	for d := 0; d <= maxD; d++ {
		trace = append(trace, append([]int(nil), v...))
		for k := -d; k <= d; k += 2 {
			var x int
			if down(v, offset, k, d) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && eq(left[x], right[y]) {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	return backtrack(trace, offset, n, m)
}

// down reports whether the path to diagonal k at distance d continues from
// diagonal k+1 (an insertion) rather than from k-1 (a deletion).
func down(v []int, offset, k, d int) bool {
	return k == -d || (k != d && v[offset+k-1] < v[offset+k+1])
}

func backtrack(trace [][]int, offset, n, m int) []Edit {
	res := make([]Edit, 0, n+m)
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y
		prevK := k - 1
		if down(v, offset, k, d) {
			prevK = k + 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			res = append(res, Edit{Op: Match, Left: x, Right: y})
		}
		if d > 0 {
			if x == prevX {
				y--
				res = append(res, Edit{Op: Insert, Left: -1, Right: y})
			} else {
				x--
				res = append(res, Edit{Op: Delete, Left: x, Right: -1})
			}
		}
		x, y = prevX, prevY
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}
