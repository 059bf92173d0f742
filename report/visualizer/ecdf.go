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

package visualizer

import (
	"github.com/0xsoniclabs/owl/memory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// NumCDFPoints is the number of points kept of a simplified address eCDF.
const NumCDFPoints = 100

// AddressCDF computes the empirical cumulative distribution of the accesses
// recorded in h. Addresses are mapped onto [0,1] by their offset and the
// curve runs from (0,0) to (1,1). The curve is reduced to NumCDFPoints with
// the Visvalingam-Whyatt algorithm, see
// https://en.wikipedia.org/wiki/Visvalingam-Whyatt_algorithm
func AddressCDF(h memory.Histogram) [][2]float64 {
	entries := h.Entries()
	if len(entries) == 0 {
		return [][2]float64{}
	}

	total := uint64(0)
	lo, hi := entries[0].Addr.Offset, entries[0].Addr.Offset
	for _, e := range entries {
		total += e.Count
		lo = min(lo, e.Addr.Offset)
		hi = max(hi, e.Addr.Offset)
	}
	if total == 0 {
		return [][2]float64{}
	}
	span := float64(hi - lo)

	ls := orb.LineString{orb.Point{0.0, 0.0}}
	sum, c := 0.0, 0.0
	for _, e := range entries {
		// Kahan summation keeps tiny probabilities from being lost
		y := float64(e.Count)/float64(total) - c
		t := sum + y
		c = (t - sum) - y
		sum = t

		x := 0.0
		if span > 0 {
			x = float64(e.Addr.Offset-lo) / span
		}
		ls = append(ls, orb.Point{x, sum})
	}
	ls = append(ls, orb.Point{1.0, 1.0})

	simplified := simplify.VisvalingamKeep(NumCDFPoints).Simplify(ls).(orb.LineString)
	res := make([][2]float64, len(simplified))
	for i := range simplified {
		res[i] = [2]float64(simplified[i])
	}
	return res
}
