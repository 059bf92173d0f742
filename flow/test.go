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

package flow

import (
	"slices"

	"github.com/0xsoniclabs/owl/align"
	"github.com/0xsoniclabs/owl/stats"
)

type column struct {
	dst Block
	p   float64
}

func sameDestination(a, b column) bool {
	return a.dst == b.dst
}

// normalized returns the row of src as probabilities over its own total.
func (d *Distribution) normalized(row int) []column {
	var total uint64
	for _, c := range d.counts[row] {
		total += c
	}
	res := make([]column, len(d.destinations))
	for j, dst := range d.destinations {
		res[j].dst = dst
		if total > 0 {
			res[j].p = float64(d.counts[row][j]) / float64(total)
		}
	}
	return res
}

// Test compares two control-flow distributions gathered from n and m runs and
// returns the KS p-value of their divergence.
//
// Source rows are paired by block id. Paired rows are normalized and their
// destinations paired in turn, a missing destination counting as probability
// zero. A row observed on one side only contributes a single 1.0 against 0.0.
// The statistic is the maximum distance between the cumulative sums of the
// collected probability lists.
func (d *Distribution) Test(other *Distribution, n, m int) float64 {
	var lv, rv []float64

	ls, rs := align.AlignComparable(d.sourceList(), other.sourceList())
	for i := range ls {
		l, r := ls[i], rs[i]
		switch {
		case l.Present && r.Present:
			lrow, _ := slices.BinarySearch(d.sources, l.Value)
			rrow, _ := slices.BinarySearch(other.sources, r.Value)
			lc, rc := align.Align(d.normalized(lrow), other.normalized(rrow), sameDestination)
			for j := range lc {
				lv = append(lv, probability(lc[j]))
				rv = append(rv, probability(rc[j]))
			}
		case l.Present:
			lv = append(lv, 1.0)
			rv = append(rv, 0.0)
		case r.Present:
			lv = append(lv, 0.0)
			rv = append(rv, 1.0)
		}
	}

	return stats.KSPValue(stats.MaxCDFDistance(lv, rv), n, m)
}

func (d *Distribution) sourceList() []Block {
	if d == nil {
		return nil
	}
	return d.sources
}

func probability(s align.Slot[column]) float64 {
	if !s.Present {
		return 0
	}
	return s.Value.p
}
