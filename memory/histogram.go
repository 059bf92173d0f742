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

	"github.com/0xsoniclabs/owl/stats"
)

// Entry is the access count of a single address.
type Entry struct {
	Addr  Address
	Count uint64
}

// Histogram counts accesses per address, ordered by address.
type Histogram struct {
	entries []Entry
}

func (h Histogram) find(addr Address) (int, bool) {
	return slices.BinarySearchFunc(h.entries, addr, func(e Entry, a Address) int {
		return Compare(e.Addr, a)
	})
}

// Add records count accesses to addr.
func (h *Histogram) Add(addr Address, count uint64) {
	i, found := h.find(addr)
	if found {
		h.entries[i].Count += count
		return
	}
	h.entries = slices.Insert(h.entries, i, Entry{Addr: addr, Count: count})
}

// Count returns the number of accesses recorded for addr.
func (h Histogram) Count(addr Address) uint64 {
	if i, found := h.find(addr); found {
		return h.entries[i].Count
	}
	return 0
}

// Merge adds all counts of other to h.
func (h *Histogram) Merge(other Histogram) {
	for _, e := range other.entries {
		h.Add(e.Addr, e.Count)
	}
}

// Entries returns the recorded addresses in ascending order.
func (h Histogram) Entries() []Entry {
	return slices.Clone(h.entries)
}

func (h Histogram) Len() int {
	return len(h.entries)
}

func (h Histogram) IsEmpty() bool {
	return len(h.entries) == 0
}

func (h Histogram) Clone() Histogram {
	return Histogram{entries: slices.Clone(h.entries)}
}

func (h Histogram) Equal(other Histogram) bool {
	return slices.EqualFunc(h.entries, other.entries, func(a, b Entry) bool {
		return a.Addr.Equal(b.Addr) && a.Count == b.Count
	})
}

func (h Histogram) validTotal() float64 {
	var total uint64
	for _, e := range h.entries {
		if e.Addr.Valid() {
			total += e.Count
		}
	}
	return float64(total)
}

func (h Histogram) valid() []Entry {
	return slices.DeleteFunc(slices.Clone(h.entries), func(e Entry) bool {
		return !e.Addr.Valid()
	})
}

// Divergence returns the KS statistic between the address distributions of
// two histograms: 0 if both are empty, 1 if exactly one is empty, otherwise
// the maximum distance of their empirical CDFs over the ordered addresses.
func (h Histogram) Divergence(other Histogram) float64 {
	switch {
	case h.IsEmpty() && other.IsEmpty():
		return 0
	case h.IsEmpty() || other.IsEmpty():
		return 1
	}

	lw, rw := 1/h.validTotal(), 1/other.validTotal()
	l, r := h.valid(), other.valid()
	var lcdf, rcdf, maxDiff float64
	i, j := 0, 0
	for i < len(l) || j < len(r) {
		switch {
		case j == len(r) || (i < len(l) && Compare(l[i].Addr, r[j].Addr) < 0):
			lcdf += float64(l[i].Count) * lw
			i++
		case i == len(l) || Compare(l[i].Addr, r[j].Addr) > 0:
			rcdf += float64(r[j].Count) * rw
			j++
		default:
			lcdf += float64(l[i].Count) * lw
			rcdf += float64(r[j].Count) * rw
			i++
			j++
		}
		if d := abs(lcdf - rcdf); d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}

// Test returns the KS p-value for two histograms gathered from n and m runs.
func (h Histogram) Test(other Histogram, n, m int) float64 {
	return stats.KSPValue(h.Divergence(other), n, m)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
