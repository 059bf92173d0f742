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

// Pool is a device allocation observed during one run.
type Pool struct {
	Base uint64
	Size uint64
}

// Contains reports whether addr lies inside the allocation.
func (p Pool) Contains(addr uint64) bool {
	return addr >= p.Base && addr-p.Base < p.Size
}

// Pools is the allocation table of one run.
type Pools []Pool

// Resolve turns a raw device address into an Address, relative to the first
// pool containing it, or absolute if no pool does.
func (p Pools) Resolve(addr uint64, space Space) Address {
	for _, pool := range p {
		if pool.Contains(addr) {
			return Address{Offset: addr - pool.Base, Pool: pool.Base, InPool: true, Space: space}
		}
	}
	return Address{Offset: addr, Space: space}
}
