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

// Package memory models per-instruction memory access distributions of a
// basic block and compares them between two input classes.
package memory

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// Space is the memory space an access targets.
type Space uint8

const (
	None Space = iota
	Local
	Generic
	Global
	Shared
	Constant
	GlobalToShared
	Surface
	Texture
)

var spaceNames = [...]string{
	None:           "NONE",
	Local:          "LOCAL",
	Generic:        "GENERIC",
	Global:         "GLOBAL",
	Shared:         "SHARED",
	Constant:       "CONSTANT",
	GlobalToShared: "GLOBAL_TO_SHARED",
	Surface:        "SURFACE",
	Texture:        "TEXTURE",
}

func (s Space) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return fmt.Sprintf("Space(%d)", uint8(s))
}

// ParseSpace resolves the tracer's name of a memory space.
func ParseSpace(name string) (Space, error) {
	for i, n := range spaceNames {
		if n == name {
			return Space(i), nil
		}
	}
	return None, fmt.Errorf("unknown memory space %q", name)
}

func (s Space) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Space) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	space, err := ParseSpace(name)
	if err != nil {
		return err
	}
	*s = space
	return nil
}

// Address is a normalized access target. If the raw address fell into a known
// allocation, Offset is relative to the allocation base stored in Pool.
// Addresses are ordered by offset and space; the pool is ignored for ordering
// and equality.
type Address struct {
	Offset uint64
	Pool   uint64
	InPool bool
	Space  Space
}

// Compare orders addresses by offset, then by memory space.
func Compare(a, b Address) int {
	if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
		return c
	}
	return cmp.Compare(a.Space, b.Space)
}

func (a Address) Equal(b Address) bool {
	return Compare(a, b) == 0
}

// Valid reports whether the address takes part in the distribution test.
// Every address currently does.
func (a Address) Valid() bool {
	return true
}

func (a Address) String() string {
	if a.InPool {
		return fmt.Sprintf("%s:0x%x+0x%x", a.Space, a.Pool, a.Offset)
	}
	return fmt.Sprintf("%s:0x%x", a.Space, a.Offset)
}
