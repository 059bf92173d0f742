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

package trace

import (
	"encoding/json"
	"io"

	"github.com/0xsoniclabs/owl/memory"
	"github.com/cockroachdb/errors"
)

// Kind tags the payload of a tracer document.
type Kind string

const (
	KernelKind  Kind = "Kernel"
	AllocKind   Kind = "Alloc"
	ContextKind Kind = "Context"
)

// Document is the envelope of every file written by the tracer.
type Document struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RawAlloc struct {
	Addr uint64 `json:"addr"`
	Size uint64 `json:"size"`
}

type RawFrame struct {
	Addr   uint64 `json:"addr"`
	Func   string `json:"func"`
	File   string `json:"file"`
	Offset uint64 `json:"offset"`
}

type RawKernel struct {
	ID        uint64     `json:"id"`
	Type      uint64     `json:"ty"`
	Name      string     `json:"name"`
	Graph     RawGraph   `json:"g"`
	Backtrace []RawFrame `json:"bt"`
	Pools     []RawAlloc `json:"mp"`
}

type RawGraph struct {
	Nodes []RawNode `json:"nodes"`
}

type RawNode struct {
	ID          uint32     `json:"id"`
	ControlFlow []RawEdge  `json:"control_flow"`
	MemAccess   []RawInstr `json:"mem_access"`
}

type RawEdge struct {
	From int64  `json:"from"`
	To   int64  `json:"to"`
	Num  uint64 `json:"num"`
}

// RawInstr lists the accesses of one instruction; Addr is the instruction id.
type RawInstr struct {
	Addr uint64        `json:"addr"`
	Data []RawPosition `json:"data"`
}

type RawPosition struct {
	Pos    uint64           `json:"pos"`
	Access []RawTypedAccess `json:"access"`
}

type RawTypedAccess struct {
	Type   memory.Space `json:"type"`
	Memory []RawAccess  `json:"memory"`
}

type RawAccess struct {
	Addr  uint64 `json:"addr"`
	Count uint64 `json:"count"`
}

// RawRun is everything the tracer emitted for one run.
type RawRun struct {
	Kernels  []RawKernel
	Allocs   []RawAlloc
	Contexts [][]RawFrame
}

func decode(r io.Reader, kind Kind, out any) error {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrapf(err, "cannot decode %s document", kind)
	}
	if doc.Type != kind {
		return errors.Newf("unexpected document type %q, want %q", doc.Type, kind)
	}
	if len(doc.Data) == 0 {
		return errors.Newf("%s document has no data", kind)
	}
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return errors.Wrapf(err, "cannot decode %s data", kind)
	}
	return nil
}

// DecodeKernels reads a Kernel document.
func DecodeKernels(r io.Reader) ([]RawKernel, error) {
	var res []RawKernel
	if err := decode(r, KernelKind, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// DecodeAllocs reads an Alloc document.
func DecodeAllocs(r io.Reader) ([]RawAlloc, error) {
	var res []RawAlloc
	if err := decode(r, AllocKind, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// DecodeContexts reads a Context document.
func DecodeContexts(r io.Reader) ([][]RawFrame, error) {
	var res [][]RawFrame
	if err := decode(r, ContextKind, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// EncodeKernels writes kernels as a Kernel document.
func EncodeKernels(w io.Writer, kernels []RawKernel) error {
	return encode(w, KernelKind, kernels)
}

// EncodeAllocs writes allocs as an Alloc document.
func EncodeAllocs(w io.Writer, allocs []RawAlloc) error {
	return encode(w, AllocKind, allocs)
}

func encode(w io.Writer, kind Kind, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "cannot encode %s data", kind)
	}
	return json.NewEncoder(w).Encode(Document{Type: kind, Data: raw})
}
