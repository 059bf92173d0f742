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

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xsoniclabs/owl/evidence"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/0xsoniclabs/owl/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func context(frames ...trace.Frame) *trace.Context {
	return trace.NewContext(frames)
}

func sampleResult() *evidence.Result {
	ctxA := context(trace.Frame{Addr: 0x10, Func: "launch"}, trace.Frame{Addr: 0x20, Func: "main"})
	ctxB := context(trace.Frame{Addr: 0x30, Func: "other"})
	return &evidence.Result{
		Presence: []evidence.PresenceResult{
			{Context: ctxB, Kernel: "k2", Fixed: 3, Random: 1},
			{Context: ctxB, Kernel: "k2", Fixed: 3, Random: 1},
		},
		Kernels: []evidence.KernelResult{
			{
				Context: ctxA,
				Kernel:  "k1",
				Result: graph.Result{
					Flow:   []graph.FlowResult{{Block: 4, P: 0.01}, {Block: 2, P: 0.02}, {Block: 4, P: 0.01}},
					Memory: []graph.MemoryResult{{Block: 2, Instr: 0x90, P: 0.001}},
				},
			},
			{Context: ctxB, Kernel: "k2"},
		},
	}
}

func TestFromResult_GroupsAndDeduplicates(t *testing.T) {
	r := FromResult(sampleResult())

	assert.Equal(t, []KernelLeak{{Context: "0x30:other", Kernel: "k2", Fixed: 3, Random: 1}}, r.KernelLeak)
	assert.Equal(t, map[string][]FlowLeak{
		"0x10:launch/0x20:main": {{Kernel: "k1", Block: 2, P: 0.02}, {Kernel: "k1", Block: 4, P: 0.01}},
	}, r.FlowLeak)
	assert.Equal(t, map[string][]MemoryLeak{
		"0x10:launch/0x20:main": {{Kernel: "k1", Instr: 0x90, Block: 2, P: 0.001}},
	}, r.MemoryLeak)
	assert.Equal(t, []string{"0x10:launch/0x20:main", "0x30:other"}, r.Contexts())
	assert.False(t, r.Empty())
}

func TestFromResult_EmptyResult(t *testing.T) {
	r := FromResult(&evidence.Result{Kernels: []evidence.KernelResult{{Context: context(), Kernel: "k"}}})
	assert.True(t, r.Empty())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kernel_leak":[],"cf_leak":{},"df_leak":{}}`, string(data))
}

func TestReport_JSONShape(t *testing.T) {
	data, err := json.Marshal(FromResult(sampleResult()))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kernel_leak": [{"ctx": "0x30:other", "kernel": "k2", "fix_num": 3, "rnd_num": 1}],
		"cf_leak": {"0x10:launch/0x20:main": [
			{"kernel": "k1", "bb": 2, "p": 0.02},
			{"kernel": "k1", "bb": 4, "p": 0.01}
		]},
		"df_leak": {"0x10:launch/0x20:main": [{"kernel": "k1", "instr": 144, "bb": 2, "p": 0.001}]}
	}`, string(data))
}

func TestReport_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	want := FromResult(sampleResult())
	require.NoError(t, want.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "cannot read report")

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("[1"), 0o644))
	_, err = Read(path)
	assert.ErrorContains(t, err, "cannot decode report")

	path = filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kernel_leak":null}`), 0o644))
	r, err := Read(path)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.NotNil(t, r.KernelLeak)
}

func TestWrite_Error(t *testing.T) {
	err := New().Write(filepath.Join(t.TempDir(), "missing", "report.json"))
	assert.ErrorContains(t, err, "cannot write report")
}

func TestReport_Summary(t *testing.T) {
	var buf bytes.Buffer
	r := FromResult(sampleResult())
	r.Summary(&buf)

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "leakage summary")
	assert.Contains(t, out, "0x30:other")
	assert.Contains(t, out, "3/1")
	assert.Contains(t, out, "0x90")
	assert.Contains(t, out, "1.000e-03")

	buf.Reset()
	New().Summary(&buf)
	assert.Contains(t, strings.ToLower(buf.String()), "leakage summary")
	assert.NotContains(t, buf.String(), "0x")
}
