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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xsoniclabs/owl/flow"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/0xsoniclabs/owl/memory"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_EqualIsLoose(t *testing.T) {
	a := Frame{Addr: 1, Func: "f", File: "x.cu", Offset: 10}
	b := Frame{Addr: 1, Func: "f", File: "y.cu", Offset: 20}
	c := Frame{Addr: 2, Func: "g", File: "y.cu", Offset: 20}

	assert.True(t, a.Equal(b), "address and symbol agree")
	assert.True(t, b.Equal(c), "file and offset agree")
	assert.False(t, a.Equal(c), "equality is not transitive")
}

func TestContext_EqualIsNotTransitive(t *testing.T) {
	a := NewContext([]Frame{{Addr: 1, Func: "f", File: "x.cu", Offset: 10}})
	b := NewContext([]Frame{{Addr: 1, Func: "f", File: "y.cu", Offset: 20}})
	c := NewContext([]Frame{{Addr: 2, Func: "g", File: "y.cu", Offset: 20}})

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(c))
	assert.False(t, a.Equal(c))
}

func TestContext_Equal(t *testing.T) {
	frames := []Frame{{Addr: 1, Func: "f"}, {Addr: 2, Func: "main"}}
	a := NewContext(frames)
	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(NewContext(frames)))
	assert.False(t, a.Equal(NewContext(frames[:1])))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, 2, a.Len())

	// frames are copied
	frames[0].Func = "changed"
	assert.Equal(t, "f", a.Frames()[0].Func)
}

func TestContext_String(t *testing.T) {
	c := NewContext([]Frame{{Addr: 0x401000, Func: "launch"}, {Addr: 0x401100, Func: "main"}})
	assert.Equal(t, "0x401000:launch/0x401100:main", c.String())
	assert.Equal(t, "", NewContext(nil).String())
}

func TestInterner_SharesContexts(t *testing.T) {
	in := NewInterner()
	a := in.Intern([]Frame{{Addr: 1, Func: "f"}})
	b := in.Intern([]Frame{{Addr: 1, Func: "f"}})
	c := in.Intern([]Frame{{Addr: 1, Func: "f", File: "a.cu"}})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, in.Len())
}

func TestReadRun_Fixture(t *testing.T) {
	run, err := ReadRun(filepath.Join("testdata", "run"))
	require.NoError(t, err)
	require.Len(t, run.Kernels, 2)
	assert.Equal(t, []RawAlloc{{Addr: 12288, Size: 64}}, run.Allocs)
	require.Len(t, run.Contexts, 1)
	assert.Equal(t, "launch", run.Contexts[0][0].Func)
	assert.Equal(t, memory.Shared, run.Kernels[0].Graph.Nodes[0].MemAccess[0].Data[1].Access[0].Type)
}

func TestLoad_ConvertsFixture(t *testing.T) {
	tr, err := Load(filepath.Join("testdata", "run"), NewInterner())
	require.NoError(t, err)
	require.Len(t, tr.Calls, 2)
	assert.Equal(t, 1, tr.Stacks)

	call := tr.Calls[0]
	assert.Equal(t, 1, call.Count)
	assert.Equal(t, "0x401000:launch/0x401100:main", call.Context.String())
	assert.Equal(t, "aes_encrypt", call.Kernel.Name)
	assert.Equal(t, uint64(4242), call.Kernel.Type)
	assert.Equal(t, []graph.BlockID{0, 1}, call.Kernel.Graph.IDs())

	n0 := call.Kernel.Graph.Node(0)
	assert.Equal(t, uint64(32), n0.Flow.Count(0, 1))
	assert.Equal(t, []flow.Block{1, 2}, n0.Flow.Destinations())
	assert.Equal(t, uint64(32), call.Kernel.Graph.Node(1).Flow.Count(1, -2))

	instr := n0.Memory.Instruction(16)
	require.Len(t, instr.Positions, 2)
	assert.Equal(t, []memory.Entry{
		{Addr: memory.Address{Offset: 0, Pool: 4096, InPool: true, Space: memory.Global}, Count: 30},
		{Addr: memory.Address{Offset: 8192, Space: memory.Global}, Count: 2},
	}, instr.Positions[0].Entries())
	assert.Equal(t, uint64(32), instr.Positions[1].Count(memory.Address{Offset: 16, Space: memory.Shared}))

	// kernels without pools fall back to the run's allocations
	finish := tr.Calls[1].Kernel.Graph.Node(0).Memory.Instruction(8)
	assert.Equal(t, []memory.Entry{
		{Addr: memory.Address{Offset: 0, Pool: 12288, InPool: true, Space: memory.Global}, Count: 1},
	}, finish.Positions[0].Entries())
}

func TestLoad_SameRunTwiceIsSame(t *testing.T) {
	in := NewInterner()
	a, err := Load(filepath.Join("testdata", "run"), in)
	require.NoError(t, err)
	b, err := Load(filepath.Join("testdata", "run"), in)
	require.NoError(t, err)

	assert.True(t, a.Same(b))
	assert.Same(t, a.Calls[0].Context, b.Calls[0].Context)
	assert.False(t, a.Same(&Trace{Calls: a.Calls[:1]}))

	b.Calls[1].Kernel.Graph.Add(graph.NewNode(9))
	assert.False(t, a.Same(b))
}

func TestMatches_UsesContextOnly(t *testing.T) {
	ctx := NewContext([]Frame{{Addr: 1, Func: "f"}})
	a := NewCall(ctx, &Kernel{Name: "a", Graph: graph.New()})
	b := NewCall(NewContext([]Frame{{Addr: 1, Func: "f"}}), &Kernel{Name: "b", Graph: graph.New()})
	assert.True(t, Matches(a, b))
	assert.False(t, a.Same(b))

	clone := a.Kernel.Clone()
	assert.True(t, clone.Same(a.Kernel))
}

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestReadRun_Gzip(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "run", KernelFile))
	require.NoError(t, err)
	writeGzip(t, filepath.Join(dir, KernelFile+".gz"), data)

	run, err := ReadRun(dir)
	require.NoError(t, err)
	assert.Len(t, run.Kernels, 2)
	assert.Empty(t, run.Allocs)
	assert.Empty(t, run.Contexts)
}

func TestReadRun_Errors(t *testing.T) {
	tests := map[string]struct {
		files map[string]string
		want  string
	}{
		"missing kernel file": {
			files: map[string]string{},
			want:  "does it exist",
		},
		"empty kernel file": {
			files: map[string]string{KernelFile: ""},
			want:  "is empty",
		},
		"malformed json": {
			files: map[string]string{KernelFile: "{"},
			want:  "malformed trace artifact",
		},
		"wrong document type": {
			files: map[string]string{KernelFile: `{"type":"Alloc","data":[]}`},
			want:  "unexpected document type",
		},
		"missing data": {
			files: map[string]string{KernelFile: `{"type":"Kernel"}`},
			want:  "has no data",
		},
		"malformed alloc": {
			files: map[string]string{
				KernelFile: `{"type":"Kernel","data":[]}`,
				AllocFile:  `{"type":"Alloc","data":{}}`,
			},
			want: "cannot decode Alloc data",
		},
		"unknown memory space": {
			files: map[string]string{
				KernelFile: `{"type":"Kernel","data":[{"g":{"nodes":[{"mem_access":[{"data":[{"access":[{"type":"HEAP","memory":[]}]}]}]}]}}]}`,
			},
			want: "unknown memory space",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, content := range test.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
			}
			_, err := ReadRun(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestReadRun_MissingKernelIsNotExist(t *testing.T) {
	_, err := ReadRun(t.TempDir())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadRun_BrokenGzip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KernelFile+".gz"), []byte("not gzip"), 0o644))
	_, err := ReadRun(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not create gzip reader")
}

func TestEncodeDecodeAllocs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeAllocs(&buf, []RawAlloc{{Addr: 1, Size: 2}}))
	assert.True(t, strings.HasPrefix(buf.String(), `{"type":"Alloc"`))
	got, err := DecodeAllocs(&buf)
	require.NoError(t, err)
	assert.Equal(t, []RawAlloc{{Addr: 1, Size: 2}}, got)

	buf.Reset()
	require.NoError(t, EncodeKernels(&buf, []RawKernel{{Name: "k"}}))
	kernels, err := DecodeKernels(&buf)
	require.NoError(t, err)
	assert.Equal(t, "k", kernels[0].Name)
}
