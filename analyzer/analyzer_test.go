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

package analyzer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xsoniclabs/owl/logger"
	"github.com/0xsoniclabs/owl/stats"
	"github.com/0xsoniclabs/owl/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// rawKernel builds a kernel launched from fn with a single block id holding
// the given control-flow edges.
func rawKernel(name, fn string, id uint32, edges ...trace.RawEdge) trace.RawKernel {
	return trace.RawKernel{
		Type: uint64(len(name)),
		Name: name,
		Graph: trace.RawGraph{Nodes: []trace.RawNode{
			{ID: id, ControlFlow: edges},
		}},
		Backtrace: []trace.RawFrame{{Addr: 0x10, Func: fn, File: fn + ".cu", Offset: 1}},
	}
}

// writeKernels plays the tracer: it stores kernels into the trace
// directory passed in env.
func writeKernels(t *testing.T, env []string, kernels ...trace.RawKernel) {
	t.Helper()
	require.Len(t, env, 1)
	require.True(t, strings.HasPrefix(env[0], TraceEnv+"="))
	dir := strings.TrimPrefix(env[0], TraceEnv+"=")
	f, err := os.Create(filepath.Join(dir, trace.KernelFile))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, trace.EncodeKernels(f, kernels))
}

func TestShell_Run(t *testing.T) {
	var out bytes.Buffer
	err := NewShell().Run(context.Background(), "echo $"+TraceEnv, traceEnv("/tmp/owl"), &out)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/owl\n", out.String())
}

func TestShell_RunFails(t *testing.T) {
	err := NewShell().Run(context.Background(), "exit 3", nil, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit 3")
}

func TestAnalyzer_RunsClassesSequentially(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	root := t.TempDir()

	var dirs []string
	record := func(_ context.Context, _ string, env []string, _ io.Writer) error {
		dirs = append(dirs, strings.TrimPrefix(env[0], TraceEnv+"="))
		writeKernels(t, env, rawKernel("k", "main", 0, trace.RawEdge{From: 0, To: -1, Num: 1}))
		return nil
	}
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), "fixed", gomock.Any(), gomock.Any()).DoAndReturn(record).Times(2),
		runner.EXPECT().Run(gomock.Any(), "random", gomock.Any(), gomock.Any()).DoAndReturn(record).Times(2),
	)

	a := New(Options{FixedCommand: "fixed", RandomCommand: "random", Times: 2, Threshold: 0.5, Root: root},
		runner, io.Discard, logger.NewLogger("ERROR", "Test"))
	rep, err := a.Test(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Empty())
	assert.Equal(t, []string{
		filepath.Join(root, FixedClass, "0"),
		filepath.Join(root, FixedClass, "1"),
		filepath.Join(root, RandomClass, "0"),
		filepath.Join(root, RandomClass, "1"),
	}, dirs)
}

func TestAnalyzer_DetectsLeaks(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().Run(gomock.Any(), "fixed", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, env []string, _ io.Writer) error {
			writeKernels(t, env, rawKernel("aes", "main", 0, trace.RawEdge{From: 0, To: 1, Num: 32}))
			return nil
		}).Times(4)

	runs := 0
	runner.EXPECT().Run(gomock.Any(), "random", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, env []string, _ io.Writer) error {
			to := int64(1 + runs%2)
			runs++
			writeKernels(t, env,
				rawKernel("aes", "main", 0, trace.RawEdge{From: 0, To: to, Num: 32}),
				rawKernel("noise", "helper", 0, trace.RawEdge{From: 0, To: -1, Num: 1}),
			)
			return nil
		}).Times(4)

	a := New(Options{FixedCommand: "fixed", RandomCommand: "random", Times: 4, Threshold: 0.8, Root: t.TempDir()},
		runner, io.Discard, logger.NewLogger("ERROR", "Test"))
	rep, err := a.Test(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.KernelLeak, 1)
	assert.Equal(t, "noise", rep.KernelLeak[0].Kernel)
	assert.Equal(t, 0, rep.KernelLeak[0].Fixed)
	assert.Equal(t, 4, rep.KernelLeak[0].Random)

	require.Len(t, rep.FlowLeak, 1)
	for _, leaks := range rep.FlowLeak {
		require.Len(t, leaks, 1)
		assert.Equal(t, "aes", leaks[0].Kernel)
		assert.Equal(t, uint32(0), leaks[0].Block)
		assert.InDelta(t, stats.KSPValue(0.5, 4, 4), leaks[0].P, 1e-12)
	}
	assert.Empty(t, rep.MemoryLeak)
}

func TestAnalyzer_FailedRunAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	failure := errors.New("segfault")
	runner.EXPECT().Run(gomock.Any(), "fixed", gomock.Any(), gomock.Any()).Return(failure)

	a := New(Options{FixedCommand: "fixed", RandomCommand: "random", Times: 3, Root: t.TempDir()},
		runner, io.Discard, logger.NewLogger("ERROR", "Test"))
	_, err := a.Test(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
}

func TestAnalyzer_MissingTraceAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), "fixed", gomock.Any(), gomock.Any()).Return(nil)

	a := New(Options{FixedCommand: "fixed", RandomCommand: "random", Times: 1, Root: t.TempDir()},
		runner, io.Discard, logger.NewLogger("ERROR", "Test"))
	_, err := a.Test(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := New(Options{FixedCommand: "fixed", RandomCommand: "random", Times: 1, Root: t.TempDir()},
		runner, io.Discard, logger.NewLogger("ERROR", "Test"))
	_, err := a.Test(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_RejectsZeroTimes(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := New(Options{Times: 0}, NewMockRunner(ctrl), io.Discard, logger.NewLogger("ERROR", "Test"))
	_, err := a.Test(context.Background())
	assert.Error(t, err)
}

func TestAnalyzer_TraceLogsCallStacks(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	log := logger.NewMockLogger(ctrl)
	root := t.TempDir()

	runner.EXPECT().Run(gomock.Any(), "fixed", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, env []string, _ io.Writer) error {
			writeKernels(t, env, rawKernel("k", "main", 0, trace.RawEdge{From: 0, To: -1, Num: 1}))
			dir := strings.TrimPrefix(env[0], TraceEnv+"=")
			contexts := `{"type":"Context","data":[[{"addr":16,"func":"main","file":"main.cu","offset":1}]]}`
			return os.WriteFile(filepath.Join(dir, trace.ContextFile), []byte(contexts), 0644)
		}).Times(2)

	first, second := filepath.Join(root, "0"), filepath.Join(root, "1")
	gomock.InOrder(
		log.EXPECT().Debugf("Recorded trace path: %s", first),
		log.EXPECT().Debugf(gomock.Any(), 1, 1, 1),
		log.EXPECT().Debugf("Recorded trace path: %s", second),
		// the second run reuses the interned context
		log.EXPECT().Debugf(gomock.Any(), 1, 1, 1),
	)

	a := New(Options{}, runner, io.Discard, log)
	for _, dir := range []string{first, second} {
		tr, err := a.trace(context.Background(), "fixed", dir)
		require.NoError(t, err)
		assert.Equal(t, 1, tr.Stacks)
	}
}
