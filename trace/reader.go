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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

// Names of the files the tracer writes into a run directory. Each may also be
// stored gzip compressed with a .gz suffix.
const (
	KernelFile  = "kernel.json"
	AllocFile   = "alloc.json"
	ContextFile = "context.json"
)

// artifact is an opened tracer file, transparently decompressed.
type artifact struct {
	reader io.Reader
	closer []io.Closer
}

func (a *artifact) Read(p []byte) (int, error) {
	return a.reader.Read(p)
}

func (a *artifact) Close() error {
	var err error
	for i := len(a.closer) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closer[i].Close())
	}
	return err
}

// openArtifact opens name in dir, falling back to name.gz. The returned
// error satisfies os.IsNotExist if neither exists.
func openArtifact(dir, name string) (*artifact, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return openFile(path, false)
	}
	gz := path + ".gz"
	if _, err := os.Stat(gz); err != nil {
		return nil, fmt.Errorf("could not stat file: %s, does it exist? %w", path, os.ErrNotExist)
	}
	return openFile(gz, true)
}

func openFile(path string, compressed bool) (*artifact, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %s, does it exist? %w", path, err)
	}
	if stat.IsDir() {
		return nil, errors.Newf("given path to trace file %s is a directory", path)
	}
	if stat.Size() == 0 {
		return nil, errors.Newf("given trace file %s is empty", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open trace file: %s, %w", path, err)
	}
	if !compressed {
		return &artifact{reader: bufio.NewReader(file), closer: []io.Closer{file}}, nil
	}
	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("could not create gzip reader for trace file: %s, %w", path, err), file.Close())
	}
	return &artifact{reader: bufio.NewReader(gzipReader), closer: []io.Closer{file, gzipReader}}, nil
}

// ReadRun loads the tracer output of one run from dir. The kernel file is
// mandatory; allocation and context files are optional.
func ReadRun(dir string) (*RawRun, error) {
	run := &RawRun{}

	kernels, err := readDocument(dir, KernelFile, DecodeKernels)
	if err != nil {
		return nil, err
	}
	run.Kernels = kernels

	allocs, err := readDocument(dir, AllocFile, DecodeAllocs)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	run.Allocs = allocs

	contexts, err := readDocument(dir, ContextFile, DecodeContexts)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	run.Contexts = contexts

	return run, nil
}

func readDocument[T any](dir, name string, decode func(io.Reader) (T, error)) (res T, err error) {
	a, err := openArtifact(dir, name)
	if err != nil {
		return res, err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	res, err = decode(a)
	if err != nil {
		return res, errors.Wrapf(err, "malformed trace artifact %s", filepath.Join(dir, name))
	}
	return res, nil
}
