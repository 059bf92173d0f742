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

// Package analyzer drives leakage tests: it runs the target once per
// repetition for both input classes, folds the traces into evidence and
// compares the classes.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/0xsoniclabs/owl/evidence"
	"github.com/0xsoniclabs/owl/logger"
	"github.com/0xsoniclabs/owl/report"
	"github.com/0xsoniclabs/owl/trace"
)

// Input classes, also used as directory names below the trace root.
const (
	FixedClass  = "fix"
	RandomClass = "rnd"
)

// Options describe a single leakage test.
type Options struct {
	FixedCommand  string
	RandomCommand string
	Times         int
	Threshold     float64
	// Root is the directory the traces of all runs are stored in.
	Root string
}

// Analyzer runs a leakage test of one fixed-input command against the
// random-input command.
type Analyzer struct {
	opts     Options
	runner   Runner
	out      io.Writer
	interner *trace.Interner
	log      logger.Logger
}

// New creates an analyzer. The output of the target is copied to out.
func New(opts Options, runner Runner, out io.Writer, log logger.Logger) *Analyzer {
	return &Analyzer{
		opts:     opts,
		runner:   runner,
		out:      out,
		interner: trace.NewInterner(),
		log:      log,
	}
}

// Test runs both classes and returns the leakage report.
func (a *Analyzer) Test(ctx context.Context) (*report.Report, error) {
	res, err := a.Compare(ctx)
	if err != nil {
		return nil, err
	}
	return report.FromResult(res), nil
}

// Compare runs the fixed command, then the random command, each Times times
// and strictly one after the other, and compares the resulting evidence.
func (a *Analyzer) Compare(ctx context.Context) (*evidence.Result, error) {
	if a.opts.Times < 1 {
		return nil, fmt.Errorf("times must be at least 1, got %d", a.opts.Times)
	}
	start := time.Now()

	a.log.Notice("Collecting fixed input traces")
	fixed, err := a.collect(ctx, FixedClass, a.opts.FixedCommand)
	if err != nil {
		return nil, err
	}
	a.log.Notice("Collecting random input traces")
	random, err := a.collect(ctx, RandomClass, a.opts.RandomCommand)
	if err != nil {
		return nil, err
	}

	a.log.Notice("Testing")
	res, err := evidence.Test(fixed, random, a.opts.Times, a.opts.Times, a.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("cannot compare evidence; %w", err)
	}
	h, m, s := logger.ParseTime(time.Since(start))
	a.log.Noticef("Test finished after %vh %vm %vs", h, m, s)
	return res, nil
}

// collect runs command Times times and folds every trace into one evidence.
func (a *Analyzer) collect(ctx context.Context, class, command string) (*evidence.Evidence, error) {
	ev := evidence.New()
	for idx := 0; idx < a.opts.Times; idx++ {
		a.log.Infof("%s run %d/%d", class, idx+1, a.opts.Times)
		dir := filepath.Join(a.opts.Root, class, strconv.Itoa(idx))
		t, err := a.trace(ctx, command, dir)
		if err != nil {
			return nil, fmt.Errorf("%s run %d failed; %w", class, idx, err)
		}
		if err := ev.Merge(t); err != nil {
			return nil, fmt.Errorf("cannot merge %s run %d; %w", class, idx, err)
		}
		a.log.Debugf("%s evidence holds %d calls after %d runs", class, len(ev.Calls()), ev.Runs())
	}
	return ev, nil
}

// trace executes command once with its trace written to dir and loads it.
func (a *Analyzer) trace(ctx context.Context, command, dir string) (*trace.Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create trace directory %s; %w", dir, err)
	}
	a.log.Debugf("Recorded trace path: %s", dir)
	if err := a.runner.Run(ctx, command, traceEnv(dir), a.out); err != nil {
		return nil, err
	}
	t, err := trace.Load(dir, a.interner)
	if err != nil {
		return nil, err
	}
	a.log.Debugf("Run traced %d kernel calls from %d recorded call stacks, %d distinct contexts seen", len(t.Calls), t.Stacks, a.interner.Len())
	return t, nil
}
