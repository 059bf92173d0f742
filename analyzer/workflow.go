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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0xsoniclabs/owl/config"
	"github.com/0xsoniclabs/owl/evidence"
	"github.com/0xsoniclabs/owl/logger"
	"github.com/0xsoniclabs/owl/report"
	"github.com/0xsoniclabs/owl/report/leakdb"
	"github.com/0xsoniclabs/owl/report/visualizer"
	"github.com/0xsoniclabs/owl/trace"
)

const (
	stage1Dir  = "stage1"
	ReportFile = "report.json"
	PageFile   = "report.html"
	kernelsDir = "kernels"
)

// Outcome is the result of testing one fixed-input command.
type Outcome struct {
	Index   int
	Command string
	Dir     string
	Report  *report.Report
	// RunID is the id of the stored run, zero without database.
	RunID int64
}

// Workflow tests a list of fixed-input commands in three stages: every
// command is traced once, commands with the same trace as an earlier one are
// dropped, and each remaining command is leakage tested.
type Workflow struct {
	cfg    *config.Config
	runner Runner
	db     leakdb.LeakDB
	out    io.Writer
	log    logger.Logger
}

// NewWorkflow creates a workflow. db may be nil if reports are not stored.
func NewWorkflow(cfg *config.Config, runner Runner, db leakdb.LeakDB, out io.Writer, log logger.Logger) *Workflow {
	return &Workflow{cfg: cfg, runner: runner, db: db, out: out, log: log}
}

// Collect traces every command once into <root>/stage1/<idx>.
func (w *Workflow) Collect(ctx context.Context, cmds []string) ([]*trace.Trace, error) {
	w.log.Notice("Stage 1 start")
	a := New(Options{}, w.runner, w.out, w.log)
	res := make([]*trace.Trace, len(cmds))
	for idx, cmd := range cmds {
		dir := filepath.Join(w.cfg.OutputDir, stage1Dir, strconv.Itoa(idx))
		t, err := a.trace(ctx, cmd, dir)
		if err != nil {
			return nil, fmt.Errorf("cannot trace command %d; %w", idx, err)
		}
		res[idx] = t
	}
	return res, nil
}

// Deduplicate keeps the first of all commands whose traces are the same.
func (w *Workflow) Deduplicate(cmds []string, traces []*trace.Trace) []string {
	w.log.Notice("Stage 2 start")
	var kept []int
	for idx, t := range traces {
		duplicate := false
		for _, k := range kept {
			if traces[k].Same(t) {
				w.log.Infof("Find same trace, %d and %d", idx, k)
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, idx)
		}
	}
	res := make([]string, len(kept))
	for i, k := range kept {
		res[i] = cmds[k]
	}
	return res
}

// Run executes all stages. With a single command the first two stages are
// skipped.
func (w *Workflow) Run(ctx context.Context) ([]Outcome, error) {
	cmds := w.cfg.Commands
	if len(cmds) > 1 {
		traces, err := w.Collect(ctx, cmds)
		if err != nil {
			return nil, err
		}
		cmds = w.Deduplicate(cmds, traces)
	} else {
		w.log.Warning("Only one command, skip stage 1 and 2")
	}

	w.log.Notice("Stage 3 start")
	res := make([]Outcome, 0, len(cmds))
	for idx, cmd := range cmds {
		w.log.Infof("test idx: %d, cmd: `%s`", idx, cmd)
		o, err := w.test(ctx, idx, cmd)
		if err != nil {
			return res, err
		}
		res = append(res, o)
	}
	w.log.Notice("Analyze finished")
	return res, nil
}

// test runs the leakage test of one command and stores its outputs.
func (w *Workflow) test(ctx context.Context, idx int, cmd string) (Outcome, error) {
	dir := filepath.Join(w.cfg.OutputDir, strconv.Itoa(idx))
	a := New(Options{
		FixedCommand:  cmd,
		RandomCommand: w.cfg.RandCommand,
		Times:         w.cfg.Times,
		Threshold:     w.cfg.Threshold,
		Root:          dir,
	}, w.runner, w.out, w.log)

	res, err := a.Compare(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("leakage test of command %d failed; %w", idx, err)
	}
	rep := report.FromResult(res)
	o := Outcome{Index: idx, Command: cmd, Dir: dir, Report: rep}

	path := filepath.Join(dir, ReportFile)
	if err := rep.Write(path); err != nil {
		return o, err
	}
	w.log.Infof("Report saved to %s", path)

	if w.db != nil {
		id, err := w.db.Save(leakdb.Run{
			Command:     cmd,
			RandCommand: w.cfg.RandCommand,
			Times:       w.cfg.Times,
			Threshold:   w.cfg.Threshold,
		}, rep)
		if err != nil {
			return o, fmt.Errorf("cannot store report of command %d; %w", idx, err)
		}
		o.RunID = id
		w.log.Infof("Report stored as run %d", id)
	}

	if w.cfg.Html {
		if err := renderPages(dir, rep, res); err != nil {
			return o, err
		}
	}
	return o, nil
}

// renderPages writes the report page and one page per leaking kernel call.
func renderPages(dir string, rep *report.Report, res *evidence.Result) error {
	if err := writeFile(filepath.Join(dir, PageFile), func(f io.Writer) error {
		return visualizer.Render(f, rep)
	}); err != nil {
		return err
	}
	for i, kr := range res.Kernels {
		if kr.IsEmpty() {
			continue
		}
		base := filepath.Join(dir, kernelsDir, fmt.Sprintf("%d-%s", i, fileName(kr.Kernel)))
		if len(kr.Flow) > 0 {
			page, err := visualizer.GraphDot(kr.Kernel, kr.Fixed, kr.Flow)
			if err != nil {
				return err
			}
			if err := writeFile(base+"-cfg.html", func(f io.Writer) error {
				_, err := io.WriteString(f, page)
				return err
			}); err != nil {
				return err
			}
		}
		if len(kr.Memory) > 0 {
			if err := writeFile(base+"-mem.html", func(f io.Writer) error {
				return visualizer.RenderKernel(f, kr)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileName replaces all characters of a kernel name that are unsafe in file
// names.
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create directory for %s; %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s; %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return write(f)
}
