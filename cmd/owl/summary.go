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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/0xsoniclabs/owl/config"
	"github.com/0xsoniclabs/owl/report"
	"github.com/0xsoniclabs/owl/report/leakdb"
	"github.com/0xsoniclabs/owl/report/visualizer"
	"github.com/urfave/cli/v2"
)

var runIdFlag = cli.Int64Flag{
	Name:  "run",
	Usage: "id of a run stored in the database given by --db",
}

var SummaryCommand = cli.Command{
	Action:    summaryAction,
	Name:      "summary",
	Usage:     "prints the findings of a report",
	ArgsUsage: "[<report.json>]",
	Flags: []cli.Flag{
		&config.DbFlag,
		&runIdFlag,
	},
}

var RenderCommand = cli.Command{
	Action:    renderAction,
	Name:      "render",
	Usage:     "renders a report as html page",
	ArgsUsage: "[<report.json>] <out.html>",
	Flags: []cli.Flag{
		&config.DbFlag,
		&runIdFlag,
	},
}

var RunsCommand = cli.Command{
	Action: runsAction,
	Name:   "runs",
	Usage:  "lists the runs stored in a database",
	Flags: []cli.Flag{
		&config.DbFlag,
	},
}

// loadReport reads the report of a stored run if --db is given, otherwise
// from the first argument. It returns the number of arguments consumed.
func loadReport(ctx *cli.Context) (r *report.Report, used int, err error) {
	file := ctx.Path(config.DbFlag.Name)
	if file == "" {
		if ctx.NArg() < 1 {
			return nil, 0, fmt.Errorf("missing report file")
		}
		r, err := report.Read(ctx.Args().First())
		return r, 1, err
	}
	if !ctx.IsSet(runIdFlag.Name) {
		return nil, 0, fmt.Errorf("--%s requires --%s", config.DbFlag.Name, runIdFlag.Name)
	}
	db, err := leakdb.Open(file)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()
	r, err = db.Load(ctx.Int64(runIdFlag.Name))
	return r, 0, err
}

func summaryAction(ctx *cli.Context) error {
	r, _, err := loadReport(ctx)
	if err != nil {
		return err
	}
	r.Summary(ctx.App.Writer)
	return nil
}

func renderAction(ctx *cli.Context) (err error) {
	r, used, err := loadReport(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() <= used {
		return fmt.Errorf("missing output file")
	}
	return writeFile(ctx.Args().Get(used), func(f io.Writer) error {
		return visualizer.Render(f, r)
	})
}

func runsAction(ctx *cli.Context) (err error) {
	file := ctx.Path(config.DbFlag.Name)
	if file == "" {
		return fmt.Errorf("missing --%s", config.DbFlag.Name)
	}
	db, err := leakdb.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()
	runs, err := db.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		_, err := fmt.Fprintf(ctx.App.Writer, "%d\t%s\t%s\t%s\ttimes=%d\tthreshold=%v\n",
			run.ID, run.Created.Format(time.DateTime), run.Command, run.RandCommand, run.Times, run.Threshold)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s; %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return write(f)
}
