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

	"github.com/0xsoniclabs/owl/analyzer"
	"github.com/0xsoniclabs/owl/config"
	"github.com/0xsoniclabs/owl/logger"
	"github.com/0xsoniclabs/owl/report/leakdb"
	"github.com/urfave/cli/v2"
)

var LeakageCommand = cli.Command{
	Action:    leakageAction,
	Name:      "leakage",
	Usage:     "runs the fixed and random input commands and reports leaking kernels",
	ArgsUsage: "[-- <command>]",
	Flags: []cli.Flag{
		&config.TimesFlag,
		&config.SignFlag,
		&config.RandCmdFlag,
		&config.CmdsFlag,
		&config.CmdsFileFlag,
		&config.OutputDirFlag,
		&config.DbFlag,
		&config.HtmlFlag,
		&logger.LogLevelFlag,
	},
}

func leakageAction(ctx *cli.Context) (err error) {
	cfg, err := config.NewConfig(ctx)
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.LogLevel, "Owl")
	log.Info("Leakage test start")

	var db leakdb.LeakDB
	if cfg.DbFile != "" {
		db, err = leakdb.Open(cfg.DbFile)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, db.Close())
		}()
	}

	w := analyzer.NewWorkflow(cfg, analyzer.NewShell(), db, ctx.App.Writer, log)
	outcomes, err := w.Run(ctx.Context)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		log.Noticef("Command %d `%s`: %s", o.Index, o.Command, verdict(o))
		o.Report.Summary(ctx.App.Writer)
	}
	return nil
}

func verdict(o analyzer.Outcome) string {
	if o.Report.Empty() {
		return "no leakage found"
	}
	return "leakage found"
}
