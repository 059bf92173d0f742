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

package config

import "github.com/urfave/cli/v2"

var (
	TimesFlag = cli.IntFlag{
		Name:    "times",
		Aliases: []string{"t"},
		Usage:   "number of runs of each input class",
		Value:   2,
	}
	SignFlag = cli.Float64Flag{
		Name:    "sign",
		Aliases: []string{"s"},
		Usage:   "significance level in [0,1]; findings with p-value below 1-sign are reported",
	}
	RandCmdFlag = cli.StringFlag{
		Name:    "rand-cmd",
		Aliases: []string{"r"},
		Usage:   "command running the target with random input",
	}
	CmdsFlag = cli.StringFlag{
		Name:    "cmds",
		Aliases: []string{"c"},
		Usage:   "fixed-input commands separated by ':'",
	}
	CmdsFileFlag = cli.PathFlag{
		Name:  "cmds-file",
		Usage: "file listing one fixed-input command per line",
	}
	OutputDirFlag = cli.PathFlag{
		Name:    "output-dir",
		Usage:   "root directory of traces and reports",
		EnvVars: []string{"OWL_RES"},
		Value:   "./owl_results",
	}
	DbFlag = cli.PathFlag{
		Name:  "db",
		Usage: "sqlite database the reports are stored in",
	}
	HtmlFlag = cli.BoolFlag{
		Name:  "html",
		Usage: "render html pages next to each report",
	}
)
