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
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// OwlApp data structure
var OwlApp = cli.App{
	Name:      "Owl GPU Leakage Analyzer",
	HelpName:  "owl",
	Usage:     "detect secret dependent control flow and memory accesses of GPU kernels",
	Copyright: "(c) 2025 Sonic Labs",
	Commands: []*cli.Command{
		&LeakageCommand,
		&SummaryCommand,
		&RenderCommand,
		&RunsCommand,
	},
}

// main implements owl functions
func main() {
	if err := OwlApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
