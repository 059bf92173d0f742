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

package visualizer

import (
	"fmt"
	"io"

	"github.com/0xsoniclabs/owl/evidence"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/0xsoniclabs/owl/memory"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// convertCDFData converts CDF points to chart points.
func convertCDFData(data [][2]float64) []opts.LineData {
	items := []opts.LineData{}
	for _, pair := range data {
		items = append(items, opts.LineData{Value: pair})
	}
	return items
}

// accesses folds all repetition positions of an instruction into one
// histogram. Missing blocks or instructions yield an empty histogram.
func accesses(g *graph.Graph, block graph.BlockID, instr uint64) memory.Histogram {
	var res memory.Histogram
	n := g.Node(block)
	if n == nil {
		return res
	}
	in, found := n.Memory.Lookup(instr)
	if !found {
		return res
	}
	for _, pos := range in.Positions {
		res.Merge(pos)
	}
	return res
}

// newAccessChart compares the address eCDFs of a leaking instruction.
func newAccessChart(title string, fixed, random memory.Histogram) *charts.Line {
	chart := charts.NewLine()
	chart.SetGlobalOptions(globalOptions(title)...)
	chart.AddSeries("Fixed", convertCDFData(AddressCDF(fixed))).
		AddSeries("Random", convertCDFData(AddressCDF(random)))
	return chart
}

// NewKernelPage assembles the address eCDFs of every leaking instruction of
// a kernel call.
func NewKernelPage(kr evidence.KernelResult) *components.Page {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Owl: %s", kr.Kernel)
	for _, m := range kr.Memory {
		title := fmt.Sprintf("%s bb%d 0x%x (p=%.3e)", kr.Kernel, m.Block, m.Instr, m.P)
		page.AddCharts(newAccessChart(title, accesses(kr.Fixed, m.Block, m.Instr), accesses(kr.Random, m.Block, m.Instr)))
	}
	return page
}

// RenderKernel writes the memory access page of a kernel call as HTML to w.
func RenderKernel(w io.Writer, kr evidence.KernelResult) error {
	return NewKernelPage(kr).Render(w)
}
