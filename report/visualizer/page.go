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

// Package visualizer renders leakage reports as HTML pages.
package visualizer

import (
	"fmt"
	"io"
	"math"

	"github.com/0xsoniclabs/owl/report"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// minP bounds p-values from below so that -log10(p) stays finite.
const minP = 1e-300

// globalOptions are shared by all charts of a page.
func globalOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Theme:     types.ThemeChalk,
			PageTitle: title,
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Title: "Save",
				},
				DataZoom: &opts.ToolBoxFeatureDataZoom{
					Show: true,
				},
			},
		}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
	}
}

// significance converts a p-value into the bar height -log10(p).
func significance(p float64) float64 {
	return -math.Log10(math.Max(p, minP))
}

// presenceChart shows the launch counts of every kernel call that differs
// between the classes.
func presenceChart(r *report.Report) *charts.Bar {
	labels := make([]string, 0, len(r.KernelLeak))
	fixed := make([]opts.BarData, 0, len(r.KernelLeak))
	random := make([]opts.BarData, 0, len(r.KernelLeak))
	for _, l := range r.KernelLeak {
		labels = append(labels, l.Kernel)
		fixed = append(fixed, opts.BarData{Name: l.Context, Value: l.Fixed})
		random = append(random, opts.BarData{Name: l.Context, Value: l.Random})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions("Kernel Presence")...)
	bar.SetXAxis(labels).
		AddSeries("Fixed", fixed).
		AddSeries("Random", random)
	return bar
}

// flowChart shows -log10(p) of every leaking basic block.
func flowChart(r *report.Report) *charts.Bar {
	var labels []string
	var data []opts.BarData
	for _, ctx := range r.Contexts() {
		for _, l := range r.FlowLeak[ctx] {
			labels = append(labels, fmt.Sprintf("%s/bb%d", l.Kernel, l.Block))
			data = append(data, opts.BarData{Name: ctx, Value: significance(l.P)})
		}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions("Control-Flow Leakage")...)
	bar.SetXAxis(labels).AddSeries("-log10(p)", data)
	bar.XYReversal()
	return bar
}

// memoryChart shows -log10(p) of every leaking instruction.
func memoryChart(r *report.Report) *charts.Bar {
	var labels []string
	var data []opts.BarData
	for _, ctx := range r.Contexts() {
		for _, l := range r.MemoryLeak[ctx] {
			labels = append(labels, fmt.Sprintf("%s/bb%d/0x%x", l.Kernel, l.Block, l.Instr))
			data = append(data, opts.BarData{Name: ctx, Value: significance(l.P)})
		}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions("Data-Flow Leakage")...)
	bar.SetXAxis(labels).AddSeries("-log10(p)", data)
	bar.XYReversal()
	return bar
}

// NewPage assembles the charts of a report into a single page.
func NewPage(r *report.Report) *components.Page {
	page := components.NewPage()
	page.PageTitle = "Owl: Leakage Report"
	page.AddCharts(presenceChart(r), flowChart(r), memoryChart(r))
	return page
}

// Render writes the report page as HTML to w.
func Render(w io.Writer, r *report.Report) error {
	return NewPage(r).Render(w)
}
