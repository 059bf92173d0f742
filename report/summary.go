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

package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary prints the report as tables to w.
func (r *Report) Summary(w io.Writer) {
	p := message.NewPrinter(language.English)

	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetTitle("Leakage summary")
	overview.AppendHeader(table.Row{"Kind", "Contexts", "Findings"})
	overview.AppendRow(table.Row{"kernel", p.Sprintf("%d", countContexts(r.KernelLeak)), p.Sprintf("%d", len(r.KernelLeak))})
	overview.AppendRow(table.Row{"control flow", p.Sprintf("%d", len(r.FlowLeak)), p.Sprintf("%d", countFindings(r.FlowLeak))})
	overview.AppendRow(table.Row{"memory", p.Sprintf("%d", len(r.MemoryLeak)), p.Sprintf("%d", countFindings(r.MemoryLeak))})
	overview.SetStyle(table.StyleLight)
	overview.Render()

	if r.Empty() {
		return
	}

	details := table.NewWriter()
	details.SetOutputMirror(w)
	details.AppendHeader(table.Row{"Context", "Kernel", "Kind", "Block", "Instr", "Fixed/Random or p"})
	for _, k := range r.KernelLeak {
		details.AppendRow(table.Row{k.Context, k.Kernel, "kernel", "", "", p.Sprintf("%d/%d", k.Fixed, k.Random)})
	}
	for _, ctx := range r.Contexts() {
		for _, f := range r.FlowLeak[ctx] {
			details.AppendRow(table.Row{ctx, f.Kernel, "control flow", f.Block, "", fmt.Sprintf("%.3e", f.P)})
		}
		for _, m := range r.MemoryLeak[ctx] {
			details.AppendRow(table.Row{ctx, m.Kernel, "memory", m.Block, fmt.Sprintf("0x%x", m.Instr), fmt.Sprintf("%.3e", m.P)})
		}
	}
	details.SetStyle(table.StyleLight)
	details.Render()
}

func countContexts(leaks []KernelLeak) int {
	set := map[string]struct{}{}
	for _, l := range leaks {
		set[l.Context] = struct{}{}
	}
	return len(set)
}

func countFindings[T any](m map[string][]T) int {
	n := 0
	for _, list := range m {
		n += len(list)
	}
	return n
}
