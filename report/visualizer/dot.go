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
	"bytes"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/owl/flow"
	"github.com/0xsoniclabs/owl/graph"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// dotPage embeds a graph in dot format into an HTML page that lays it out
// in the browser.
const dotPage = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>

    <script>
        const dot = ` + "`" + `%s` + "`" + `;
    </script>
</head>

<body>
    <h1>%s</h1>
    <div id="graph"></div>
    <script type="module">
        import { Graphviz } from "https://cdn.jsdelivr.net/npm/@hpcc-js/wasm/dist/index.js";
        if (Graphviz) {
            const graphviz = await Graphviz.load();
            const svg = graphviz.layout(dot, "svg", "dot");
	    document.getElementById("graph").innerHTML = svg;
        } 
    </script>
</body>
</html>
`

// renderDotGraph lays out graph and wraps it into an HTML page.
func renderDotGraph(title string, g *graphviz.Graphviz, graph *cgraph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := g.Render(graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("renderDotGraph: failed to render graph. Error: %v", err)
	}
	return fmt.Sprintf(dotPage, title, buf.String(), title), nil
}

// blockName names the graph node of a basic block. Negative ids mark the
// kernel exit.
func blockName(b flow.Block) string {
	if b < 0 {
		return "exit"
	}
	return fmt.Sprintf("bb%d", b)
}

type edgeKey struct {
	from, to flow.Block
}

// GraphDot renders the control flow of a kernel's behavior graph as an HTML
// page. Blocks listed in leaks are filled red and labelled with their p-value.
func GraphDot(title string, kernel *graph.Graph, leaks []graph.FlowResult) (out string, err error) {
	g := graphviz.New()
	dot, err := g.Graph()
	if err != nil {
		return "", fmt.Errorf("GraphDot: failed to create graph. Error: %v", err)
	}
	defer func() {
		err = errors.Join(err, dot.Close(), g.Close())
	}()

	leaking := make(map[flow.Block]float64, len(leaks))
	for _, l := range leaks {
		leaking[flow.Block(l.Block)] = l.P
	}

	nodes := map[flow.Block]*cgraph.Node{}
	node := func(b flow.Block) (*cgraph.Node, error) {
		if n, found := nodes[b]; found {
			return n, nil
		}
		n, err := dot.CreateNode(blockName(b))
		if err != nil {
			return nil, fmt.Errorf("GraphDot: failed to create node for block %d. Error: %v", b, err)
		}
		n.SetLabel(blockName(b))
		if p, found := leaking[b]; found {
			n.SetLabel(fmt.Sprintf("%s\\np=%.3e", blockName(b), p))
			n.SetStyle(cgraph.FilledNodeStyle)
			n.SetFillColor("red")
		}
		nodes[b] = n
		return n, nil
	}

	// blocks without any recorded edge still appear
	for _, id := range kernel.IDs() {
		if _, err := node(flow.Block(id)); err != nil {
			return "", err
		}
	}

	counts := map[edgeKey]uint64{}
	var order []edgeKey
	for _, n := range kernel.Nodes() {
		for _, e := range n.Flow.Edges() {
			key := edgeKey{e.From, e.To}
			if _, found := counts[key]; !found {
				order = append(order, key)
			}
			counts[key] += e.Count
		}
	}
	for _, key := range order {
		from, err := node(key.from)
		if err != nil {
			return "", err
		}
		to, err := node(key.to)
		if err != nil {
			return "", err
		}
		e, err := dot.CreateEdge("", from, to)
		if err != nil {
			return "", fmt.Errorf("GraphDot: failed to create edge %d->%d. Error: %v", key.from, key.to, err)
		}
		e.SetLabel(fmt.Sprintf("%d", counts[key]))
		if _, found := leaking[key.from]; found {
			e.SetColor("red")
		}
	}

	txt, err := renderDotGraph(title, g, dot)
	if err != nil {
		return "", fmt.Errorf("GraphDot: failed to render. Error: %v", err)
	}
	return txt, nil
}
