package resolver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderGraph renders a resolved install plan to the graphviz format
// named by ext ("png", "svg", "dot", ...), for diagnosing unexpected
// orderings. This is a diagnostics-only aid; nothing in §4.3 depends on
// it, but graph rendering is a natural home for a graphviz binding
// already present in the wider example pack.
func RenderGraph(plan []PackageToInstall, deps map[string][]string, ext string) ([]byte, error) {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return nil, fmt.Errorf("resolver: creating graph: %w", err)
	}
	defer graph.Close()

	nodes := map[string]*cgraph.Node{}
	for i, step := range plan {
		n, err := graph.CreateNode(step.Identifier)
		if err != nil {
			return nil, fmt.Errorf("resolver: creating node %s: %w", step.Identifier, err)
		}
		n.SetLabel(fmt.Sprintf("%d: %s", i+1, step.Identifier))
		nodes[step.Identifier] = n
	}

	for from, tos := range deps {
		fromNode, ok := nodes[from]
		if !ok {
			continue
		}
		for _, to := range tos {
			toNode, ok := nodes[to]
			if !ok {
				continue
			}
			if _, err := graph.CreateEdge(from+"->"+to, fromNode, toNode); err != nil {
				return nil, fmt.Errorf("resolver: creating edge %s->%s: %w", from, to, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := g.Render(context.Background(), graph, graphviz.Format(ext), &buf); err != nil {
		return nil, fmt.Errorf("resolver: rendering graph: %w", err)
	}
	return buf.Bytes(), nil
}
