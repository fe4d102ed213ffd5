package compiler

import "github.com/roach88/strobe/internal/ir"

// findPureCycle detects same-frame dependency cycles in a program's node
// graph and returns one offending path, or nil when the graph is clean.
//
// The dependency graph contains every edge the dispatcher follows
// synchronously within one frame. Delay operator input edges are excluded:
// the runtime resolves them against last frame's values after the frame's
// graph has settled, so a loop routed through a delay is not a cycle. A
// zero-frame delay is a passthrough and stays in the graph.
func findPureCycle(p *ir.Program) []ir.NodeIndex {
	const (
		white = iota // unvisited
		grey         // on the current DFS path
		black        // fully explored
	)
	color := make([]uint8, len(p.Nodes))

	var path []ir.NodeIndex
	var cycle []ir.NodeIndex

	var visit func(n ir.NodeIndex) bool
	visit = func(n ir.NodeIndex) bool {
		switch color[n] {
		case black:
			return false
		case grey:
			// Trim the path to the loop itself.
			for i, m := range path {
				if m == n {
					cycle = append(append(cycle, path[i:]...), n)
					return true
				}
			}
			return true
		}

		color[n] = grey
		path = append(path, n)
		for _, dep := range frameEdges(p, n) {
			if visit(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for i := range p.Nodes {
		if color[i] == white && visit(ir.NodeIndex(i)) {
			return cycle
		}
	}
	return nil
}

// frameEdges lists the nodes that node n evaluates synchronously within
// its own frame.
func frameEdges(p *ir.Program, n ir.NodeIndex) []ir.NodeIndex {
	node := &p.Nodes[n]

	switch node.Kind {
	case ir.KindUnaryMap, ir.KindTransformPipeline:
		return []ir.NodeIndex{node.A}
	case ir.KindBinaryZip:
		return []ir.NodeIndex{node.A, node.B}
	case ir.KindSelect:
		// Short-circuit picks one branch per frame, but which one is a
		// runtime property; both count as dependencies here.
		return []ir.NodeIndex{node.A, node.B, node.C}
	case ir.KindBusAggregate:
		return p.Buses[node.Bus].Contributors
	case ir.KindStatefulOperator:
		spec := &p.Operators[node.Operator]
		var deps []ir.NodeIndex
		switch spec.Op {
		case ir.OpDelayFrames:
			if spec.FrameCount == 0 && spec.Input != ir.NoNode {
				deps = append(deps, spec.Input)
			}
		case ir.OpDelayMS:
			// The effective offset depends on runtime delta time and may
			// round to zero, so a delay-ms edge is only deferred when its
			// configured delay is positive.
			if spec.DelayMS <= 0 && spec.Input != ir.NoNode {
				deps = append(deps, spec.Input)
			}
		default:
			if spec.Input != ir.NoNode {
				deps = append(deps, spec.Input)
			}
		}
		if spec.Trigger != ir.NoNode {
			deps = append(deps, spec.Trigger)
		}
		return deps
	default:
		return nil
	}
}
