package flow

// defaultVisitCap bounds the upstream search. Canvas graphs are tens of
// nodes; hitting the cap means something pathological, and a conservative
// false is acceptable there.
const defaultVisitCap = 100

// hasSemanticAncestor reports whether any ancestor of the target node,
// reached transitively over incoming edges, is a semantic-context node.
//
// Breadth-first over incoming edges with a visited set, so cyclic graphs
// terminate. visitCap <= 0 uses defaultVisitCap.
func hasSemanticAncestor(g *Graph, targetID string, visitCap int) bool {
	if visitCap <= 0 {
		visitCap = defaultVisitCap
	}

	visited := map[string]bool{targetID: true}
	queue := []string{targetID}
	visitedCount := 1

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range g.Incoming(current) {
			if visited[e.Source] {
				continue
			}
			visited[e.Source] = true
			visitedCount++
			if visitedCount > visitCap {
				return false
			}

			if cat, ok := g.Category(e.Source); ok && cat == CategorySemanticContext {
				return true
			}
			queue = append(queue, e.Source)
		}
	}
	return false
}

// HasSemanticAncestor is the exported form used by preflight and the API
// layer; the annotator calls the internal one with its configured cap.
func HasSemanticAncestor(g *Graph, targetID string) bool {
	return hasSemanticAncestor(g, targetID, defaultVisitCap)
}
