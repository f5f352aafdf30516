package flow

import "go.uber.org/zap"

// Annotator derives, for every edge in a graph, whether it is risky and what
// warning to attach. Recomputed from scratch on every graph change; no
// incremental state is kept, which is fine at canvas graph sizes.
type Annotator struct {
	rules    Ruleset
	visitCap int
	logger   *zap.Logger
}

// Refined messages for the (source, agent) pair, chosen by whether the
// target already has some path back to a semantic model through other edges.
const (
	warnNoSemanticModel = WarningMarker + " No semantic model in this flow. The agent answers from raw schema only; add a semantic model for better text-to-SQL."
	warnSkipsSemantic   = WarningMarker + " A semantic model feeds this agent on another path, but this edge bypasses it."
)

// NewAnnotator creates an annotator over the given ruleset. visitCap bounds
// the upstream reachability search; 0 means the default.
func NewAnnotator(rules Ruleset, visitCap int, logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{
		rules:    rules,
		visitCap: visitCap,
		logger:   logger.With(zap.String("component", "edge_annotator")),
	}
}

// Annotate returns the graph's edges with RiskWarning populated on every
// risky edge. Non-risky edges pass through unchanged. Pure function of the
// graph snapshot; calling it twice on an unchanged graph yields identical
// results.
func (a *Annotator) Annotate(g *Graph) []Edge {
	edges := g.Edges()
	risky := 0
	for i := range edges {
		edges[i].RiskWarning = ""

		srcCat, ok := g.Category(edges[i].Source)
		if !ok {
			continue
		}
		tgtCat, ok := g.Category(edges[i].Target)
		if !ok {
			continue
		}

		hint, ok := a.rules.Hint(srcCat, tgtCat)
		if !ok || !isRiskyHint(hint) {
			continue
		}

		edges[i].RiskWarning = a.refine(g, srcCat, tgtCat, edges[i].Target, hint)
		risky++
	}
	if risky > 0 {
		a.logger.Debug("annotated risky edges",
			zap.Int("risky", risky), zap.Int("total", len(edges)))
	}
	return edges
}

// refine specializes the generic warning for the (source, agent) pair: when
// the agent already has a semantic model on another path, the warning says
// this edge skips it rather than that none exists. Every other risky pair
// keeps its hint verbatim.
func (a *Annotator) refine(g *Graph, srcCat, tgtCat NodeCategory, targetID, hint string) string {
	if srcCat == CategorySource && tgtCat == CategoryAgent {
		if hasSemanticAncestor(g, targetID, a.visitCap) {
			return warnSkipsSemantic
		}
		return warnNoSemanticModel
	}
	return hint
}
