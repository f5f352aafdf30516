package flow

import (
	"fmt"

	"go.uber.org/zap"
)

// Decision is the outcome of a connection attempt. All outcomes are values;
// the validator never panics and never returns an error type, so it is safe
// to call inline from canvas event handling.
type Decision struct {
	// Accepted is true when the rule table permits the category pair
	Accepted bool `json:"accepted"`
	// Message is the user feedback: a hint on accept, guidance on reject.
	// Empty on malformed input (a caller bug, not a rule violation).
	Message string `json:"message,omitempty"`
	// Risky is true when the surfaced hint carries the warning marker
	Risky bool `json:"risky,omitempty"`
}

// Validator decides which connections may be made, consulting an injected
// Ruleset. It is a pure function of (graph, candidate): no mutation, no I/O,
// safe to call once per drag-release gesture.
type Validator struct {
	rules  Ruleset
	logger *zap.Logger
}

// NewValidator creates a validator over the given ruleset.
func NewValidator(rules Ruleset, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		rules:  rules,
		logger: logger.With(zap.String("component", "flow_validator")),
	}
}

// Rules returns the ruleset the validator was constructed with.
func (v *Validator) Rules() Ruleset {
	return v.rules
}

// ValidateConnection accepts or rejects a candidate edge.
//
// Endpoints that do not resolve to graph nodes reject silently: that is a
// caller bug, not a user-facing rule violation. A disallowed category pair
// rejects with guidance. An allowed pair accepts, surfacing the hint table
// entry (risky or informational) when one exists.
func (v *Validator) ValidateConnection(g *Graph, candidate Edge) Decision {
	srcCat, ok := g.Category(candidate.Source)
	if !ok {
		v.logger.Debug("candidate edge references missing source",
			zap.String("source", candidate.Source))
		return Decision{}
	}
	tgtCat, ok := g.Category(candidate.Target)
	if !ok {
		v.logger.Debug("candidate edge references missing target",
			zap.String("target", candidate.Target))
		return Decision{}
	}

	if !v.rules.Permits(srcCat, tgtCat) {
		return Decision{Accepted: false, Message: v.rejectionMessage(srcCat, tgtCat)}
	}

	decision := Decision{Accepted: true}
	if hint, ok := v.rules.Hint(srcCat, tgtCat); ok {
		decision.Message = hint
		decision.Risky = isRiskyHint(hint)
	}
	return decision
}

// CheckGraph verifies that every edge in the graph conforms to the rule
// table. It backs the pre-flight guarantee: a graph failing this check is
// never handed to the execution backend.
func (v *Validator) CheckGraph(g *Graph) error {
	for _, e := range g.Edges() {
		srcCat, ok := g.Category(e.Source)
		if !ok {
			return fmt.Errorf("edge %s references missing source node %s", e.ID, e.Source)
		}
		tgtCat, ok := g.Category(e.Target)
		if !ok {
			return fmt.Errorf("edge %s references missing target node %s", e.ID, e.Target)
		}
		if !v.rules.Permits(srcCat, tgtCat) {
			return fmt.Errorf("edge %s connects %s to %s, which the rule table does not permit",
				e.ID, srcCat, tgtCat)
		}
	}
	return nil
}

func (v *Validator) rejectionMessage(source, target NodeCategory) string {
	if guidance, ok := v.rules.Guidance[source]; ok {
		return guidance
	}
	return fmt.Sprintf("Cannot connect %s to %s.", source, target)
}
