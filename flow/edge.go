package flow

// Edge represents a connection between two nodes.
type Edge struct {
	// ID is the unique edge identifier
	ID string `json:"id"`
	// Source and Target are node IDs; both must resolve for the edge to be
	// well-formed
	Source string `json:"source"`
	Target string `json:"target"`
	// SourceHandle names the output port the edge leaves from, for
	// categories exposing more than one (condition, router). It never
	// affects category-based validation.
	SourceHandle string `json:"sourceHandle,omitempty"`
	// RiskWarning is derived by the annotator and never persisted. Present
	// iff the category pair maps to a risky hint.
	RiskWarning string `json:"riskWarning,omitempty"`
}

// Risky reports whether the annotator flagged this edge.
func (e Edge) Risky() bool {
	return e.RiskWarning != ""
}
