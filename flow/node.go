package flow

// NodeCategory identifies a node's role on the canvas, independent of its
// presentation.
type NodeCategory string

const (
	// CategorySource is a Snowflake table or view supplying data
	CategorySource NodeCategory = "source"
	// CategorySemanticContext supplies business-meaning metadata consumed
	// by downstream agents
	CategorySemanticContext NodeCategory = "semantic-context"
	// CategoryAgent is a Cortex agent answering natural-language questions
	CategoryAgent NodeCategory = "agent"
	// CategoryCortexFunction invokes a single Cortex function (complete,
	// translate, sentiment, ...)
	CategoryCortexFunction NodeCategory = "cortex-function"
	// CategoryCondition performs conditional branching
	CategoryCondition NodeCategory = "condition"
	// CategoryExternalAgent calls an external API agent
	CategoryExternalAgent NodeCategory = "external-agent"
	// CategoryRouter dispatches to one of several agents by intent
	CategoryRouter NodeCategory = "router"
	// CategorySupervisor orchestrates multiple agents
	CategorySupervisor NodeCategory = "supervisor"
	// CategoryOutput is a terminal delivery channel
	CategoryOutput NodeCategory = "output"
	// CategoryFileInput reads an uploaded file (migration sub-flow)
	CategoryFileInput NodeCategory = "file-input"
	// CategorySchemaExtractor extracts a schema from a file (migration sub-flow)
	CategorySchemaExtractor NodeCategory = "schema-extractor"
	// CategorySchemaTransformer maps an extracted schema onto the target
	// platform (migration sub-flow)
	CategorySchemaTransformer NodeCategory = "schema-transformer"
	// CategoryFileOutput writes migration artifacts (migration sub-flow)
	CategoryFileOutput NodeCategory = "file-output"
	// CategoryDaxTranslator converts DAX expressions to Snowflake SQL
	// (migration sub-flow)
	CategoryDaxTranslator NodeCategory = "dax-translator"
)

// Categories lists every known node category. The set is closed; the rule
// tables are keyed by it and a category outside this list never validates.
func Categories() []NodeCategory {
	return []NodeCategory{
		CategorySource,
		CategorySemanticContext,
		CategoryAgent,
		CategoryCortexFunction,
		CategoryCondition,
		CategoryExternalAgent,
		CategoryRouter,
		CategorySupervisor,
		CategoryOutput,
		CategoryFileInput,
		CategorySchemaExtractor,
		CategorySchemaTransformer,
		CategoryFileOutput,
		CategoryDaxTranslator,
	}
}

// Valid reports whether c is a member of the closed category set.
func (c NodeCategory) Valid() bool {
	switch c {
	case CategorySource, CategorySemanticContext, CategoryAgent,
		CategoryCortexFunction, CategoryCondition, CategoryExternalAgent,
		CategoryRouter, CategorySupervisor, CategoryOutput,
		CategoryFileInput, CategorySchemaExtractor,
		CategorySchemaTransformer, CategoryFileOutput, CategoryDaxTranslator:
		return true
	}
	return false
}

// Position is a node's coordinate on the canvas. Presentation only; it never
// influences validation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeConfig carries category-specific fields. Free-form by design: the
// canvas edits it, the execution backend interprets it. The validation
// subsystem only reads the handful of keys preflight checks care about.
type NodeConfig map[string]any

// String returns the config value under key as a string, or "" when absent
// or of another type.
func (c NodeConfig) String(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// Node represents a single node on the workflow canvas.
type Node struct {
	// ID is the unique identifier, stable for the node's lifetime
	ID string `json:"id"`
	// Category is the node's role; immutable once created
	Category NodeCategory `json:"category"`
	// Label is the display name
	Label string `json:"label,omitempty"`
	// Position is the canvas coordinate
	Position Position `json:"position"`
	// Config holds category-specific settings
	Config NodeConfig `json:"config,omitempty"`
}
