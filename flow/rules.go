package flow

import "strings"

// WarningMarker prefixes every hint that denotes a risky connection. The
// prefix is the only risk classifier in the system; isRiskyHint is the one
// place the convention is checked.
const WarningMarker = "⚠️"

// isRiskyHint reports whether a hint message denotes a risky connection.
func isRiskyHint(hint string) bool {
	return strings.HasPrefix(hint, WarningMarker)
}

// CategoryPair keys the hint table by (source, target) categories.
type CategoryPair struct {
	Source NodeCategory
	Target NodeCategory
}

// Ruleset bundles the adjacency rule table, the hint table, and the
// per-category guidance messages. It is pure data: passed into the validator
// and annotator at construction time so tests can substitute alternate rule
// sets without touching global state.
type Ruleset struct {
	// Allowed maps a source category to its permitted target categories.
	// Categories absent as a key are terminal (no outgoing edges).
	Allowed map[NodeCategory][]NodeCategory

	// Hints maps a permitted (source, target) pair to a human-readable
	// explanation. Hints prefixed with WarningMarker classify the edge as
	// risky; absence of a hint is silence, not an error.
	Hints map[CategoryPair]string

	// Guidance maps a source category to a "what this connects to" message
	// shown on rejection. Pairs without guidance fall back to a generic
	// message.
	Guidance map[NodeCategory]string
}

// Permits reports whether the rule table allows source → target.
func (r Ruleset) Permits(source, target NodeCategory) bool {
	for _, t := range r.Allowed[source] {
		if t == target {
			return true
		}
	}
	return false
}

// Hint returns the hint for the pair, if any.
func (r Ruleset) Hint(source, target NodeCategory) (string, bool) {
	h, ok := r.Hints[CategoryPair{source, target}]
	return h, ok
}

// DefaultRuleset returns the canvas's shipped connection rules.
func DefaultRuleset() Ruleset {
	return Ruleset{
		Allowed:  defaultAllowed(),
		Hints:    defaultHints(),
		Guidance: defaultGuidance(),
	}
}

func defaultAllowed() map[NodeCategory][]NodeCategory {
	return map[NodeCategory][]NodeCategory{
		CategorySource: {
			CategorySemanticContext, CategoryAgent, CategoryCortexFunction,
			CategoryRouter, CategorySupervisor, CategoryExternalAgent,
		},
		CategorySemanticContext: {
			CategoryAgent, CategorySupervisor,
		},
		CategoryAgent: {
			CategoryExternalAgent, CategoryOutput, CategoryCortexFunction,
			CategoryCondition, CategoryAgent, CategoryRouter, CategorySupervisor,
		},
		CategoryCortexFunction: {
			CategoryAgent, CategoryOutput, CategoryCortexFunction, CategoryCondition,
		},
		CategoryCondition: {
			CategoryAgent, CategoryOutput, CategoryCortexFunction,
			CategoryExternalAgent, CategoryRouter,
		},
		CategoryExternalAgent: {
			CategoryAgent, CategoryOutput, CategoryRouter,
		},
		CategoryRouter: {
			CategoryAgent, CategorySupervisor, CategoryOutput, CategoryExternalAgent,
		},
		CategorySupervisor: {
			CategoryAgent, CategoryOutput,
		},
		// output is terminal: no entry
		CategoryFileInput: {
			CategorySchemaExtractor,
		},
		CategorySchemaExtractor: {
			CategorySchemaTransformer, CategoryDaxTranslator,
		},
		CategorySchemaTransformer: {
			CategoryFileOutput,
		},
		CategoryDaxTranslator: {
			CategorySchemaTransformer, CategoryFileOutput,
		},
		// file-output is terminal: no entry
	}
}

func defaultHints() map[CategoryPair]string {
	return map[CategoryPair]string{
		// Data source pairings
		{CategorySource, CategorySemanticContext}: "Data source feeds the semantic model. Downstream agents get column meanings and business context.",
		{CategorySource, CategoryAgent}:           WarningMarker + " Connecting data directly to an agent skips the semantic model. Text-to-SQL quality may suffer.",
		{CategorySource, CategoryCortexFunction}:  "Data source feeds the Cortex function. Rows are passed as function input.",
		{CategorySource, CategoryRouter}:          WarningMarker + " Routing raw data without a semantic model. Agents behind this router answer without business context.",
		{CategorySource, CategorySupervisor}:      WarningMarker + " A supervisor over raw data has no semantic grounding for its agents.",
		{CategorySource, CategoryExternalAgent}:   "Data source feeds the external agent as request payload.",

		// Semantic model pairings
		{CategorySemanticContext, CategoryAgent}:      "Semantic model grounds the agent. Best-practice setup for natural-language queries.",
		{CategorySemanticContext, CategorySupervisor}: "Semantic model is shared with every agent the supervisor delegates to.",

		// Agent pairings
		{CategoryAgent, CategoryExternalAgent}:  "Agent response is forwarded to the external agent.",
		{CategoryAgent, CategoryOutput}:         "Agent answer is delivered to the output channel.",
		{CategoryAgent, CategoryCortexFunction}: "Agent response is post-processed by the Cortex function.",
		{CategoryAgent, CategoryCondition}:      "Agent response is evaluated by the condition before branching.",
		{CategoryAgent, CategoryAgent}:          "Agent-to-agent chaining. The downstream agent sees the upstream answer as context.",
		{CategoryAgent, CategoryRouter}:         "Agent response is re-routed by intent.",
		{CategoryAgent, CategorySupervisor}:     "Agent reports to the supervisor for delegation or synthesis.",

		// Cortex function pairings
		{CategoryCortexFunction, CategoryAgent}:          "Function result becomes agent context.",
		{CategoryCortexFunction, CategoryOutput}:         "Function result is delivered to the output channel.",
		{CategoryCortexFunction, CategoryCortexFunction}: "Function results are chained.",
		{CategoryCortexFunction, CategoryCondition}:      "Function result is evaluated by the condition before branching.",

		// Condition pairings
		{CategoryCondition, CategoryAgent}:          "This branch hands off to the agent.",
		{CategoryCondition, CategoryOutput}:         "This branch delivers directly to the output channel.",
		{CategoryCondition, CategoryCortexFunction}: "This branch invokes the Cortex function.",
		{CategoryCondition, CategoryExternalAgent}:  "This branch calls the external agent.",
		{CategoryCondition, CategoryRouter}:         "This branch re-routes by intent.",

		// External agent pairings
		{CategoryExternalAgent, CategoryAgent}:  "External response becomes agent context.",
		{CategoryExternalAgent, CategoryOutput}: "External response is delivered to the output channel.",
		{CategoryExternalAgent, CategoryRouter}: "External response is routed by intent.",

		// Router pairings
		{CategoryRouter, CategoryAgent}:         "Router dispatches matching questions to this agent.",
		{CategoryRouter, CategorySupervisor}:    "Router escalates matching questions to the supervisor.",
		{CategoryRouter, CategoryOutput}:        "Unmatched questions fall through to the output channel.",
		{CategoryRouter, CategoryExternalAgent}: "Router dispatches matching questions to the external agent.",

		// Supervisor pairings
		{CategorySupervisor, CategoryAgent}:  "Supervisor delegates sub-questions to this agent.",
		{CategorySupervisor, CategoryOutput}: "Supervisor's synthesized answer is delivered to the output channel.",

		// Migration sub-flow pairings
		{CategoryFileInput, CategorySchemaExtractor}:         "Uploaded file is parsed for schema extraction.",
		{CategorySchemaExtractor, CategorySchemaTransformer}: "Extracted schema is mapped onto the Snowflake target.",
		{CategorySchemaExtractor, CategoryDaxTranslator}:     "Extracted measures are handed to the DAX translator.",
		{CategorySchemaTransformer, CategoryFileOutput}:      "Transformed schema artifacts are written out.",
		{CategoryDaxTranslator, CategorySchemaTransformer}:   "Translated SQL expressions rejoin the schema mapping.",
		{CategoryDaxTranslator, CategoryFileOutput}:          "Translated SQL expressions are written out.",
	}
}

func defaultGuidance() map[NodeCategory]string {
	return map[NodeCategory]string{
		CategorySource:            "Data sources connect to semantic models, agents, Cortex functions, routers, supervisors, or external agents.",
		CategorySemanticContext:   "Semantic models connect to agents or supervisors.",
		CategoryAgent:             "Agents connect to outputs, other agents, Cortex functions, conditions, routers, supervisors, or external agents.",
		CategoryCortexFunction:    "Cortex functions connect to agents, outputs, conditions, or other Cortex functions.",
		CategoryCondition:         "Condition branches connect to agents, outputs, Cortex functions, external agents, or routers.",
		CategoryExternalAgent:     "External agents connect to agents, outputs, or routers.",
		CategoryRouter:            "Routers connect to agents, supervisors, outputs, or external agents.",
		CategorySupervisor:        "Supervisors connect to agents or outputs.",
		CategoryOutput:            "Output is a terminal node. Nothing connects after it.",
		CategoryFileInput:         "File inputs connect to a schema extractor.",
		CategorySchemaExtractor:   "Schema extractors connect to a schema transformer or the DAX translator.",
		CategorySchemaTransformer: "Schema transformers connect to a file output.",
		CategoryFileOutput:        "File output is a terminal node. Nothing connects after it.",
		CategoryDaxTranslator:     "The DAX translator connects to a schema transformer or a file output.",
	}
}
