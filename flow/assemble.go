package flow

import (
	"fmt"

	"github.com/google/uuid"
)

// FlowShape selects the edge arrangement Assemble produces.
type FlowShape string

const (
	// ShapeSingle wires source → semantic → agent → output
	ShapeSingle FlowShape = "single"
	// ShapeSupervisor wires agents into a supervisor before the output
	ShapeSupervisor FlowShape = "supervisor"
	// ShapeRouter puts a router in front of the agents
	ShapeRouter FlowShape = "router"
)

// NodeTemplate returns a node of the given category with its default config,
// ready to drop on the canvas.
func NodeTemplate(cat NodeCategory) (Node, error) {
	n := Node{
		ID:       "node-" + uuid.NewString()[:8],
		Category: cat,
	}
	switch cat {
	case CategorySource:
		n.Label = "Data Source"
		n.Config = NodeConfig{"database": "", "schema": "", "objectName": "", "objectType": "view"}
	case CategorySemanticContext:
		n.Label = "Semantic Model"
		n.Config = NodeConfig{"database": "", "schema": "", "stage": "SEMANTIC_MODELS", "semanticPath": ""}
	case CategoryAgent:
		n.Label = "Cortex Agent"
		n.Config = NodeConfig{"name": "Agent", "model": "llama3.1-70b", "instructions": "", "temperature": 0.7, "maxTokens": 4096}
	case CategoryCortexFunction:
		n.Label = "Cortex Function"
		n.Config = NodeConfig{"function": "complete"}
	case CategoryCondition:
		n.Label = "Condition"
		n.Config = NodeConfig{"expression": ""}
	case CategoryExternalAgent:
		n.Label = "External API"
		n.Config = NodeConfig{"agentType": "rest", "endpoint": "", "method": "POST"}
	case CategoryRouter:
		n.Label = "Intent Router"
		n.Config = NodeConfig{"routes": []any{map[string]any{"intent": "default", "description": "Default route"}}}
	case CategorySupervisor:
		n.Label = "Supervisor"
		n.Config = NodeConfig{"model": "llama3.1-70b", "systemPrompt": "", "maxDelegations": 5}
	case CategoryOutput:
		n.Label = "Output"
		n.Config = NodeConfig{"channel": "snowflake_intelligence"}
	case CategoryFileInput:
		n.Label = "File Input"
		n.Config = NodeConfig{"fileName": ""}
	case CategorySchemaExtractor:
		n.Label = "Schema Extractor"
	case CategorySchemaTransformer:
		n.Label = "Schema Transformer"
	case CategoryFileOutput:
		n.Label = "File Output"
	case CategoryDaxTranslator:
		n.Label = "DAX Translator"
		n.Config = NodeConfig{"sourceFormat": "powerbi"}
	default:
		return Node{}, fmt.Errorf("unknown node category: %s", cat)
	}
	return n, nil
}

// Assemble wires edges between the given nodes according to the flow shape,
// mirroring how the canvas's quick-setup lays out a flow. Router fan-out
// edges carry sourceHandle "route-N". Node positions are left untouched;
// layout is the canvas's concern.
func Assemble(nodes []Node, shape FlowShape) []Edge {
	var (
		sources     []Node
		semantics   []Node
		agents      []Node
		supervisors []Node
		routers     []Node
		outputs     []Node
	)
	for _, n := range nodes {
		switch n.Category {
		case CategorySource:
			sources = append(sources, n)
		case CategorySemanticContext:
			semantics = append(semantics, n)
		case CategoryAgent:
			agents = append(agents, n)
		case CategorySupervisor:
			supervisors = append(supervisors, n)
		case CategoryRouter:
			routers = append(routers, n)
		case CategoryOutput:
			outputs = append(outputs, n)
		}
	}

	var edges []Edge
	link := func(from, to Node, handle string) {
		edges = append(edges, Edge{
			ID:           fmt.Sprintf("e-%s-%s", from.ID, to.ID),
			Source:       from.ID,
			Target:       to.ID,
			SourceHandle: handle,
		})
	}

	// Data → Semantic (when both exist)
	for _, src := range sources {
		for _, sem := range semantics {
			link(src, sem, "")
		}
	}

	// Semantic → Agents, or Data → Agents when no semantic model
	agentFeed := semantics
	if len(agentFeed) == 0 {
		agentFeed = sources
	}

	switch {
	case shape == ShapeSupervisor && len(supervisors) > 0:
		for _, feed := range agentFeed {
			for _, a := range agents {
				link(feed, a, "")
			}
		}
		sup := supervisors[0]
		for _, a := range agents {
			link(a, sup, "")
		}
		for _, out := range outputs {
			link(sup, out, "")
		}

	case shape == ShapeRouter && len(routers) > 0:
		// The router dispatches the user's intent; semantic models ground
		// the agents directly rather than passing through the router.
		router := routers[0]
		for _, src := range sources {
			link(src, router, "")
		}
		for i, a := range agents {
			link(router, a, fmt.Sprintf("route-%d", i))
		}
		for _, sem := range semantics {
			for _, a := range agents {
				link(sem, a, "")
			}
		}
		for _, a := range agents {
			for _, out := range outputs {
				link(a, out, "")
			}
		}

	default:
		for _, feed := range agentFeed {
			for _, a := range agents {
				link(feed, a, "")
			}
		}
		for _, a := range agents {
			for _, out := range outputs {
				link(a, out, "")
			}
		}
	}

	return edges
}
