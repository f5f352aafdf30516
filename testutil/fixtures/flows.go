// =============================================================================
// 🧪 流程定义测试数据工厂
// =============================================================================
// 提供预置的画布流程定义，配置完整、节点 ID 稳定，方便断言
// =============================================================================
package fixtures

import "github.com/snowflowhq/snowflow/flow"

// QueryFlow 返回配置完整的单代理查询流：
// source → semantic → agent → output
// 数据源指向 SALES.PUBLIC.ORDERS，语义模型位于 @SALES.PUBLIC.SEMANTIC_MODELS/revenue.yaml
func QueryFlow() *flow.Definition {
	return &flow.Definition{
		Name:        "Revenue Query Flow",
		Description: "Single agent answering revenue questions over the orders table.",
		Nodes: []flow.Node{
			{
				ID:       "src-1",
				Category: flow.CategorySource,
				Label:    "Orders",
				Config: flow.NodeConfig{
					"database":   "SALES",
					"schema":     "PUBLIC",
					"objectName": "ORDERS",
					"objectType": "table",
				},
			},
			{
				ID:       "sem-1",
				Category: flow.CategorySemanticContext,
				Label:    "Revenue Model",
				Config: flow.NodeConfig{
					"semanticPath": "@SALES.PUBLIC.SEMANTIC_MODELS/revenue.yaml",
				},
			},
			{
				ID:       "agent-1",
				Category: flow.CategoryAgent,
				Label:    "Revenue Agent",
				Config: flow.NodeConfig{
					"name":  "Revenue Agent",
					"model": "llama3.1-70b",
				},
			},
			{
				ID:       "out-1",
				Category: flow.CategoryOutput,
				Label:    "Output",
				Config:   flow.NodeConfig{"channel": "snowflake_intelligence"},
			},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "src-1", Target: "sem-1"},
			{ID: "e2", Source: "sem-1", Target: "agent-1"},
			{ID: "e3", Source: "agent-1", Target: "out-1"},
		},
	}
}

// BareAgentFlow 返回跳过语义模型的流程：source → agent → output。
// 规则表允许这种连接，但注解器会把 source → agent 标记为风险边。
func BareAgentFlow() *flow.Definition {
	def := QueryFlow()
	def.Name = "Bare Agent Flow"
	def.Nodes = []flow.Node{def.Nodes[0], def.Nodes[2], def.Nodes[3]}
	def.Edges = []flow.Edge{
		{ID: "e1", Source: "src-1", Target: "agent-1"},
		{ID: "e2", Source: "agent-1", Target: "out-1"},
	}
	return def
}

// MigrationFlow 返回 Power BI 迁移子流程：
// file-input → schema-extractor → { dax-translator → } schema-transformer → file-output
func MigrationFlow() *flow.Definition {
	return &flow.Definition{
		Name:        "Model Migration Flow",
		Description: "Translates a Power BI model into a Snowflake semantic model.",
		Nodes: []flow.Node{
			{ID: "in-1", Category: flow.CategoryFileInput, Label: "Model File", Config: flow.NodeConfig{"fileName": "sales.pbix"}},
			{ID: "ex-1", Category: flow.CategorySchemaExtractor, Label: "Schema Extractor"},
			{ID: "dax-1", Category: flow.CategoryDaxTranslator, Label: "DAX Translator", Config: flow.NodeConfig{"sourceFormat": "powerbi"}},
			{ID: "tr-1", Category: flow.CategorySchemaTransformer, Label: "Schema Transformer"},
			{ID: "out-1", Category: flow.CategoryFileOutput, Label: "Semantic Model File"},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "in-1", Target: "ex-1"},
			{ID: "e2", Source: "ex-1", Target: "dax-1"},
			{ID: "e3", Source: "ex-1", Target: "tr-1"},
			{ID: "e4", Source: "dax-1", Target: "tr-1"},
			{ID: "e5", Source: "tr-1", Target: "out-1"},
		},
	}
}

// UnwiredFlow 返回有节点但无连线的流程，预检应报 NO_EDGES
func UnwiredFlow() *flow.Definition {
	def := QueryFlow()
	def.Name = "Unwired Flow"
	def.Edges = nil
	return def
}

// RejectedFlow 返回包含非法连线（output → agent）的流程，
// 规则表校验应拒绝
func RejectedFlow() *flow.Definition {
	def := QueryFlow()
	def.Name = "Rejected Flow"
	def.Edges = append(def.Edges, flow.Edge{ID: "e-bad", Source: "out-1", Target: "agent-1"})
	return def
}
