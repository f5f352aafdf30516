package main

import (
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/store"
)

// =============================================================================
// 📋 预置流程模板
// =============================================================================

// builtinTemplates 返回随服务预置的流程模板，启动时幂等写入模板表。
// 节点和连线由 flow 包的快速装配逻辑生成，保证模板本身通过规则表校验。
func builtinTemplates() []store.Template {
	var templates []store.Template

	if tpl, ok := quickQueryTemplate(); ok {
		templates = append(templates, tpl)
	}
	if tpl, ok := routerTemplate(); ok {
		templates = append(templates, tpl)
	}
	if tpl, ok := migrationTemplate(); ok {
		templates = append(templates, tpl)
	}

	return templates
}

// quickQueryTemplate 单代理查询流：source → semantic → agent → output
func quickQueryTemplate() (store.Template, bool) {
	nodes, ok := nodesOf(
		flow.CategorySource,
		flow.CategorySemanticContext,
		flow.CategoryAgent,
		flow.CategoryOutput,
	)
	if !ok {
		return store.Template{}, false
	}

	def := &flow.Definition{
		Name:        "Quick Query Flow",
		Description: "Single Cortex agent grounded by a semantic model, answering questions over one data source.",
		Nodes:       nodes,
		Edges:       flow.Assemble(nodes, flow.ShapeSingle),
	}
	return exportTemplate("tpl-quick-query", "query", string(flow.ShapeSingle), def)
}

// routerTemplate 意图路由流：router 在两个专职 agent 前分派用户意图
func routerTemplate() (store.Template, bool) {
	nodes, ok := nodesOf(
		flow.CategorySource,
		flow.CategorySemanticContext,
		flow.CategoryRouter,
		flow.CategoryAgent,
		flow.CategoryAgent,
		flow.CategoryOutput,
	)
	if !ok {
		return store.Template{}, false
	}

	def := &flow.Definition{
		Name:        "Intent Router Flow",
		Description: "An intent router dispatches each question to one of two specialized agents.",
		Nodes:       nodes,
		Edges:       flow.Assemble(nodes, flow.ShapeRouter),
	}
	return exportTemplate("tpl-intent-router", "query", string(flow.ShapeRouter), def)
}

// migrationTemplate Power BI 迁移子流程：
// file-input → schema-extractor → { schema-transformer, dax-translator } → file-output
func migrationTemplate() (store.Template, bool) {
	nodes, ok := nodesOf(
		flow.CategoryFileInput,
		flow.CategorySchemaExtractor,
		flow.CategorySchemaTransformer,
		flow.CategoryDaxTranslator,
		flow.CategoryFileOutput,
	)
	if !ok {
		return store.Template{}, false
	}
	input, extractor, transformer, translator, output := nodes[0], nodes[1], nodes[2], nodes[3], nodes[4]

	def := &flow.Definition{
		Name:        "Power BI Migration",
		Description: "Extracts a Power BI model schema, translates DAX measures, and emits a Snowflake semantic model file.",
		Nodes:       nodes,
		Edges: []flow.Edge{
			{ID: "e-input-extractor", Source: input.ID, Target: extractor.ID},
			{ID: "e-extractor-transformer", Source: extractor.ID, Target: transformer.ID},
			{ID: "e-extractor-translator", Source: extractor.ID, Target: translator.ID},
			{ID: "e-translator-transformer", Source: translator.ID, Target: transformer.ID},
			{ID: "e-transformer-output", Source: transformer.ID, Target: output.ID},
		},
	}
	return exportTemplate("tpl-powerbi-migration", "migration", "pipeline", def)
}

// nodesOf 按类别实例化一组默认节点
func nodesOf(categories ...flow.NodeCategory) ([]flow.Node, bool) {
	nodes := make([]flow.Node, 0, len(categories))
	for _, cat := range categories {
		n, err := flow.NodeTemplate(cat)
		if err != nil {
			return nil, false
		}
		nodes = append(nodes, n)
	}
	return nodes, true
}

// exportTemplate 序列化定义并装配成模板记录
func exportTemplate(id, category, shape string, def *flow.Definition) (store.Template, bool) {
	payload, err := def.Export()
	if err != nil {
		return store.Template{}, false
	}
	return store.Template{
		ID:          id,
		Name:        def.Name,
		Description: def.Description,
		Category:    category,
		Shape:       shape,
		Definition:  payload,
	}, true
}
