package flow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefinition() *Definition {
	return &Definition{
		Name:        "retail-insights",
		Description: "Retail sales Q&A",
		Nodes: []Node{
			{ID: "src", Category: CategorySource, Label: "Sales", Config: NodeConfig{"database": "AICOLLEGE", "schema": "RETAIL", "objectName": "VW_SALES"}},
			{ID: "sem", Category: CategorySemanticContext, Config: NodeConfig{"semanticPath": "@AICOLLEGE.RETAIL.MODELS/retail.yaml"}},
			{ID: "agent", Category: CategoryAgent, Config: NodeConfig{"model": "llama3.1-70b"}},
			{ID: "out", Category: CategoryOutput},
		},
		Edges: []Edge{
			{ID: "e1", Source: "src", Target: "sem"},
			{ID: "e2", Source: "sem", Target: "agent"},
			{ID: "e3", Source: "agent", Target: "out"},
		},
	}
}

func TestDefinition_JSONRoundTrip(t *testing.T) {
	def := sampleDefinition()

	data, err := def.Export()
	require.NoError(t, err)

	loaded, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, def.Name, loaded.Name)
	assert.Equal(t, def.Nodes, loaded.Nodes)
	assert.Equal(t, def.Edges, loaded.Edges)
}

func TestDefinition_YAMLRoundTrip(t *testing.T) {
	def := sampleDefinition()

	yamlStr, err := def.ToYAML()
	require.NoError(t, err)

	loaded, err := FromYAML(yamlStr)
	require.NoError(t, err)
	assert.Equal(t, def.Name, loaded.Name)
	assert.Len(t, loaded.Nodes, 4)
	assert.Len(t, loaded.Edges, 3)
}

func TestDefinition_FileRoundTrip(t *testing.T) {
	def := sampleDefinition()
	path := filepath.Join(t.TempDir(), "flow.json")

	require.NoError(t, def.SaveToFile(path))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, def.Name, loaded.Name)
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr string
	}{
		{"valid", func(d *Definition) {}, ""},
		{"missing name", func(d *Definition) { d.Name = "" }, "name is required"},
		{"no nodes", func(d *Definition) { d.Nodes = nil }, "at least one node"},
		{"duplicate node id", func(d *Definition) {
			d.Nodes = append(d.Nodes, Node{ID: "src", Category: CategorySource})
		}, "duplicate node id"},
		{"unknown category", func(d *Definition) {
			d.Nodes[0].Category = "wormhole"
		}, "unknown category"},
		{"dangling edge source", func(d *Definition) {
			d.Edges = append(d.Edges, Edge{ID: "bad", Source: "ghost", Target: "out"})
		}, "unknown source"},
		{"dangling edge target", func(d *Definition) {
			d.Edges = append(d.Edges, Edge{ID: "bad", Source: "src", Target: "ghost"})
		}, "unknown target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := sampleDefinition()
			tt.mutate(def)
			err := def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDefinition_GraphMaterialization(t *testing.T) {
	g := sampleDefinition().Graph()
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())

	cat, ok := g.Category("sem")
	require.True(t, ok)
	assert.Equal(t, CategorySemanticContext, cat)
}

func TestImport_RejectsMalformedJSON(t *testing.T) {
	_, err := Import([]byte(`{"name": "x", "nodes": [`))
	assert.Error(t, err)
}
