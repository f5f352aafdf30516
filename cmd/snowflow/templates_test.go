package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/snowflowhq/snowflow/flow"
)

func TestBuiltinTemplates(t *testing.T) {
	templates := builtinTemplates()
	require.Len(t, templates, 3)

	categories := make(map[string]bool)
	for _, tpl := range templates {
		assert.NotEmpty(t, tpl.ID)
		assert.NotEmpty(t, tpl.Name)
		assert.NotEmpty(t, tpl.Definition)
		categories[tpl.Category] = true
	}
	assert.True(t, categories["query"])
	assert.True(t, categories["migration"])
}

// Every shipped template must parse, be structurally sound, and pass the
// connection rule table. A template that the canvas itself would reject is
// a packaging bug.
func TestBuiltinTemplates_PassRuleTable(t *testing.T) {
	validator := flow.NewValidator(flow.DefaultRuleset(), zaptest.NewLogger(t))

	for _, tpl := range builtinTemplates() {
		tpl := tpl
		t.Run(tpl.ID, func(t *testing.T) {
			def, err := flow.Import(tpl.Definition)
			require.NoError(t, err)
			require.NoError(t, def.Validate())
			require.NoError(t, validator.CheckGraph(def.Graph()))
		})
	}
}
