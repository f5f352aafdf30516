package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/snowflowhq/snowflow/api"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/testutil/fixtures"
	"github.com/snowflowhq/snowflow/testutil/mocks"
)

// =============================================================================
// 🧪 目录探测支持下的端到端校验测试
// =============================================================================

func probedValidateHandler(t *testing.T, prober *mocks.Prober) *ValidateHandler {
	t.Helper()
	rules := flow.DefaultRuleset()
	return NewValidateHandler(
		flow.NewValidator(rules, nil),
		flow.NewAnnotator(rules, 100, nil),
		flow.NewPreflight(prober, flow.DefaultPreflightConfig(), nil),
		nil, nil,
		zaptest.NewLogger(t),
	)
}

func TestHandlePreflight_HealthyCatalog(t *testing.T) {
	prober := mocks.NewProber().
		WithObject("SALES.PUBLIC.ORDERS", flow.ObjectStatus{Exists: true, Accessible: true, Rows: 1200}).
		WithStageFile("@SALES.PUBLIC.SEMANTIC_MODELS/revenue.yaml")
	h := probedValidateHandler(t, prober)

	def := fixtures.QueryFlow()
	w := postJSON(t, h.HandlePreflight, "/v1/flows/preflight", api.PreflightRequest{
		Definition: *def,
		Prompt:     "what was total revenue by region last quarter?",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result api.PreflightResponse
	decodeData(t, w, &result)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	// The orders table must have been probed and reported healthy.
	assert.Equal(t, []string{"SALES.PUBLIC.ORDERS"}, prober.ProbeCalls())
	assert.Equal(t, []string{"@SALES.PUBLIC.SEMANTIC_MODELS/revenue.yaml"}, prober.StageCalls())

	var sawTableOK bool
	for _, f := range result.Info {
		if f.Code == "TABLE_OK" {
			sawTableOK = true
		}
	}
	assert.True(t, sawTableOK, "expected TABLE_OK info finding")
}

func TestHandlePreflight_MissingTable(t *testing.T) {
	// Nothing registered: every probe reports a missing object.
	h := probedValidateHandler(t, mocks.NewProber())

	w := postJSON(t, h.HandlePreflight, "/v1/flows/preflight", api.PreflightRequest{
		Definition: *fixtures.QueryFlow(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result api.PreflightResponse
	decodeData(t, w, &result)
	assert.False(t, result.Valid)

	var sawNotFound bool
	for _, f := range result.Errors {
		if f.Code == "TABLE_NOT_FOUND" {
			sawNotFound = true
		}
	}
	assert.True(t, sawNotFound, "expected TABLE_NOT_FOUND error finding")
}

func TestHandlePreflight_UnwiredFlow(t *testing.T) {
	h := probedValidateHandler(t, mocks.NewProber())

	w := postJSON(t, h.HandlePreflight, "/v1/flows/preflight", api.PreflightRequest{
		Definition: *fixtures.UnwiredFlow(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result api.PreflightResponse
	decodeData(t, w, &result)
	assert.False(t, result.Valid)

	var sawNoEdges bool
	for _, f := range result.Errors {
		if f.Code == "NO_EDGES" {
			sawNoEdges = true
		}
	}
	assert.True(t, sawNoEdges, "expected NO_EDGES error finding")
}

func TestHandleAnnotate_BareAgentFlowFlagged(t *testing.T) {
	h := probedValidateHandler(t, mocks.NewProber())

	def := fixtures.BareAgentFlow()
	w := postJSON(t, h.HandleAnnotate, "/v1/flows/annotate", api.AnnotateRequest{
		Nodes: def.Nodes,
		Edges: def.Edges,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result api.AnnotateResponse
	decodeData(t, w, &result)
	assert.Equal(t, 1, result.RiskyCount, "source → agent without a semantic model is risky")
}

func TestGate_RejectedFlowNeverReachesPreflight(t *testing.T) {
	prober := mocks.NewProber()
	backend := &fakeBackend{}
	h := NewRunHandler(
		backend,
		flow.NewValidator(flow.DefaultRuleset(), nil),
		flow.NewPreflight(prober, flow.DefaultPreflightConfig(), nil),
		nil, nil,
		zaptest.NewLogger(t),
	)

	w := postJSON(t, h.HandleRun, "/v1/run", api.RunFlowRequest{
		Definition: *fixtures.RejectedFlow(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, backend.lastRun)
	assert.Empty(t, prober.ProbeCalls(), "rule-table rejection must short-circuit before catalog probes")
}
