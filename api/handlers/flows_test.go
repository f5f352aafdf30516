package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snowflowhq/snowflow/api"
	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/store"
	"github.com/snowflowhq/snowflow/types"
)

// =============================================================================
// 🧪 工作流 Handler 测试
// =============================================================================

func newFlowHandler(t *testing.T) *FlowHandler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	s, err := store.New(db, config.DefaultDatabaseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewFlowHandler(s, nil, zaptest.NewLogger(t))
}

func sampleSaveRequest(name string) api.SaveWorkflowRequest {
	return api.SaveWorkflowRequest{
		Name: name,
		Definition: flow.Definition{
			Name: name,
			Nodes: []flow.Node{
				{ID: "src", Category: flow.CategorySource},
				{ID: "agent", Category: flow.CategoryAgent},
				{ID: "out", Category: flow.CategoryOutput},
			},
			Edges: []flow.Edge{
				{ID: "e1", Source: "src", Target: "agent"},
				{ID: "e2", Source: "agent", Target: "out"},
			},
		},
	}
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestFlowHandler_SaveAndGet(t *testing.T) {
	h := newFlowHandler(t)

	w := postJSON(t, h.HandleSave, "/v1/flows", sampleSaveRequest("retail"))
	require.Equal(t, http.StatusOK, w.Code)

	var summary api.WorkflowSummary
	decodeData(t, w, &summary)
	require.NotEmpty(t, summary.ID)
	assert.Equal(t, "retail", summary.Name)

	getW := httptest.NewRecorder()
	getR := httptest.NewRequest(http.MethodGet, "/v1/flows/"+summary.ID, nil)
	h.HandleGet(getW, getR)
	require.Equal(t, http.StatusOK, getW.Code)

	var detail api.WorkflowDetail
	decodeData(t, getW, &detail)
	assert.Equal(t, summary.ID, detail.ID)
	assert.Len(t, detail.Definition.Nodes, 3)
	assert.Len(t, detail.Definition.Edges, 2)
}

func TestFlowHandler_SaveRejectsInvalidDefinition(t *testing.T) {
	h := newFlowHandler(t)

	req := sampleSaveRequest("broken")
	// 边指向不存在的节点
	req.Definition.Edges = append(req.Definition.Edges, flow.Edge{ID: "e3", Source: "src", Target: "ghost"})

	w := postJSON(t, h.HandleSave, "/v1/flows", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrInvalidGraph), errorCodeOf(t, w))
}

func TestFlowHandler_SaveRequiresName(t *testing.T) {
	h := newFlowHandler(t)

	req := sampleSaveRequest("x")
	req.Name = ""

	w := postJSON(t, h.HandleSave, "/v1/flows", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlowHandler_List(t *testing.T) {
	h := newFlowHandler(t)

	for _, name := range []string{"alpha", "beta"} {
		w := postJSON(t, h.HandleSave, "/v1/flows", sampleSaveRequest(name))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/v1/flows", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []api.WorkflowSummary
	decodeData(t, w, &list)
	assert.Len(t, list, 2)
}

func TestFlowHandler_GetNotFound(t *testing.T) {
	h := newFlowHandler(t)

	w := httptest.NewRecorder()
	h.HandleGet(w, httptest.NewRequest(http.MethodGet, "/v1/flows/wf-missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrWorkflowNotFound), errorCodeOf(t, w))
}

func TestFlowHandler_Delete(t *testing.T) {
	h := newFlowHandler(t)

	w := postJSON(t, h.HandleSave, "/v1/flows", sampleSaveRequest("doomed"))
	require.Equal(t, http.StatusOK, w.Code)
	var summary api.WorkflowSummary
	decodeData(t, w, &summary)

	delW := httptest.NewRecorder()
	h.HandleDelete(delW, httptest.NewRequest(http.MethodDelete, "/v1/flows/"+summary.ID, nil))
	require.Equal(t, http.StatusOK, delW.Code)

	getW := httptest.NewRecorder()
	h.HandleGet(getW, httptest.NewRequest(http.MethodGet, "/v1/flows/"+summary.ID, nil))
	assert.Equal(t, http.StatusNotFound, getW.Code)
}

func TestFlowHandler_Templates(t *testing.T) {
	h := newFlowHandler(t)

	tplDef := sampleSaveRequest("tpl").Definition
	def, err := tplDef.Export()
	require.NoError(t, err)
	require.NoError(t, h.store.SeedTemplates(httptest.NewRequest(http.MethodGet, "/", nil).Context(), []store.Template{
		{Name: "single-agent", Category: "query", Shape: "single", Definition: def},
		{Name: "schema-migration", Category: "migration", Shape: "single", Definition: def},
	}))

	w := httptest.NewRecorder()
	h.HandleListTemplates(w, httptest.NewRequest(http.MethodGet, "/v1/templates?category=query", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []api.TemplateSummary
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "single-agent", list[0].Name)

	getW := httptest.NewRecorder()
	getR := httptest.NewRequest(http.MethodGet, "/v1/templates/"+list[0].ID, nil)
	h.HandleGetTemplate(getW, getR)
	require.Equal(t, http.StatusOK, getW.Code)

	var detail api.TemplateDetail
	decodeData(t, getW, &detail)
	assert.Len(t, detail.Definition.Nodes, 3)
}

func TestPathTail(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/flows/wf-123", "wf-123"},
		{"/v1/flows/wf-123/", "wf-123"},
		{"/v1/flows/", "flows"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pathTail(tt.path), "path %q", tt.path)
	}
}
