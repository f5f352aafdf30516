package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/api"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/audit"
	"github.com/snowflowhq/snowflow/internal/store"
	"github.com/snowflowhq/snowflow/types"
)

// =============================================================================
// 📋 工作流管理 Handler
// =============================================================================

// FlowHandler 工作流存取处理器
type FlowHandler struct {
	store  *store.Store
	audit  audit.Logger
	logger *zap.Logger
}

// NewFlowHandler 创建工作流处理器。audit 可为 nil，表示不记录审计。
func NewFlowHandler(s *store.Store, auditLogger audit.Logger, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		store:  s,
		audit:  auditLogger,
		logger: logger.With(zap.String("component", "flow_handler")),
	}
}

// tenantFrom 从请求上下文取租户，未认证部署回落到默认租户
func tenantFrom(r *http.Request) string {
	if tenant, ok := types.TenantID(r.Context()); ok && tenant != "" {
		return tenant
	}
	return "default"
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleSave 保存工作流（新建或更新）
// @Summary 保存工作流
// @Description 保存流程定义，定义必须通过结构校验
// @Tags 工作流
// @Accept json
// @Produce json
// @Param request body api.SaveWorkflowRequest true "保存请求"
// @Success 200 {object} Response{data=api.WorkflowSummary} "保存结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 409 {object} Response "名称冲突"
// @Security ApiKeyAuth
// @Router /v1/flows [post]
func (h *FlowHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.SaveWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "name is required", h.logger)
		return
	}
	if err := req.Definition.Validate(); err != nil {
		WriteError(w, types.NewError(types.ErrInvalidGraph, err.Error()).
			WithHTTPStatus(http.StatusBadRequest), h.logger)
		return
	}

	definition, err := req.Definition.Export()
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to serialize definition").
			WithCause(err), h.logger)
		return
	}

	tenant := tenantFrom(r)
	wf := &store.Workflow{
		ID:          req.ID,
		TenantID:    tenant,
		Name:        req.Name,
		Description: req.Description,
		Definition:  definition,
	}
	if err := h.store.SaveWorkflow(r.Context(), wf); err != nil {
		h.writeStoreError(w, err)
		return
	}

	if h.audit != nil {
		h.audit.LogAsync(&audit.Entry{
			EventType:  audit.EventWorkflowSaved,
			TenantID:   tenant,
			WorkflowID: wf.ID,
		})
	}

	WriteSuccess(w, api.WorkflowSummary{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		Version:     wf.Version,
		UpdatedAt:   wf.UpdatedAt,
	})
}

// HandleList 列出当前租户的工作流
// @Summary 工作流列表
// @Description 按更新时间倒序返回当前租户的工作流
// @Tags 工作流
// @Produce json
// @Success 200 {object} Response{data=[]api.WorkflowSummary} "工作流列表"
// @Security ApiKeyAuth
// @Router /v1/flows [get]
func (h *FlowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.store.ListWorkflows(r.Context(), tenantFrom(r))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	result := make([]api.WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		result = append(result, api.WorkflowSummary{
			ID:          wf.ID,
			Name:        wf.Name,
			Description: wf.Description,
			Version:     wf.Version,
			UpdatedAt:   wf.UpdatedAt,
		})
	}
	WriteSuccess(w, result)
}

// HandleGet 读取单个工作流
// @Summary 工作流详情
// @Description 返回完整流程定义
// @Tags 工作流
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} Response{data=api.WorkflowDetail} "工作流详情"
// @Failure 404 {object} Response "未找到"
// @Security ApiKeyAuth
// @Router /v1/flows/{id} [get]
func (h *FlowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow id is required", h.logger)
		return
	}

	wf, err := h.store.GetWorkflow(r.Context(), tenantFrom(r), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	def, err := flow.Import(wf.Definition)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "stored definition is corrupt").
			WithCause(err), h.logger)
		return
	}

	WriteSuccess(w, api.WorkflowDetail{
		WorkflowSummary: api.WorkflowSummary{
			ID:          wf.ID,
			Name:        wf.Name,
			Description: wf.Description,
			Version:     wf.Version,
			UpdatedAt:   wf.UpdatedAt,
		},
		Definition: *def,
		CreatedAt:  wf.CreatedAt,
	})
}

// HandleDelete 删除工作流（软删除）
// @Summary 删除工作流
// @Description 软删除当前租户的工作流
// @Tags 工作流
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "未找到"
// @Security ApiKeyAuth
// @Router /v1/flows/{id} [delete]
func (h *FlowHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow id is required", h.logger)
		return
	}

	tenant := tenantFrom(r)
	if err := h.store.DeleteWorkflow(r.Context(), tenant, id); err != nil {
		h.writeStoreError(w, err)
		return
	}

	if h.audit != nil {
		h.audit.LogAsync(&audit.Entry{
			EventType:  audit.EventWorkflowDeleted,
			TenantID:   tenant,
			WorkflowID: id,
		})
	}

	WriteSuccess(w, map[string]string{"id": id, "status": "deleted"})
}

// HandleListTemplates 列出流程模板
// @Summary 模板列表
// @Description 返回内置流程模板，可按类别过滤
// @Tags 工作流
// @Produce json
// @Param category query string false "模板类别"
// @Success 200 {object} Response{data=[]api.TemplateSummary} "模板列表"
// @Router /v1/templates [get]
func (h *FlowHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	result := make([]api.TemplateSummary, 0, len(templates))
	for _, tpl := range templates {
		result = append(result, api.TemplateSummary{
			ID:          tpl.ID,
			Name:        tpl.Name,
			Description: tpl.Description,
			Category:    tpl.Category,
			Shape:       tpl.Shape,
		})
	}
	WriteSuccess(w, result)
}

// HandleGetTemplate 读取单个模板
// @Summary 模板详情
// @Description 返回模板的完整流程定义
// @Tags 工作流
// @Produce json
// @Param id path string true "模板 ID"
// @Success 200 {object} Response{data=api.TemplateDetail} "模板详情"
// @Failure 404 {object} Response "未找到"
// @Router /v1/templates/{id} [get]
func (h *FlowHandler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "template id is required", h.logger)
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	def, err := flow.Import(tpl.Definition)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "stored template is corrupt").
			WithCause(err), h.logger)
		return
	}

	WriteSuccess(w, api.TemplateDetail{
		TemplateSummary: api.TemplateSummary{
			ID:          tpl.ID,
			Name:        tpl.Name,
			Description: tpl.Description,
			Category:    tpl.Category,
			Shape:       tpl.Shape,
		},
		Definition: *def,
	})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// pathTail 取路径最后一段作为资源 ID
func pathTail(path string) string {
	path = strings.TrimRight(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}

func (h *FlowHandler) writeStoreError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*types.Error); ok {
		WriteError(w, apiErr, h.logger)
		return
	}
	WriteError(w, types.NewError(types.ErrStoreError, "storage operation failed").WithCause(err), h.logger)
}
