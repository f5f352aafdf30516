package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/api"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/cache"
	"github.com/snowflowhq/snowflow/internal/metrics"
	"github.com/snowflowhq/snowflow/types"
)

// =============================================================================
// ✅ 连接校验 Handler
// =============================================================================

// ValidateHandler 连接校验、边注解与预检处理器
type ValidateHandler struct {
	validator *flow.Validator
	annotator *flow.Annotator
	preflight *flow.Preflight
	cache     *cache.Manager
	metrics   *metrics.Collector
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewValidateHandler 创建校验处理器。cache 与 metrics 均可为 nil。
func NewValidateHandler(
	validator *flow.Validator,
	annotator *flow.Annotator,
	preflight *flow.Preflight,
	cacheManager *cache.Manager,
	collector *metrics.Collector,
	logger *zap.Logger,
) *ValidateHandler {
	return &ValidateHandler{
		validator: validator,
		annotator: annotator,
		preflight: preflight,
		cache:     cacheManager,
		metrics:   collector,
		cacheTTL:  5 * time.Minute,
		logger:    logger.With(zap.String("component", "validate_handler")),
	}
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleValidateConnection 校验一条候选连线
// @Summary 连线校验
// @Description 按邻接规则表判定候选边是否允许建立
// @Tags 校验
// @Accept json
// @Produce json
// @Param request body api.ValidateConnectionRequest true "校验请求"
// @Success 200 {object} Response{data=api.ValidateConnectionResponse} "校验结果"
// @Failure 400 {object} Response "无效请求"
// @Router /v1/flows/validate-connection [post]
func (h *ValidateHandler) HandleValidateConnection(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ValidateConnectionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if len(req.Nodes) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "nodes are required", h.logger)
		return
	}

	g := flow.NewGraphFrom(req.Nodes, req.Edges)
	decision := h.validator.ValidateConnection(g, req.Candidate)

	if h.metrics != nil {
		h.metrics.RecordValidation(decision.Accepted, decision.Risky)
		if decision.Risky {
			srcCat, _ := g.Category(req.Candidate.Source)
			tgtCat, _ := g.Category(req.Candidate.Target)
			h.metrics.RecordRiskyEdge(string(srcCat), string(tgtCat))
		}
	}

	WriteSuccess(w, api.ValidateConnectionResponse{
		Accepted: decision.Accepted,
		Message:  decision.Message,
		Risky:    decision.Risky,
	})
}

// HandleAnnotate 为整图边标注风险
// @Summary 边注解
// @Description 为每条命中风险提示的边附加 riskWarning，幂等
// @Tags 校验
// @Accept json
// @Produce json
// @Param request body api.AnnotateRequest true "注解请求"
// @Success 200 {object} Response{data=api.AnnotateResponse} "注解结果"
// @Failure 400 {object} Response "无效请求"
// @Router /v1/flows/annotate [post]
func (h *ValidateHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.AnnotateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 注解结果按图内容寻址缓存
	var cacheKey string
	if h.cache != nil {
		if graphJSON, err := json.Marshal(req); err == nil {
			cacheKey = cache.AnnotationKey(graphJSON)
			var cached api.AnnotateResponse
			if err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err == nil {
				WriteSuccess(w, cached)
				return
			}
		}
	}

	start := time.Now()
	g := flow.NewGraphFrom(req.Nodes, req.Edges)
	annotated := h.annotator.Annotate(g)

	riskyCount := 0
	for _, e := range annotated {
		if e.Risky() {
			riskyCount++
		}
	}

	resp := api.AnnotateResponse{Edges: annotated, RiskyCount: riskyCount}

	if h.metrics != nil {
		h.metrics.RecordAnnotation(len(annotated), time.Since(start))
	}
	if h.cache != nil && cacheKey != "" {
		if err := h.cache.SetJSON(r.Context(), cacheKey, resp, h.cacheTTL); err != nil {
			h.logger.Debug("annotation cache write failed", zap.Error(err))
		}
	}

	WriteSuccess(w, resp)
}

// HandlePreflight 运行前检查
// @Summary 预检
// @Description 对完整流程执行结构、数据源、语义模型、Agent 与提示词检查
// @Tags 校验
// @Accept json
// @Produce json
// @Param request body api.PreflightRequest true "预检请求"
// @Success 200 {object} Response{data=api.PreflightResponse} "预检结果"
// @Failure 400 {object} Response "无效请求"
// @Router /v1/flows/preflight [post]
func (h *ValidateHandler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.PreflightRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 预检结果按图内容加提示词寻址缓存
	var cacheKey string
	if h.cache != nil {
		if defJSON, err := json.Marshal(req.Definition); err == nil {
			cacheKey = cache.PreflightKey(defJSON, req.Prompt)
			var cached api.PreflightResponse
			if err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err == nil {
				WriteSuccess(w, cached)
				return
			}
		}
	}

	start := time.Now()
	result := h.preflight.Check(r.Context(), req.Definition.Graph(), req.Prompt)

	if h.metrics != nil {
		h.metrics.RecordPreflight(result.IsValid(), time.Since(start))
		for _, f := range result.Errors {
			h.metrics.RecordPreflightFinding(f.Code, string(f.Severity))
		}
		for _, f := range result.Warnings {
			h.metrics.RecordPreflightFinding(f.Code, string(f.Severity))
		}
	}

	resp := preflightResponse(result)
	if h.cache != nil && cacheKey != "" {
		if err := h.cache.SetJSON(r.Context(), cacheKey, resp, h.cacheTTL); err != nil {
			h.logger.Debug("preflight cache write failed", zap.Error(err))
		}
	}

	WriteSuccess(w, resp)
}

// preflightResponse 将预检结果转为 API 响应，空切片而不是 null
func preflightResponse(result *flow.Result) api.PreflightResponse {
	resp := api.PreflightResponse{
		Valid:    result.IsValid(),
		Errors:   result.Errors,
		Warnings: result.Warnings,
		Info:     result.Info,
	}
	if resp.Errors == nil {
		resp.Errors = []flow.Finding{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []flow.Finding{}
	}
	if resp.Info == nil {
		resp.Info = []flow.Finding{}
	}
	return resp
}
