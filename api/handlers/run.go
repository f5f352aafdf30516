package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/api"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/audit"
	"github.com/snowflowhq/snowflow/internal/metrics"
	"github.com/snowflowhq/snowflow/runner"
	"github.com/snowflowhq/snowflow/types"
)

// =============================================================================
// 🚀 流程运行 Handler
// =============================================================================

// Backend 执行后端接口，生产实现为 runner.Client
type Backend interface {
	Run(ctx context.Context, req *runner.RunRequest) (*runner.RunResult, error)
	Stream(ctx context.Context, req *runner.RunRequest) (<-chan runner.Event, error)
}

// RunHandler 流程运行处理器。任何违反规则表或预检失败的图
// 都不会递交给执行后端。
type RunHandler struct {
	backend   Backend
	validator *flow.Validator
	preflight *flow.Preflight
	metrics   *metrics.Collector
	audit     audit.Logger
	logger    *zap.Logger
}

// NewRunHandler 创建运行处理器。metrics 与 audit 均可为 nil。
func NewRunHandler(
	backend Backend,
	validator *flow.Validator,
	preflight *flow.Preflight,
	collector *metrics.Collector,
	auditLogger audit.Logger,
	logger *zap.Logger,
) *RunHandler {
	return &RunHandler{
		backend:   backend,
		validator: validator,
		preflight: preflight,
		metrics:   collector,
		audit:     auditLogger,
		logger:    logger.With(zap.String("component", "run_handler")),
	}
}

// gate 在递交后端前执行规则表校验与预检。
// 返回 nil 表示放行；否则为应写回客户端的错误或预检结果。
func (h *RunHandler) gate(ctx context.Context, req *api.RunFlowRequest) (*flow.Result, *types.Error) {
	if err := req.Definition.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidGraph, err.Error()).
			WithHTTPStatus(http.StatusBadRequest)
	}

	g := req.Definition.Graph()
	if err := h.validator.CheckGraph(g); err != nil {
		return nil, types.NewError(types.ErrEdgeRejected, err.Error()).
			WithHTTPStatus(http.StatusBadRequest)
	}

	result := h.preflight.Check(ctx, g, req.Prompt)
	if !result.IsValid() {
		return result, nil
	}
	return nil, nil
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleRun 阻塞式运行流程
// @Summary 运行流程
// @Description 预检通过后递交执行后端并等待结果
// @Tags 运行
// @Accept json
// @Produce json
// @Param request body api.RunFlowRequest true "运行请求"
// @Success 200 {object} Response{data=api.RunFlowResponse} "运行结果"
// @Failure 400 {object} Response "图不符合规则表"
// @Failure 422 {object} Response{data=api.RunFlowResponse} "预检失败"
// @Security ApiKeyAuth
// @Router /v1/run [post]
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.RunFlowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	preflightResult, gateErr := h.gate(r.Context(), &req)
	if gateErr != nil {
		WriteError(w, gateErr, h.logger)
		return
	}
	if preflightResult != nil {
		pf := preflightResponse(preflightResult)
		WriteJSON(w, http.StatusUnprocessableEntity, Response{
			Success:   false,
			Data:      api.RunFlowResponse{Status: "rejected", Preflight: &pf},
			Timestamp: time.Now(),
		})
		return
	}

	tenant := tenantFrom(r)
	start := time.Now()
	result, err := h.backend.Run(r.Context(), &runner.RunRequest{
		Definition: &req.Definition,
		Prompt:     req.Prompt,
		WorkflowID: req.WorkflowID,
		TenantID:   tenant,
	})
	duration := time.Since(start)

	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordRun("failed", duration)
		}
		h.writeBackendError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRun(result.Status, duration)
	}
	if h.audit != nil {
		audit.LogFlowRun(h.audit, tenant, req.WorkflowID, result.RunID, result.Status, duration)
	}

	h.logger.Info("flow run completed",
		zap.String("run_id", result.RunID),
		zap.String("status", result.Status),
		zap.Duration("duration", duration),
	)

	var output any
	if len(result.Output) > 0 {
		output = json.RawMessage(result.Output)
	}
	WriteSuccess(w, api.RunFlowResponse{
		RunID:  result.RunID,
		Status: result.Status,
		Output: output,
		Error:  result.Error,
	})
}

// HandleStream 以 SSE 流式运行流程
// @Summary 流式运行流程
// @Description 预检通过后递交执行后端，以 SSE 转发执行事件
// @Tags 运行
// @Accept json
// @Produce text/event-stream
// @Param request body api.RunFlowRequest true "运行请求"
// @Success 200 {string} string "SSE 流"
// @Failure 400 {object} Response "图不符合规则表"
// @Security ApiKeyAuth
// @Router /v1/run/stream [post]
func (h *RunHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.RunFlowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	preflightResult, gateErr := h.gate(r.Context(), &req)
	if gateErr != nil {
		WriteError(w, gateErr, h.logger)
		return
	}
	if preflightResult != nil {
		pf := preflightResponse(preflightResult)
		WriteJSON(w, http.StatusUnprocessableEntity, Response{
			Success:   false,
			Data:      api.RunFlowResponse{Status: "rejected", Preflight: &pf},
			Timestamp: time.Now(),
		})
		return
	}

	// 设置 SSE 响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲

	flusher, ok := w.(http.Flusher)
	if !ok {
		// 头还没提交，仍可退回 JSON 信封
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	events, err := h.backend.Stream(r.Context(), &runner.RunRequest{
		Definition: &req.Definition,
		Prompt:     req.Prompt,
		WorkflowID: req.WorkflowID,
		TenantID:   tenantFrom(r),
	})
	if err != nil {
		h.logger.Error("backend stream failed", zap.Error(err))
		writeSSEError(w, flusher, err)
		return
	}

	for event := range events {
		if event.Err != nil {
			h.logger.Error("backend stream error", zap.Error(event.Err))
			writeSSEError(w, flusher, event.Err)
			return
		}

		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal event", zap.Error(err))
			return
		}
		w.Write([]byte("data: "))
		w.Write(payload)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

// HandleWebSocket 以 WebSocket 转发执行事件
// @Summary WebSocket 运行流程
// @Description 建立 WebSocket 连接，读取一条运行请求后转发执行事件
// @Tags 运行
// @Success 101 {string} string "协议切换"
// @Security ApiKeyAuth
// @Router /v1/run/ws [get]
func (h *RunHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var req api.RunFlowRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid run request")
		return
	}

	preflightResult, gateErr := h.gate(ctx, &req)
	if gateErr != nil {
		_ = wsjson.Write(ctx, conn, map[string]any{"type": "error", "error": gateErr.Message})
		conn.Close(websocket.StatusPolicyViolation, string(gateErr.Code))
		return
	}
	if preflightResult != nil {
		pf := preflightResponse(preflightResult)
		_ = wsjson.Write(ctx, conn, map[string]any{"type": "preflight_failed", "preflight": pf})
		conn.Close(websocket.StatusPolicyViolation, "preflight failed")
		return
	}

	events, err := h.backend.Stream(ctx, &runner.RunRequest{
		Definition: &req.Definition,
		Prompt:     req.Prompt,
		WorkflowID: req.WorkflowID,
		TenantID:   tenantFrom(r),
	})
	if err != nil {
		_ = wsjson.Write(ctx, conn, map[string]any{"type": "error", "error": err.Error()})
		conn.Close(websocket.StatusInternalError, "backend unavailable")
		return
	}

	for event := range events {
		if event.Err != nil {
			_ = wsjson.Write(ctx, conn, map[string]any{"type": "error", "error": event.Err.Error()})
			conn.Close(websocket.StatusInternalError, "stream failed")
			return
		}
		if err := wsjson.Write(ctx, conn, event); err != nil {
			h.logger.Debug("websocket write failed, client gone", zap.Error(err))
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// writeSSEError 以 error 事件帧上报错误。
// SSE 响应头一旦发出就不能再退回 JSON 信封，只能走事件流。
func writeSSEError(w http.ResponseWriter, flusher http.Flusher, err error) {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write([]byte("event: error\ndata: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

func (h *RunHandler) writeBackendError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*types.Error); ok {
		WriteError(w, apiErr, h.logger)
		return
	}
	WriteError(w, types.NewError(types.ErrBackendUnavailable, "execution backend request failed").
		WithCause(err), h.logger)
}
