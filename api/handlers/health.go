package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 存活与就绪探针
// =============================================================================

// readyProbeTimeout 单次就绪检查的总预算；数据库与 Redis 串行探测，
// 都要落在这个窗口内
const readyProbeTimeout = 5 * time.Second

// HealthCheck 就绪检查项。服务端在启动时注册工作流库与
// （可选的）Redis 缓存两项。
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// PingCheck 把一个 Ping 函数包装成检查项；数据库与 Redis
// 的探活签名相同，共用一个实现
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingCheck 创建基于 Ping 的检查项
func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }

// HealthHandler 提供 /health、/healthz、/ready 与 /version
type HealthHandler struct {
	logger *zap.Logger

	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建探针处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{logger: logger.With(zap.String("component", "health"))}
}

// RegisterCheck 注册一个就绪检查项
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// ProbeResult 单项检查结果
type ProbeResult struct {
	Status  string `json:"status"` // pass / fail
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// ProbeReport 探针响应体
type ProbeReport struct {
	Status    string                 `json:"status"` // healthy / unhealthy
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]ProbeResult `json:"checks,omitempty"`
}

// HandleHealth 处理 /health 请求
// @Summary 存活检查
// @Description 进程存活即返回 200，不触碰任何依赖
// @Tags 健康
// @Produce json
// @Success 200 {object} ProbeReport "服务存活"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ProbeReport{Status: "healthy", Timestamp: time.Now().UTC()})
}

// HandleHealthz 处理 /healthz 请求（Kubernetes liveness）
// @Summary 存活探针
// @Description Kubernetes liveness 探针,与 /health 等价
// @Tags 健康
// @Produce json
// @Success 200 {object} ProbeReport "服务存活"
// @Router /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.HandleHealth(w, r)
}

// HandleReady 处理 /ready 与 /readyz 请求
// @Summary 就绪检查
// @Description 逐项探测注册的依赖（工作流库、Redis），任一失败返回 503
// @Tags 健康
// @Produce json
// @Success 200 {object} ProbeReport "可以接收流量"
// @Failure 503 {object} ProbeReport "依赖不可用"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	report := ProbeReport{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]ProbeResult, len(checks)),
	}

	code := http.StatusOK
	for _, check := range checks {
		result := h.probe(ctx, check)
		report.Checks[check.Name()] = result
		if result.Status == "fail" {
			report.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, code, report)
}

func (h *HealthHandler) probe(ctx context.Context, check HealthCheck) ProbeResult {
	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	if err != nil {
		h.logger.Warn("readiness probe failed",
			zap.String("check", check.Name()),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return ProbeResult{Status: "fail", Message: err.Error(), Latency: latency.String()}
	}
	return ProbeResult{Status: "pass", Latency: latency.String()}
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Description 返回构建时注入的版本、构建时间与提交号
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}
