package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/api/handlers"
	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/audit"
	"github.com/snowflowhq/snowflow/internal/cache"
	"github.com/snowflowhq/snowflow/internal/metrics"
	"github.com/snowflowhq/snowflow/internal/server"
	"github.com/snowflowhq/snowflow/internal/store"
	"github.com/snowflowhq/snowflow/internal/telemetry"
	"github.com/snowflowhq/snowflow/runner"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 SnowFlow 的主服务器
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 基础设施组件
	store       *store.Store
	cache       *cache.Manager
	auditLogger audit.Logger
	backend     *runner.Client

	// Handlers
	healthHandler   *handlers.HealthHandler
	flowHandler     *handlers.FlowHandler
	validateHandler *handlers.ValidateHandler
	runHandler      *handlers.RunHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		telemetry: providers,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("snowflow", s.logger)

	// 2. 初始化基础设施组件（数据库、缓存、审计、执行后端）
	if err := s.initComponents(); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	// 3. 初始化 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("audit_mongo", s.cfg.Mongo.Enabled),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initComponents 初始化数据库、缓存、审计日志和执行后端客户端
func (s *Server) initComponents() error {
	// 工作流存储
	st, err := store.Open(s.cfg.Database, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open workflow store: %w", err)
	}
	s.store = st

	// 预置流程模板（幂等）
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SeedTemplates(seedCtx, builtinTemplates()); err != nil {
		s.logger.Warn("Failed to seed builtin templates", zap.Error(err))
	}

	// Redis 缓存（可选）
	if s.cfg.Redis.Enabled {
		cacheManager, err := cache.NewManager(cache.Config{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			DefaultTTL:   s.cfg.Redis.ResultTTL,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		}, s.logger)
		if err != nil {
			s.logger.Warn("Redis not available, annotation cache disabled", zap.Error(err))
		} else {
			s.cache = cacheManager
		}
	}

	// 审计日志后端：优先 MongoDB，不可用时退回内存后端
	var auditBackend audit.Backend
	if s.cfg.Mongo.Enabled {
		mongoBackend, err := audit.NewMongoBackend(s.cfg.Mongo, s.logger)
		if err != nil {
			s.logger.Warn("MongoDB not available, falling back to in-memory audit backend", zap.Error(err))
		} else {
			auditBackend = mongoBackend
		}
	}
	if auditBackend == nil {
		auditBackend = audit.NewMemoryBackend(10000)
	}
	s.auditLogger = audit.NewLogger(&audit.Config{
		Backends: []audit.Backend{auditBackend},
	}, s.logger)

	// 执行后端客户端（同时充当预检的目录探测器）
	s.backend = runner.NewClient(s.cfg.Backend, s.logger)

	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() error {
	// 健康检查 handler
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.store.Ping))
	if s.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cache.Ping))
	}

	// 校验器、注解器、预检器共享同一份规则表
	rules := flow.DefaultRuleset()
	validator := flow.NewValidator(rules, s.logger)
	annotator := flow.NewAnnotator(rules, s.cfg.Validation.VisitCap, s.logger)
	prober := flow.CatalogProber(s.backend)
	if s.cache != nil {
		prober = cache.NewProber(s.backend, s.cache, 30*time.Second)
	}
	preflight := flow.NewPreflight(prober, flow.PreflightConfig{
		PromptTokenBudget: s.cfg.Validation.PromptTokenBudget,
		TokenEncoding:     s.cfg.Validation.TokenEncoding,
	}, s.logger)

	s.flowHandler = handlers.NewFlowHandler(s.store, s.auditLogger, s.logger)
	s.validateHandler = handlers.NewValidateHandler(validator, annotator, preflight, s.cache, s.metricsCollector, s.logger)
	s.runHandler = handlers.NewRunHandler(s.backend, validator, preflight, s.metricsCollector, s.auditLogger, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 校验与注解 API
	// ========================================
	mux.HandleFunc("/api/v1/flows/validate-connection", requireMethod(http.MethodPost, s.validateHandler.HandleValidateConnection))
	mux.HandleFunc("/api/v1/flows/annotate", requireMethod(http.MethodPost, s.validateHandler.HandleAnnotate))
	mux.HandleFunc("/api/v1/flows/preflight", requireMethod(http.MethodPost, s.validateHandler.HandlePreflight))

	// ========================================
	// 工作流与模板 API
	// ========================================
	mux.HandleFunc("/api/v1/flows", s.handleFlows)
	mux.HandleFunc("/api/v1/flows/", s.handleFlowItem)
	mux.HandleFunc("/api/v1/templates", requireMethod(http.MethodGet, s.flowHandler.HandleListTemplates))
	mux.HandleFunc("/api/v1/templates/", requireMethod(http.MethodGet, s.flowHandler.HandleGetTemplate))

	// ========================================
	// 运行 API（规则校验 + 预检闸门在 handler 内部执行）
	// ========================================
	mux.HandleFunc("/api/v1/run", requireMethod(http.MethodPost, s.runHandler.HandleRun))
	mux.HandleFunc("/api/v1/run/stream", requireMethod(http.MethodPost, s.runHandler.HandleStream))
	mux.HandleFunc("/api/v1/run/ws", s.runHandler.HandleWebSocket)

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares,
		CORS(s.cfg.Server.CORSOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	)
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares,
			Auth(s.cfg.Auth, skipAuthPaths, s.logger),
			TenantRateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		)
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞），配置了证书则走 TLS
	var err error
	if s.cfg.Server.TLSCertFile != "" && s.cfg.Server.TLSKeyFile != "" {
		err = s.httpManager.StartTLS(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
	} else {
		err = s.httpManager.Start()
	}
	if err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// handleFlows 按方法分派工作流集合路由
func (s *Server) handleFlows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.flowHandler.HandleSave(w, r)
	case http.MethodGet:
		s.flowHandler.HandleList(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleFlowItem 按方法分派单个工作流路由
func (s *Server) handleFlowItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.flowHandler.HandleGet(w, r)
	case http.MethodDelete:
		s.flowHandler.HandleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// requireMethod 限定路由只接受指定的 HTTP 方法
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 排空并关闭审计日志
	if s.auditLogger != nil {
		if err := s.auditLogger.Close(); err != nil {
			s.logger.Error("Audit logger shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭缓存和存储
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Cache shutdown error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Store shutdown error", zap.Error(err))
		}
	}

	// 5. 关闭遥测
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	// 6. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
