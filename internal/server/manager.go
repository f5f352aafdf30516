package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🌐 HTTP 监听器生命周期
// =============================================================================

// Config 监听器参数。API 服务与 metrics 服务各持有一个 Manager，
// 同一套关闭时序。
type Config struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Manager 包装一个 http.Server：先 Listen 再异步 Serve，
// 端口占用这类错误在 Start 返回值里同步暴露，而不是丢进日志。
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	srv     *http.Server
	failure chan error

	mu      sync.Mutex
	ln      net.Listener
	stopped bool
}

// NewManager 创建监听器管理器
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "listener"), zap.String("addr", cfg.Addr)),
		srv: &http.Server{
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		failure: make(chan error, 1),
	}
}

// Start 绑定端口并异步开始服务
func (m *Manager) Start() error {
	return m.start("http", func(ln net.Listener) error {
		return m.srv.Serve(ln)
	})
}

// StartTLS 以 TLS 绑定端口并异步开始服务
func (m *Manager) StartTLS(certFile, keyFile string) error {
	return m.start("https", func(ln net.Listener) error {
		return m.srv.ServeTLS(ln, certFile, keyFile)
	})
}

func (m *Manager) start(scheme string, serve func(net.Listener) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return fmt.Errorf("listener already shut down")
	}
	if m.ln != nil {
		return fmt.Errorf("listener already started on %s", m.ln.Addr())
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.cfg.Addr, err)
	}
	m.ln = ln
	m.logger.Info("listener up", zap.String("scheme", scheme), zap.String("bound", ln.Addr().String()))

	go func() {
		if err := serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("listener failed", zap.Error(err))
			select {
			case m.failure <- err:
			default:
			}
		}
	}()
	return nil
}

// Addr 返回实际绑定的地址；未启动时返回配置地址。
// 测试用 ":0" 启动后从这里取端口。
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	return m.cfg.Addr
}

// Shutdown 优雅关闭：停止接受新连接，等在途请求完成，
// 超过 ShutdownTimeout 则放弃
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.ln = nil
	m.mu.Unlock()

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}

	m.logger.Info("draining listener")
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("listener drain failed", zap.Error(err))
		return err
	}
	m.logger.Info("listener stopped")
	return nil
}

// WaitForShutdown 阻塞到收到 SIGINT/SIGTERM 或 Serve 异常退出，
// 然后优雅关闭
func (m *Manager) WaitForShutdown() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		m.logger.Info("shutdown signal received")
	case err := <-m.failure:
		m.logger.Error("listener exited unexpectedly", zap.Error(err))
	}

	if err := m.Shutdown(context.Background()); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}
