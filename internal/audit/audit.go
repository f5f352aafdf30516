package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 📝 审计日志
// =============================================================================

// EventType 审计事件类型
type EventType string

const (
	EventWorkflowSaved      EventType = "workflow_saved"
	EventWorkflowDeleted    EventType = "workflow_deleted"
	EventConnectionRejected EventType = "connection_rejected"
	EventRiskyEdgeAccepted  EventType = "risky_edge_accepted"
	EventPreflightRun       EventType = "preflight_run"
	EventFlowRun            EventType = "flow_run"
)

// Entry 单条审计记录
type Entry struct {
	ID         string            `json:"id" bson:"_id"`
	Timestamp  time.Time         `json:"timestamp" bson:"timestamp"`
	EventType  EventType         `json:"event_type" bson:"event_type"`
	TenantID   string            `json:"tenant_id" bson:"tenant_id"`
	UserID     string            `json:"user_id,omitempty" bson:"user_id,omitempty"`
	WorkflowID string            `json:"workflow_id,omitempty" bson:"workflow_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Detail     json.RawMessage   `json:"detail,omitempty" bson:"detail,omitempty"`
	Error      string            `json:"error,omitempty" bson:"error,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty" bson:"duration,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	RequestIP  string            `json:"request_ip,omitempty" bson:"request_ip,omitempty"`
}

// Filter 审计查询过滤条件
type Filter struct {
	TenantID   string     `json:"tenant_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	WorkflowID string     `json:"workflow_id,omitempty"`
	EventType  EventType  `json:"event_type,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Backend 审计存储后端接口
type Backend interface {
	Write(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter *Filter) ([]*Entry, error)
	Close() error
}

// Logger 审计日志记录器接口
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	LogAsync(entry *Entry)
	Query(ctx context.Context, filter *Filter) ([]*Entry, error)
	Close() error
}

// DefaultLogger 默认审计记录器，支持多后端与异步写入
type DefaultLogger struct {
	backends    []Backend
	asyncQueue  chan *Entry
	wg          sync.WaitGroup
	logger      *zap.Logger
	closed      bool
	closeMu     sync.Mutex
	idGenerator func() string
}

// Config 审计记录器配置
type Config struct {
	Backends       []Backend
	AsyncQueueSize int
	AsyncWorkers   int
	IDGenerator    func() string
}

// NewLogger 创建审计记录器
func NewLogger(cfg *Config, logger *zap.Logger) *DefaultLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.AsyncQueueSize == 0 {
		cfg.AsyncQueueSize = 10000
	}
	if cfg.AsyncWorkers == 0 {
		cfg.AsyncWorkers = 4
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = generateEntryID
	}

	al := &DefaultLogger{
		backends:    cfg.Backends,
		asyncQueue:  make(chan *Entry, cfg.AsyncQueueSize),
		logger:      logger.With(zap.String("component", "audit_logger")),
		idGenerator: cfg.IDGenerator,
	}

	for i := 0; i < cfg.AsyncWorkers; i++ {
		al.wg.Add(1)
		go al.asyncWorker()
	}

	return al
}

func (al *DefaultLogger) asyncWorker() {
	defer al.wg.Done()

	for entry := range al.asyncQueue {
		if err := al.writeToBackends(context.Background(), entry); err != nil {
			al.logger.Error("failed to write audit entry",
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
		}
	}
}

func (al *DefaultLogger) writeToBackends(ctx context.Context, entry *Entry) error {
	var lastErr error
	for _, backend := range al.backends {
		if err := backend.Write(ctx, entry); err != nil {
			al.logger.Error("backend write failed",
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

// Log 同步记录一条审计事件
func (al *DefaultLogger) Log(ctx context.Context, entry *Entry) error {
	al.closeMu.Lock()
	if al.closed {
		al.closeMu.Unlock()
		return fmt.Errorf("audit logger is closed")
	}
	al.closeMu.Unlock()

	al.fillDefaults(entry)
	return al.writeToBackends(ctx, entry)
}

// LogAsync 异步记录一条审计事件，队列满时丢弃
func (al *DefaultLogger) LogAsync(entry *Entry) {
	al.closeMu.Lock()
	if al.closed {
		al.closeMu.Unlock()
		al.logger.Warn("audit logger is closed, dropping entry")
		return
	}
	al.closeMu.Unlock()

	al.fillDefaults(entry)

	select {
	case al.asyncQueue <- entry:
	default:
		al.logger.Warn("audit queue full, dropping entry",
			zap.String("entry_id", entry.ID),
		)
	}
}

func (al *DefaultLogger) fillDefaults(entry *Entry) {
	if entry.ID == "" {
		entry.ID = al.idGenerator()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
}

// Query 按过滤条件查询审计记录（使用第一个后端）
func (al *DefaultLogger) Query(ctx context.Context, filter *Filter) ([]*Entry, error) {
	if len(al.backends) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}
	return al.backends[0].Query(ctx, filter)
}

// Close 关闭记录器并刷写待处理条目
func (al *DefaultLogger) Close() error {
	al.closeMu.Lock()
	if al.closed {
		al.closeMu.Unlock()
		return nil
	}
	al.closed = true
	al.closeMu.Unlock()

	close(al.asyncQueue)
	al.wg.Wait()

	var lastErr error
	for _, backend := range al.backends {
		if err := backend.Close(); err != nil {
			lastErr = err
		}
	}

	al.logger.Info("audit logger closed")
	return lastErr
}

// =============================================================================
// 💾 内存后端
// =============================================================================

// MemoryBackend 内存审计后端，用于测试与单机部署
type MemoryBackend struct {
	entries []*Entry
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryBackend 创建内存审计后端
func NewMemoryBackend(maxSize int) *MemoryBackend {
	if maxSize <= 0 {
		maxSize = 100000
	}
	return &MemoryBackend{
		entries: make([]*Entry, 0),
		maxSize: maxSize,
	}
}

// Write 写入一条审计记录，容量满时淘汰最旧的 10%
func (m *MemoryBackend) Write(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxSize {
		removeCount := m.maxSize / 10
		if removeCount < 1 {
			removeCount = 1
		}
		m.entries = m.entries[removeCount:]
	}

	m.entries = append(m.entries, entry)
	return nil
}

// Query 按过滤条件查询内存中的审计记录
func (m *MemoryBackend) Query(ctx context.Context, filter *Filter) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Entry
	for _, entry := range m.entries {
		if m.matchesFilter(entry, filter) {
			results = append(results, entry)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []*Entry{}, nil
		}
		results = results[filter.Offset:]
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

func (m *MemoryBackend) matchesFilter(entry *Entry, filter *Filter) bool {
	if filter.TenantID != "" && entry.TenantID != filter.TenantID {
		return false
	}
	if filter.UserID != "" && entry.UserID != filter.UserID {
		return false
	}
	if filter.WorkflowID != "" && entry.WorkflowID != filter.WorkflowID {
		return false
	}
	if filter.EventType != "" && entry.EventType != filter.EventType {
		return false
	}
	if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && entry.Timestamp.After(*filter.EndTime) {
		return false
	}
	return true
}

// Close 关闭内存后端
func (m *MemoryBackend) Close() error {
	return nil
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

var entryIDCounter uint64
var entryIDMu sync.Mutex

func generateEntryID() string {
	entryIDMu.Lock()
	defer entryIDMu.Unlock()
	entryIDCounter++
	return fmt.Sprintf("audit_%d_%d", time.Now().UnixNano(), entryIDCounter)
}

// LogConnectionRejected 记录一次被拒绝的连线尝试
func LogConnectionRejected(logger Logger, tenantID, workflowID, source, target, reason string) {
	logger.LogAsync(&Entry{
		EventType:  EventConnectionRejected,
		TenantID:   tenantID,
		WorkflowID: workflowID,
		Metadata: map[string]string{
			"source": source,
			"target": target,
			"reason": reason,
		},
	})
}

// LogPreflightRun 记录一次运行前检查
func LogPreflightRun(logger Logger, tenantID, workflowID string, valid bool, findings int, duration time.Duration) {
	logger.LogAsync(&Entry{
		EventType:  EventPreflightRun,
		TenantID:   tenantID,
		WorkflowID: workflowID,
		Duration:   duration,
		Metadata: map[string]string{
			"valid":    fmt.Sprintf("%t", valid),
			"findings": fmt.Sprintf("%d", findings),
		},
	})
}

// LogFlowRun 记录一次流程运行
func LogFlowRun(logger Logger, tenantID, workflowID, runID, status string, duration time.Duration) {
	logger.LogAsync(&Entry{
		EventType:  EventFlowRun,
		TenantID:   tenantID,
		WorkflowID: workflowID,
		Duration:   duration,
		Metadata: map[string]string{
			"run_id": runID,
			"status": status,
		},
	})
}
