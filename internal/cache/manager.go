package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 注解与预检结果缓存
// =============================================================================

// Config Redis 缓存参数。缓存是性能优化，不是正确性依赖：
// 连不上 Redis 时服务照常启动，只是不缓存。
type Config struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	DefaultTTL   time.Duration `yaml:"default_ttl" json:"default_ttl"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// Manager 封装 Redis 客户端。注解、预检与探活结果按图内容寻址，
// 同一张图的重复请求命中缓存。
type Manager struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewManager 建立 Redis 连接并立即探活；连不上直接报错，
// 由调用方决定是否降级为无缓存运行
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Addr, err)
	}

	m := &Manager{
		redis:      client,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger.With(zap.String("component", "cache")),
	}
	m.logger.Info("annotation cache connected",
		zap.String("addr", cfg.Addr),
		zap.Duration("default_ttl", cfg.DefaultTTL),
	)
	return m, nil
}

// Get 读取字符串值；键不存在返回 redis.Nil 错误
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	return m.redis.Get(ctx, key).Result()
}

// Set 写入字符串值；ttl <= 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	return m.redis.Set(ctx, key, value, ttl).Err()
}

// Delete 删除键，键不存在不算错误
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.redis.Del(ctx, key).Err()
}

// GetJSON 读取并反序列化缓存的响应对象
func (m *Manager) GetJSON(ctx context.Context, key string, out any) error {
	raw, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return nil
}

// SetJSON 序列化并写入响应对象
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	return m.Set(ctx, key, string(raw), ttl)
}

// Ping 探活，/ready 的 redis 检查走这里
func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (m *Manager) Close() error {
	return m.redis.Close()
}

// =============================================================================
// 🔑 缓存键
// =============================================================================

// 所有键带 snowflow: 前缀，与同一个 Redis 上的其它服务隔离。
// 注解与预检结果按图内容的摘要寻址：图不变键不变。

func digest(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// AnnotationKey 边注解结果的键，按图 JSON 内容寻址
func AnnotationKey(graphJSON []byte) string {
	return "snowflow:annotate:" + digest(graphJSON)
}

// PreflightKey 预检结果的键；提示词影响 token 预算检查，参与摘要
func PreflightKey(graphJSON []byte, prompt string) string {
	return "snowflow:preflight:" + digest(graphJSON, []byte(prompt))
}

// ProbeKey 目录探测结果的键，按完全限定对象名
func ProbeKey(database, schema, object string) string {
	return fmt.Sprintf("snowflow:probe:%s.%s.%s", database, schema, object)
}

// WorkflowKey 已保存工作流的键
func WorkflowKey(tenantID, workflowID string) string {
	return fmt.Sprintf("snowflow:workflow:%s:%s", tenantID, workflowID)
}
