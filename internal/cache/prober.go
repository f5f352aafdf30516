package cache

import (
	"context"
	"time"

	"github.com/snowflowhq/snowflow/flow"
)

// =============================================================================
// 🔭 目录探测缓存
// =============================================================================

// Prober 给目录探测加一层短时缓存。同一个仓库对象经常被多张图、
// 多次预检反复探测，探测结果跨图共享。
type Prober struct {
	next  flow.CatalogProber
	cache *Manager
	ttl   time.Duration
}

// NewProber 包装底层探测器；ttl <= 0 时默认 30 秒。
// 探测结果反映仓库的实时状态，TTL 刻意取短。
func NewProber(next flow.CatalogProber, cache *Manager, ttl time.Duration) *Prober {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Prober{next: next, cache: cache, ttl: ttl}
}

// ProbeObject 先查缓存，未命中时穿透到底层探测器并回填。
// 探测出错不缓存，下次重试。
func (p *Prober) ProbeObject(ctx context.Context, database, schema, object string) (flow.ObjectStatus, error) {
	key := ProbeKey(database, schema, object)

	var cached flow.ObjectStatus
	if err := p.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	}

	status, err := p.next.ProbeObject(ctx, database, schema, object)
	if err != nil {
		return status, err
	}
	_ = p.cache.SetJSON(ctx, key, status, p.ttl)
	return status, nil
}

// StageFileExists 直接穿透，stage 文件没有稳定的缓存键语义
func (p *Prober) StageFileExists(ctx context.Context, stagePath string) (bool, error) {
	return p.next.StageFileExists(ctx, stagePath)
}
