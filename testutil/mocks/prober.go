// =============================================================================
// 🧪 目录探测器 Mock
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/snowflowhq/snowflow/flow"
)

// Prober 是 flow.CatalogProber 的脚本化实现。
// 按 "DATABASE.SCHEMA.OBJECT" 全名登记对象状态，按 stage 路径登记文件；
// 未登记的对象返回零值状态（不存在）。支持 Builder 模式与错误注入。
type Prober struct {
	mu         sync.Mutex
	objects    map[string]flow.ObjectStatus
	files      map[string]bool
	probeErr   error
	stageErr   error
	probeCalls []string
	stageCalls []string
}

var _ flow.CatalogProber = (*Prober)(nil)

// NewProber 创建空的探测器 Mock
func NewProber() *Prober {
	return &Prober{
		objects: make(map[string]flow.ObjectStatus),
		files:   make(map[string]bool),
	}
}

// WithObject 登记一个目录对象，fullName 形如 "SALES.PUBLIC.ORDERS"
func (p *Prober) WithObject(fullName string, status flow.ObjectStatus) *Prober {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[fullName] = status
	return p
}

// WithStageFile 登记一个 stage 文件
func (p *Prober) WithStageFile(path string) *Prober {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[path] = true
	return p
}

// WithProbeError 注入对象探测错误
func (p *Prober) WithProbeError(err error) *Prober {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probeErr = err
	return p
}

// WithStageError 注入 stage 文件探测错误
func (p *Prober) WithStageError(err error) *Prober {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stageErr = err
	return p
}

// ProbeObject 实现 flow.CatalogProber
func (p *Prober) ProbeObject(_ context.Context, database, schema, object string) (flow.ObjectStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fullName := fmt.Sprintf("%s.%s.%s", database, schema, object)
	p.probeCalls = append(p.probeCalls, fullName)
	if p.probeErr != nil {
		return flow.ObjectStatus{}, p.probeErr
	}
	return p.objects[fullName], nil
}

// StageFileExists 实现 flow.CatalogProber
func (p *Prober) StageFileExists(_ context.Context, stagePath string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stageCalls = append(p.stageCalls, stagePath)
	if p.stageErr != nil {
		return false, p.stageErr
	}
	return p.files[stagePath], nil
}

// ProbeCalls 返回按序记录的对象探测全名
func (p *Prober) ProbeCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probeCalls...)
}

// StageCalls 返回按序记录的 stage 探测路径
func (p *Prober) StageCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stageCalls...)
}
