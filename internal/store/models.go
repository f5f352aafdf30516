package store

import (
	"time"

	"gorm.io/gorm"
)

// =============================================================================
// 🗄️ 数据模型
// =============================================================================

// Workflow 已保存的工作流定义（definition 字段为画布 JSON）
type Workflow struct {
	ID          string         `gorm:"primaryKey;size:64" json:"id"`
	TenantID    string         `gorm:"size:128;index:idx_workflows_tenant;uniqueIndex:idx_workflows_tenant_name" json:"tenant_id"`
	Name        string         `gorm:"size:255;not null;uniqueIndex:idx_workflows_tenant_name" json:"name"`
	Description string         `json:"description"`
	Version     string         `gorm:"size:32;default:1" json:"version"`
	Definition  []byte         `gorm:"not null" json:"definition"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Template 预置流程模板
type Template struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string    `json:"description"`
	Category    string    `gorm:"size:64;default:general;index" json:"category"`
	Shape       string    `gorm:"size:32;default:single" json:"shape"`
	Definition  []byte    `gorm:"not null" json:"definition"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
