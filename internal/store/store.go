package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/internal/database"
	"github.com/snowflowhq/snowflow/types"
)

// =============================================================================
// 💾 工作流存储
// =============================================================================

// Store 工作流与模板的持久化层
type Store struct {
	db     *gorm.DB
	pool   *database.PoolManager
	logger *zap.Logger
}

// Open 按配置的驱动打开数据库并执行 AutoMigrate
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return New(db, cfg, logger)
}

// New 在已有 gorm 连接上构建存储层（测试使用内存 SQLite 注入）
func New(db *gorm.DB, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 连接池交给 PoolManager；探活由 /ready 的健康检查驱动
	poolCfg := database.DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	pool, err := database.NewPoolManager(db, poolCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init connection pool: %w", err)
	}

	if err := db.AutoMigrate(&Workflow{}, &Template{}); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	s := &Store{
		db:     db,
		pool:   pool,
		logger: logger.With(zap.String("component", "store")),
	}

	logger.Info("workflow store initialized", zap.String("driver", cfg.Driver))
	return s, nil
}

// DB 返回底层 gorm 连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PoolStats 返回连接池运行指标
func (s *Store) PoolStats() database.PoolStats {
	return s.pool.Stats()
}

// Close 关闭底层连接
func (s *Store) Close() error {
	return s.pool.Close()
}

// =============================================================================
// 🎯 工作流操作
// =============================================================================

// SaveWorkflow 保存工作流；ID 为空时生成新 ID，否则按 ID 更新
func (s *Store) SaveWorkflow(ctx context.Context, wf *Workflow) error {
	now := time.Now().UTC()
	if wf.ID == "" {
		wf.ID = "wf-" + uuid.NewString()[:8]
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now

	err := s.db.WithContext(ctx).Save(wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.NewError(types.ErrWorkflowConflict,
				fmt.Sprintf("workflow named %q already exists", wf.Name))
		}
		s.logger.Error("save workflow failed", zap.String("id", wf.ID), zap.Error(err))
		return types.NewError(types.ErrStoreError, "failed to save workflow").WithCause(err)
	}

	s.logger.Debug("workflow saved",
		zap.String("id", wf.ID),
		zap.String("tenant", wf.TenantID),
		zap.String("name", wf.Name),
	)
	return nil
}

// GetWorkflow 按租户与 ID 加载工作流
func (s *Store) GetWorkflow(ctx context.Context, tenantID, id string) (*Workflow, error) {
	var wf Workflow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrWorkflowNotFound,
				fmt.Sprintf("workflow %s not found", id))
		}
		return nil, types.NewError(types.ErrStoreError, "failed to load workflow").WithCause(err)
	}
	return &wf, nil
}

// ListWorkflows 列出租户的全部工作流，按更新时间倒序
func (s *Store) ListWorkflows(ctx context.Context, tenantID string) ([]Workflow, error) {
	var workflows []Workflow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&workflows).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreError, "failed to list workflows").WithCause(err)
	}
	return workflows, nil
}

// DeleteWorkflow 软删除工作流
func (s *Store) DeleteWorkflow(ctx context.Context, tenantID, id string) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&Workflow{})
	if result.Error != nil {
		return types.NewError(types.ErrStoreError, "failed to delete workflow").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.ErrWorkflowNotFound,
			fmt.Sprintf("workflow %s not found", id))
	}

	s.logger.Debug("workflow deleted", zap.String("id", id), zap.String("tenant", tenantID))
	return nil
}

// =============================================================================
// 📋 模板操作
// =============================================================================

// SaveTemplate 保存模板（按 Name 幂等）
func (s *Store) SaveTemplate(ctx context.Context, tpl *Template) error {
	now := time.Now().UTC()
	if tpl.ID == "" {
		tpl.ID = "tpl-" + uuid.NewString()[:8]
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return types.NewError(types.ErrStoreError, "failed to save template").WithCause(err)
	}
	return nil
}

// GetTemplate 按 ID 加载模板
func (s *Store) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var tpl Template
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrTemplateNotFound,
				fmt.Sprintf("template %s not found", id))
		}
		return nil, types.NewError(types.ErrStoreError, "failed to load template").WithCause(err)
	}
	return &tpl, nil
}

// ListTemplates 列出模板，可按分类过滤
func (s *Store) ListTemplates(ctx context.Context, category string) ([]Template, error) {
	q := s.db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var templates []Template
	if err := q.Order("name ASC").Find(&templates).Error; err != nil {
		return nil, types.NewError(types.ErrStoreError, "failed to list templates").WithCause(err)
	}
	return templates, nil
}

// SeedTemplates 在单个事务内写入缺失的预置模板（已存在的按名称跳过）
func (s *Store) SeedTemplates(ctx context.Context, templates []Template) error {
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i := range templates {
			tpl := &templates[i]

			var count int64
			if err := tx.Model(&Template{}).
				Where("name = ?", tpl.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			if tpl.ID == "" {
				tpl.ID = "tpl-" + uuid.NewString()[:8]
				tpl.CreatedAt = now
			}
			tpl.UpdatedAt = now
			if err := tx.Save(tpl).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.NewError(types.ErrStoreError, "failed to seed templates").WithCause(err)
	}
	return nil
}
