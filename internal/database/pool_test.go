package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// =============================================================================
// 🧪 连接池测试
// =============================================================================

func newMockPool(t *testing.T, cfg PoolConfig) (*PoolManager, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	pm, err := NewPoolManager(gormDB, cfg, zap.NewNop())
	require.NoError(t, err)
	return pm, mock
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultPoolConfig(), zap.NewNop())
	require.Error(t, err)
}

func TestNewPoolManager_AppliesLimits(t *testing.T) {
	pm, _ := newMockPool(t, PoolConfig{
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
	})

	// MaxOpenConnections 是唯一能从 sql.DBStats 读回的池参数
	assert.Equal(t, 3, pm.Stats().MaxOpenConnections)
}

func TestPoolManager_Ping(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectPing()
	require.NoError(t, pm.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_PingFailure(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.Error(t, pm.Ping(context.Background()))
}

func TestPoolManager_PingAfterClose(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectClose()
	require.NoError(t, pm.Close())

	err := pm.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestPoolManager_CloseIdempotent(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectClose()
	require.NoError(t, pm.Close())
	require.NoError(t, pm.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

// 模板种子写入走 WithTransaction：回调成功则提交。
func TestPoolManager_WithTransactionCommits(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO templates").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO templates (id) VALUES (?)", "tpl-1").Error
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 回调返回错误时整个事务回滚，半写入的种子不落库。
func TestPoolManager_WithTransactionRollsBack(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionAfterClose(t *testing.T) {
	pm, mock := newMockPool(t, DefaultPoolConfig())

	mock.ExpectClose()
	require.NoError(t, pm.Close())

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.LessOrEqual(t, cfg.MaxIdleConns, cfg.MaxOpenConns)
}
