package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/internal/store"
)

// =============================================================================
// 🧪 探针测试
// =============================================================================

func readyReport(t *testing.T, h *HealthHandler) (int, ProbeReport) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.HandleReady(rec, req)

	var report ProbeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestHandleHealth_AlwaysHealthy(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestHandleReady_NoChecksRegistered(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))

	code, report := readyReport(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Empty(t, report.Checks)
}

// 启动时注册的就是 store.Ping：用真实的内存库走一遍就绪链路。
func TestHandleReady_DatabaseCheckAgainstRealStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	s, err := store.New(db, config.DefaultDatabaseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := NewHealthHandler(zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("database", s.Ping))

	code, report := readyReport(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "pass", report.Checks["database"].Status)
	assert.NotEmpty(t, report.Checks["database"].Latency)
}

// 关掉 store 后数据库检查失败，/ready 必须翻到 503。
func TestHandleReady_ClosedStoreReportsUnhealthy(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	s, err := store.New(db, config.DefaultDatabaseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	h := NewHealthHandler(zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("database", s.Ping))

	code, report := readyReport(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "fail", report.Checks["database"].Status)
	assert.NotEmpty(t, report.Checks["database"].Message)
}

// 一项依赖挂掉不掩盖其它项的结果。
func TestHandleReady_MixedChecks(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("database", func(ctx context.Context) error { return nil }))
	h.RegisterCheck(NewPingCheck("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	code, report := readyReport(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "pass", report.Checks["database"].Status)
	assert.Equal(t, "fail", report.Checks["redis"].Status)
	assert.Contains(t, report.Checks["redis"].Message, "connection refused")
}

func TestHandleVersion(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	h.HandleVersion("1.2.3", "2026-08-30", "abc1234")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"1.2.3"`)
	assert.Contains(t, rec.Body.String(), `"abc1234"`)
}
