package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/types"
)

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := SecurityHeaders()(inner)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_ChainedWithOtherMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	handler := Chain(inner, SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	// SecurityHeaders should be present
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	// RequestID should also be present
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_PreservesClientProvidedID(t *testing.T) {
	var ctxID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	})

	handler := RequestID()(inner)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-from-client")
	handler.ServeHTTP(w, r)

	assert.Equal(t, "req-from-client", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-from-client", ctxID)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/flows", "/api/v1/flows"},
		{"/api/v1/flows/annotate", "/api/v1/flows/annotate"},
		{"/api/v1/flows/validate-connection", "/api/v1/flows/validate-connection"},
		{"/api/v1/flows/a1b2c3d4e5f6", "/api/v1/flows/:id"},
		{"/api/v1/flows/12345", "/api/v1/flows/:id"},
		{"/api/v1/templates/tpl-quick-query", "/api/v1/templates/tpl-quick-query"},
		{"/health", "/health"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizePath(tc.path), "path %s", tc.path)
	}
}

// =============================================================================
// 🛡️ 认证中间件测试
// =============================================================================

func authedHandler(t *testing.T, cfg config.AuthConfig) (http.Handler, *http.Request) {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler := Auth(cfg, []string{"/health"}, zaptest.NewLogger(t))(inner)
	return handler, httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
}

func TestAuth_ValidAPIKey(t *testing.T) {
	handler, r := authedHandler(t, config.AuthConfig{Enabled: true, APIKeys: []string{"sk-test"}})
	r.Header.Set("X-API-Key", "sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_InvalidAPIKey(t *testing.T) {
	handler, r := authedHandler(t, config.AuthConfig{Enabled: true, APIKeys: []string{"sk-test"}})
	r.Header.Set("X-API-Key", "sk-wrong")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHENTICATION")
}

func TestAuth_MissingCredentials(t *testing.T) {
	handler, r := authedHandler(t, config.AuthConfig{Enabled: true, APIKeys: []string{"sk-test"}})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_SkipPathBypassesAuth(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler := Auth(config.AuthConfig{Enabled: true, APIKeys: []string{"sk-test"}}, []string{"/health"}, zaptest.NewLogger(t))(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_ValidJWTInjectsIdentity(t *testing.T) {
	const secret = "unit-test-secret"

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": "acme",
		"user_id":   "u-42",
		"roles":     []string{"editor"},
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	var gotTenant, gotUser string
	var gotRoles []string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = types.TenantID(r.Context())
		gotUser, _ = types.UserID(r.Context())
		gotRoles, _ = types.Roles(r.Context())
		w.Write([]byte("ok"))
	})
	handler := Auth(config.AuthConfig{Enabled: true, JWTSecret: secret}, nil, zaptest.NewLogger(t))(inner)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme", gotTenant)
	assert.Equal(t, "u-42", gotUser)
	assert.Equal(t, []string{"editor"}, gotRoles)
}

func TestAuth_ExpiredJWTRejected(t *testing.T) {
	const secret = "unit-test-secret"

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": "acme",
		"exp":       time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	handler, r := authedHandler(t, config.AuthConfig{Enabled: true, JWTSecret: secret})
	r.Header.Set("Authorization", "Bearer "+signed)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
}

func TestAuth_WrongSigningKeyRejected(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": "acme",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	handler, r := authedHandler(t, config.AuthConfig{Enabled: true, JWTSecret: "unit-test-secret"})
	r.Header.Set("Authorization", "Bearer "+signed)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
