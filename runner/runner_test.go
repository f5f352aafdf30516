package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/types"
)

func testClient(t *testing.T, backendURL string) *Client {
	t.Helper()
	return NewClient(config.BackendConfig{
		BaseURL:    backendURL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		AuthToken:  "test-token",
	}, zaptest.NewLogger(t))
}

func testRunRequest() *RunRequest {
	return &RunRequest{
		Definition: &flow.Definition{
			Name: "test-flow",
			Nodes: []flow.Node{
				{ID: "src", Category: flow.CategorySource},
			},
		},
		Prompt:   "total revenue by region",
		TenantID: "acme",
	}
}

func TestClient_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/run", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-flow", req.Definition.Name)

		json.NewEncoder(w).Encode(RunResult{RunID: "run-1", Status: "completed"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	result, err := c.Run(context.Background(), testRunRequest())
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "completed", result.Status)
}

func TestClient_RunRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(RunResult{RunID: "run-2", Status: "completed"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	result, err := c.Run(context.Background(), testRunRequest())
	require.NoError(t, err)
	assert.Equal(t, "run-2", result.RunID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RunDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid graph"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Run(context.Background(), testRunRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "invalid graph")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RunExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Run(context.Background(), testRunRequest())
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
	// MaxRetries=2 means three attempts total
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "data: {\"run_id\":\"run-3\",\"type\":\"node_completed\",\"node_id\":\"n%d\"}\n\n", i)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	events, err := c.Stream(context.Background(), testRunRequest())
	require.NoError(t, err)

	var got []Event
	for ev := range events {
		require.NoError(t, ev.Err)
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "run-3", got[0].RunID)
	assert.Equal(t, "node_completed", got[0].Type)
	assert.Equal(t, "n2", got[2].NodeID)
}

func TestClient_StreamSkipsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"run_completed\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	events, err := c.Stream(context.Background(), testRunRequest())
	require.NoError(t, err)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "run_completed", got[0].Type)
}

func TestClient_StreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Stream(context.Background(), testRunRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrBackendUnavailable, types.GetErrorCode(err))
}

func TestClient_StreamContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"node_started\"}\n\n")
		flusher.Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := testClient(t, srv.URL)
	events, err := c.Stream(ctx, testRunRequest())
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "node_started", ev.Type)

	cancel()
	for range events {
	}
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_PingUnreachable(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:1")
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrBackendUnavailable, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestClient_ProbeObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog/probe", r.URL.Path)
		assert.Equal(t, "SALES", r.URL.Query().Get("database"))
		assert.Equal(t, "PUBLIC", r.URL.Query().Get("schema"))
		assert.Equal(t, "ORDERS", r.URL.Query().Get("object"))

		json.NewEncoder(w).Encode(map[string]any{
			"exists": true, "accessible": true, "rows": 1200,
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	status, err := c.ProbeObject(context.Background(), "SALES", "PUBLIC", "ORDERS")
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Accessible)
	assert.Equal(t, int64(1200), status.Rows)
}

func TestClient_StageFileExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog/stage", r.URL.Path)
		assert.Equal(t, "@stage/models/sales.yaml", r.URL.Query().Get("path"))
		json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	exists, err := c.StageFileExists(context.Background(), "@stage/models/sales.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}

// Compile-time check: the client satisfies the preflight prober contract.
var _ flow.CatalogProber = (*Client)(nil)
