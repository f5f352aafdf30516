package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/snowflowhq/snowflow/flow"
)

// ProbeObject checks a warehouse table or view through the backend catalog
// API. Implements flow.CatalogProber.
func (c *Client) ProbeObject(ctx context.Context, database, schema, object string) (flow.ObjectStatus, error) {
	q := url.Values{}
	q.Set("database", database)
	q.Set("schema", schema)
	q.Set("object", object)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/catalog/probe")+"?"+q.Encode(), nil)
	if err != nil {
		return flow.ObjectStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return flow.ObjectStatus{}, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return flow.ObjectStatus{}, c.statusError(resp)
	}

	var wire struct {
		Exists     bool  `json:"exists"`
		Accessible bool  `json:"accessible"`
		Rows       int64 `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return flow.ObjectStatus{}, fmt.Errorf("failed to decode probe response: %w", err)
	}
	return flow.ObjectStatus{Exists: wire.Exists, Accessible: wire.Accessible, Rows: wire.Rows}, nil
}

// StageFileExists checks whether a stage file path resolves in the backend.
// Implements flow.CatalogProber.
func (c *Client) StageFileExists(ctx context.Context, stagePath string) (bool, error) {
	q := url.Values{}
	q.Set("path", stagePath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/catalog/stage")+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, c.statusError(resp)
	}

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode stage response: %w", err)
	}
	return result.Exists, nil
}
