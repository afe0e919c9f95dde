// Package search provides an HTTP client for the search index destination.
// The wire contract is a minimal REST surface (ensure index, bulk upsert)
// shared by the search providers this system deploys against.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Client implements loader.SearchIndex over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a search client for the configured endpoint.
func NewClient(cfg config.SearchConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

var _ loader.SearchIndex = (*Client)(nil)

type indexPayload struct {
	Name     string                 `json:"name"`
	Semantic map[string]interface{} `json:"semantic,omitempty"`
}

type documentPayload struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"embedding,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EnsureIndex creates the index if absent. An already-existing index is not an
// error.
func (c *Client) EnsureIndex(ctx context.Context, indexName string, semantic map[string]interface{}) error {
	body, err := json.Marshal(indexPayload{Name: indexName, Semantic: semantic})
	if err != nil {
		return fmt.Errorf("failed to marshal index payload: %w", err)
	}
	status, err := c.do(ctx, http.MethodPut, "/indexes/"+url.PathEscape(indexName), body)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return nil
	}
	logger.Debugf("search index %q ensured (status %d)", indexName, status)
	return nil
}

// BulkUpsert writes the documents in one request.
func (c *Client) BulkUpsert(ctx context.Context, indexName string, docs []loader.Document) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]documentPayload, 0, len(docs))
	for _, d := range docs {
		payload = append(payload, documentPayload{
			ID:        d.ID,
			Content:   d.Content,
			Embedding: d.Embedding,
			Metadata:  d.Metadata,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal bulk payload: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/indexes/"+url.PathEscape(indexName)+"/documents/bulk", body); err != nil {
		return err
	}
	return nil
}

// do performs one request and returns the status code. Non-2xx responses other
// than 409 are errors carrying the response body.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, error) {
	if c.endpoint == "" {
		return 0, fmt.Errorf("search endpoint is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("search request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		return resp.StatusCode, nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, fmt.Errorf("search request %s %s returned %d: %s",
		method, path, resp.StatusCode, string(detail))
}
