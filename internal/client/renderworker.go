package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/narriq/api/internal/config"
	"github.com/narriq/api/internal/model"
)

// RenderWorkerClient dispatches render jobs to the external FFmpeg
// compositing worker. The worker reports progress back through the
// /api/worker callbacks.
type RenderWorkerClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRenderWorkerClient creates a client for the render worker service.
func NewRenderWorkerClient(cfg *config.RenderWorkerConfig) *RenderWorkerClient {
	return &RenderWorkerClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.URL,
	}
}

// Dispatch hands a render job to the worker. The worker acks synchronously
// and composites asynchronously.
func (c *RenderWorkerClient) Dispatch(ctx context.Context, payload *model.RenderDispatchPayload) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return statusError(resp.StatusCode, "render worker", respBody)
		}
		return nil
	})
}

// IsConfigured returns true if a worker URL is set. When false, render
// dispatch falls back to the staged mock progression.
func (c *RenderWorkerClient) IsConfigured() bool {
	return c.baseURL != ""
}
