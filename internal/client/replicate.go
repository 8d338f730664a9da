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

// ReplicateClient generates scene images via SDXL. It is the preferred image
// provider; the pipeline falls back to DALL-E when it is not configured.
type ReplicateClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	modelName  string
}

type predictionInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumOutputs     int    `json:"num_outputs"`
}

type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

type predictionResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// SDXL input dimensions must be multiples of 8.
var sdxlSizes = map[model.AspectRatio][2]int{
	model.AspectLandscape: {1344, 768},
	model.AspectPortrait:  {768, 1344},
	model.AspectSquare:    {1024, 1024},
}

// NewReplicateClient creates a new Replicate API client.
func NewReplicateClient(cfg *config.ReplicateConfig) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiToken:  cfg.APIToken,
		modelName: cfg.Model,
	}
}

// GenerateImage creates one SDXL prediction and polls it to completion,
// returning the output image URL.
func (c *ReplicateClient) GenerateImage(ctx context.Context, prompt string, ratio model.AspectRatio) (string, error) {
	size, ok := sdxlSizes[ratio]
	if !ok {
		size = [2]int{1024, 1024}
	}
	reqBody := predictionRequest{
		Input: predictionInput{
			Prompt:         prompt,
			NegativePrompt: "text, watermark, low quality, blurry, distorted",
			Width:          size[0],
			Height:         size[1],
			NumOutputs:     1,
		},
	}
	bodyBytes, err := json.Marshal(&reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, c.modelName)

	var pred predictionResponse
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return statusError(resp.StatusCode, "replicate", data)
		}
		if err := json.Unmarshal(data, &pred); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return c.pollPrediction(ctx, &pred)
}

func (c *ReplicateClient) pollPrediction(ctx context.Context, pred *predictionResponse) (string, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		switch pred.Status {
		case "succeeded":
			if len(pred.Output) == 0 {
				return "", fmt.Errorf("prediction succeeded without output")
			}
			return pred.Output[0], nil
		case "failed", "canceled":
			return "", fmt.Errorf("prediction %s: %s", pred.Status, pred.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		next, err := c.getPrediction(ctx, pred.URLs.Get)
		if err != nil {
			return "", err
		}
		pred = next
	}
}

func (c *ReplicateClient) getPrediction(ctx context.Context, url string) (*predictionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replicate poll error (status %d): %s", resp.StatusCode, string(data))
	}
	var pred predictionResponse
	if err := json.Unmarshal(data, &pred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &pred, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *ReplicateClient) IsConfigured() bool {
	return c.apiToken != ""
}
