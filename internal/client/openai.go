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

// OpenAIClient handles chat completions, moderation, DALL-E image generation
// and speech synthesis.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	chatModel  string
	ttsModel   string
	ttsVoice   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// ModerationVerdict is the distilled moderation outcome for one text input.
type ModerationVerdict struct {
	Flagged    bool
	Categories map[string]bool
	Scores     map[string]float64
}

type imageGenerationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		chatModel: cfg.ChatModel,
		ttsModel:  cfg.TTSModel,
		ttsVoice:  cfg.TTSVoice,
	}
}

// ChatCompletionJSON sends a JSON-mode chat completion and returns the raw
// JSON content of the first choice.
func (c *OpenAIClient) ChatCompletionJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	req := chatCompletionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return c.chatCompletion(ctx, &req)
}

// ChatCompletionVision sends a text + image message and returns the JSON
// content of the first choice.
func (c *OpenAIClient) ChatCompletionVision(ctx context.Context, system, text, imageURL string) (string, error) {
	req := chatCompletionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: text},
				{Type: "image_url", ImageURL: &imageURLPart{URL: imageURL}},
			}},
		},
		MaxTokens:      1000,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return c.chatCompletion(ctx, &req)
}

func (c *OpenAIClient) chatCompletion(ctx context.Context, reqBody *chatCompletionRequest) (string, error) {
	var chatResp chatCompletionResponse
	if err := c.postJSON(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Moderate checks text against the moderation endpoint.
func (c *OpenAIClient) Moderate(ctx context.Context, input string) (*ModerationVerdict, error) {
	var resp moderationResponse
	if err := c.postJSON(ctx, "/moderations", &moderationRequest{Input: input}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no moderation result")
	}
	r := resp.Results[0]
	return &ModerationVerdict{
		Flagged:    r.Flagged,
		Categories: r.Categories,
		Scores:     r.CategoryScores,
	}, nil
}

var dalleSizes = map[model.AspectRatio]string{
	model.AspectLandscape: "1792x1024",
	model.AspectPortrait:  "1024x1792",
	model.AspectSquare:    "1024x1024",
}

// GenerateImage creates one DALL-E 3 image and returns its URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string, ratio model.AspectRatio) (string, error) {
	size, ok := dalleSizes[ratio]
	if !ok {
		size = "1024x1024"
	}
	req := imageGenerationRequest{
		Model:   "dall-e-3",
		Prompt:  prompt,
		N:       1,
		Size:    size,
		Quality: "standard",
	}
	var resp imageGenerationResponse
	if err := c.postJSON(ctx, "/images/generations", &req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("no image in response")
	}
	return resp.Data[0].URL, nil
}

// Synthesize converts text to MP3 audio.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := speechRequest{
		Model:          c.ttsModel,
		Voice:          c.ttsVoice,
		Input:          text,
		ResponseFormat: "mp3",
	}
	bodyBytes, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var audio []byte
	err = c.withRetry(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode != http.StatusOK {
			return statusError(resp.StatusCode, "openai speech", data)
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *OpenAIClient) postJSON(ctx context.Context, endpoint string, body, result any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode != http.StatusOK {
			return statusError(resp.StatusCode, "openai API", respBody)
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
}

func (c *OpenAIClient) withRetry(ctx context.Context, fn retry.RetryFunc) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, fn)
}

// statusError maps non-2xx responses to errors, retryable on 429 and 5xx.
func statusError(status int, who string, body []byte) error {
	err := fmt.Errorf("%s error (status %d): %s", who, status, string(body))
	if status == http.StatusTooManyRequests || status >= 500 {
		return retry.RetryableError(err)
	}
	return err
}

// IsConfigured returns true if the client has valid configuration.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
