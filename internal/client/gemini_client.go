package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
)

// ContentGenerator defines the interface for Gemini content generation.
type ContentGenerator interface {
	GenerateText(ctx context.Context, modelName, prompt string) (string, error)
	GenerateStructured(ctx context.Context, modelName, prompt string, schema json.RawMessage) (json.RawMessage, error)
	GenerateImage(ctx context.Context, modelName, prompt string, image []byte, mimeType string) (*ImageResult, error)
}

// GeminiClient handles communication with the Gemini API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ImageResult is one generated image plus any accompanying text.
type ImageResult struct {
	Data     []byte
	MimeType string
	Text     string
}

// Request/response shapes for the generateContent endpoint.

type generatePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *generateBlobPart `json:"inline_data,omitempty"`
}

type generateBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"response_mime_type,omitempty"`
	ResponseSchema   json.RawMessage `json:"response_schema,omitempty"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateText runs a plain text completion.
func (c *GeminiClient) GenerateText(ctx context.Context, modelName, prompt string) (string, error) {
	req := &generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}

	resp, err := c.generate(ctx, modelName, req)
	if err != nil {
		return "", err
	}

	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("no text in response")
	}
	return text, nil
}

// GenerateStructured runs a schema-constrained completion and returns the raw
// JSON payload. Callers are responsible for decoding and validating it.
func (c *GeminiClient) GenerateStructured(ctx context.Context, modelName, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	req := &generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	resp, err := c.generate(ctx, modelName, req)
	if err != nil {
		return nil, err
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("no structured payload in response")
	}
	return json.RawMessage(text), nil
}

// GenerateImage runs a multimodal call against an image model and returns the
// single generated image, classifying failures for the retry policy.
func (c *GeminiClient) GenerateImage(ctx context.Context, modelName, prompt string, image []byte, mimeType string) (*ImageResult, error) {
	parts := []generatePart{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, generatePart{InlineData: &generateBlobPart{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}})
	}

	req := &generateRequest{Contents: []generateContent{{Parts: parts}}}

	resp, err := c.generate(ctx, modelName, req)
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &model.ImageGenerationError{
			Kind: model.ImageFailureContentRejected,
			Err:  fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}

	result := &ImageResult{Text: firstText(resp)}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, &model.ImageGenerationError{
						Kind: model.ImageFailureUnknown,
						Err:  fmt.Errorf("invalid inline image data: %w", err),
					}
				}
				result.Data = data
				result.MimeType = p.InlineData.MimeType
				return result, nil
			}
		}
	}

	return nil, &model.ImageGenerationError{
		Kind: model.ImageFailureTransient,
		Err:  fmt.Errorf("no image in response"),
	}
}

func (c *GeminiClient) generate(ctx context.Context, modelName string, body *generateRequest) (*generateResponse, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, modelName)

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	log.Debug().Str("model", modelName).Msg("gemini request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.ImageGenerationError{Kind: model.ImageFailureTransient, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ImageGenerationError{Kind: model.ImageFailureTransient, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("model", modelName).Msg("gemini error response")
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// classifyStatus maps HTTP failures to the retry taxonomy: rate limits and
// 5xx are retryable, everything else is not.
func classifyStatus(status int, body []byte) error {
	apiErr := fmt.Errorf("gemini API error (status %d): %s", status, string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return &model.ImageGenerationError{Kind: model.ImageFailureRateLimited, Err: apiErr}
	case status >= 500:
		return &model.ImageGenerationError{Kind: model.ImageFailureTransient, Err: apiErr}
	case status == http.StatusBadRequest:
		return &model.ImageGenerationError{Kind: model.ImageFailureContentRejected, Err: apiErr}
	default:
		return &model.ImageGenerationError{Kind: model.ImageFailureUnknown, Err: apiErr}
	}
}

func firstText(resp *generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// IsConfigured returns true if the client has valid configuration.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}
