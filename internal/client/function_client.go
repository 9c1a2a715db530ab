package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
)

// FunctionClient calls the standalone video generation function over HTTP.
// The function owns its own polling budget, so the request here runs long.
type FunctionClient struct {
	httpClient *http.Client
	url        string
}

// NewFunctionClient creates a new video function client.
func NewFunctionClient(cfg *config.FunctionConfig) *FunctionClient {
	return &FunctionClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		url: cfg.URL,
	}
}

// GenerateVideo asks the function to produce one step video and write it to
// the given target path. On success the returned response carries the public
// video URL.
func (c *FunctionClient) GenerateVideo(ctx context.Context, req *model.VideoFunctionRequest) (*model.VideoFunctionResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Info().
		Int("step", req.StepNumber).
		Str("target", req.TargetPath).
		Msg("dispatching video function")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call video function: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Terminal failures come back as JSON with a failed status; only an
	// unparseable reply is a transport error worth retrying.
	var fnResp model.VideoFunctionResponse
	if err := json.Unmarshal(respBody, &fnResp); err != nil || fnResp.Status == "" {
		return nil, fmt.Errorf("video function error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return &fnResp, nil
}

// IsConfigured returns true if a function URL is set.
func (c *FunctionClient) IsConfigured() bool {
	return c.url != ""
}
