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
)

// VideoGenerator defines the interface for the long-running video API.
// Submit returns an opaque operation name; CheckOperation reports one poll's
// view of it. The polling loop itself lives with the delegate so the interval
// and budget stay independently testable.
type VideoGenerator interface {
	SubmitJob(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	CheckOperation(ctx context.Context, name string) (*OperationStatus, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// OperationStatus is one snapshot of a video generation operation.
type OperationStatus struct {
	Done     bool
	VideoURI string
	Err      error // terminal failure reported by the API
}

// VeoClient implements VideoGenerator for the Veo API.
type VeoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type veoSubmitRequest struct {
	Instances []veoInstance `json:"instances"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// NewVeoClient creates a new Veo API client.
func NewVeoClient(cfg *config.VeoConfig) *VeoClient {
	return &VeoClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// SubmitJob starts a video generation job and returns the operation name.
func (c *VeoClient) SubmitJob(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	reqBody := &veoSubmitRequest{
		Instances: []veoInstance{{
			Prompt: prompt,
		}},
	}
	if len(image) > 0 {
		reqBody.Instances[0].Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(image),
			MimeType:           mimeType,
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.model)

	var op veoOperation
	if err := c.post(ctx, endpoint, reqBody, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("no operation name in response")
	}

	log.Info().Str("operation", op.Name).Msg("video job submitted")
	return op.Name, nil
}

// CheckOperation queries the operation once.
func (c *VeoClient) CheckOperation(ctx context.Context, name string) (*OperationStatus, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, name)

	var op veoOperation
	if err := c.get(ctx, endpoint, &op); err != nil {
		return nil, err
	}

	status := &OperationStatus{Done: op.Done}
	if op.Error != nil {
		status.Err = fmt.Errorf("video generation failed (code %d): %s", op.Error.Code, op.Error.Message)
		return status, nil
	}
	if op.Done && op.Response != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) == 0 {
			status.Err = fmt.Errorf("operation done but no video samples")
			return status, nil
		}
		status.VideoURI = samples[0].Video.URI
	}
	return status, nil
}

// DownloadVideo fetches the generated video bytes.
func (c *VeoClient) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("video download error (status %d)", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *VeoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *VeoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *VeoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("veo API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *VeoClient) IsConfigured() bool {
	return c.apiKey != ""
}
