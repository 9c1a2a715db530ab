package videogen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
)

// State is one phase of a video generation run.
type State string

const (
	StateReceived     State = "received"
	StateJobSubmitted State = "job_submitted"
	StatePolling      State = "polling"
	StateDone         State = "done"
	StateFailed       State = "failed"
	StateTimedOut     State = "timed_out"
)

// Result reports how a run ended. VideoURL is set only in StateDone, and the
// target object is written only in StateDone; a timed out or failed run
// leaves no partial object behind.
type Result struct {
	State    State
	VideoURL string
	Duration time.Duration
	Err      error
}

// Delegate owns one video generation run end to end: submit, poll on a fixed
// interval within a wall-clock budget, then write the finished video to the
// exact target key the caller named.
type Delegate struct {
	video      client.VideoGenerator
	storage    client.StorageClient
	httpClient *http.Client
	interval   time.Duration
	budget     time.Duration
}

func NewDelegate(video client.VideoGenerator, storage client.StorageClient, interval, budget time.Duration) *Delegate {
	return &Delegate{
		video:      video,
		storage:    storage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		interval:   interval,
		budget:     budget,
	}
}

// Generate runs the state machine for one request. It is idempotent on the
// target path: if the object already exists the run short-circuits to Done
// without re-submitting a job.
func (d *Delegate) Generate(ctx context.Context, req *model.VideoFunctionRequest) *Result {
	start := time.Now()
	d.transition(req.TargetPath, StateReceived)

	exists, err := d.storage.Exists(ctx, req.TargetPath)
	if err == nil && exists {
		return &Result{
			State:    StateDone,
			VideoURL: d.storage.GetPublicURL(req.TargetPath),
			Duration: time.Since(start),
		}
	}

	image, mimeType, err := d.fetchImage(ctx, req.ImageURL)
	if err != nil {
		return &Result{State: StateFailed, Duration: time.Since(start), Err: err}
	}

	operation, err := d.video.SubmitJob(ctx, req.Prompt, image, mimeType)
	if err != nil {
		return &Result{State: StateFailed, Duration: time.Since(start), Err: err}
	}
	d.transition(req.TargetPath, StateJobSubmitted)

	log.Info().
		Str("operation", operation).
		Str("target", req.TargetPath).
		Msg("polling video operation")

	d.transition(req.TargetPath, StatePolling)
	deadline := time.After(d.budget)
	for {

		select {
		case <-ctx.Done():
			return &Result{State: StateFailed, Duration: time.Since(start), Err: ctx.Err()}
		case <-deadline:
			return &Result{
				State:    StateTimedOut,
				Duration: time.Since(start),
				Err:      &model.VideoGenerationError{TimedOut: true, Err: fmt.Errorf("budget of %s exhausted", d.budget)},
			}
		case <-time.After(d.interval):
		}

		status, err := d.video.CheckOperation(ctx, operation)
		if err != nil {
			// Poll errors are transient until the budget says otherwise.
			log.Warn().Err(err).Str("operation", operation).Msg("operation poll failed")
			continue
		}
		if !status.Done {
			continue
		}
		if status.Err != nil {
			return &Result{
				State:    StateFailed,
				Duration: time.Since(start),
				Err:      &model.VideoGenerationError{Err: status.Err},
			}
		}

		videoURL, err := d.store(ctx, status.VideoURI, req.TargetPath)
		if err != nil {
			return &Result{State: StateFailed, Duration: time.Since(start), Err: err}
		}

		return &Result{
			State:    StateDone,
			VideoURL: videoURL,
			Duration: time.Since(start),
		}
	}
}

func (d *Delegate) transition(target string, state State) {
	log.Debug().Str("target", target).Str("state", string(state)).Msg("delegate state")
}

func (d *Delegate) store(ctx context.Context, videoURI, targetPath string) (string, error) {
	video, err := d.video.DownloadVideo(ctx, videoURI)
	if err != nil {
		return "", err
	}
	return d.storage.Upload(ctx, targetPath, bytes.NewReader(video), "video/mp4")
}

func (d *Delegate) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image URL: %w", err)
	}
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("source image fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
