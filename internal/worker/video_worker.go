package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
	"github.com/ejanapp/api/internal/videogen"
	"github.com/ejanapp/api/internal/websocket"
)

// mockVideo stands in for generated output when no video backend is
// configured so the demo flow still reaches the completed state.
var mockVideo = []byte("\x00\x00\x00\x18ftypmp42")

// VideoWorker consumes video work items. Each item produces exactly one
// object at its target key, or a terminal failure marker next to it.
type VideoWorker struct {
	functionClient *client.FunctionClient
	delegate       *videogen.Delegate
	storage        client.StorageClient
	tutorials      repository.TutorialRepository
	hub            *websocket.Hub
}

func NewVideoWorker(
	functionClient *client.FunctionClient,
	delegate *videogen.Delegate,
	storage client.StorageClient,
	tutorials repository.TutorialRepository,
	hub *websocket.Hub,
) *VideoWorker {
	return &VideoWorker{
		functionClient: functionClient,
		delegate:       delegate,
		storage:        storage,
		tutorials:      tutorials,
		hub:            hub,
	}
}

// ProcessTask generates one step video. Transport errors bubble up so asynq
// retries the item; a failure reported by the video backend is terminal and
// is recorded in storage instead.
func (w *VideoWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.VideoTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal video task payload: %w", err)
	}

	log.Info().
		Str("tutorial_id", payload.TutorialID).
		Int("step", payload.StepNumber).
		Msg("starting video generation")

	// A retried delivery after a successful run is a no-op.
	exists, err := w.storage.Exists(ctx, payload.TargetKey)
	if err == nil && exists {
		w.notifySuccess(ctx, &payload)
		return nil
	}

	switch {
	case w.functionClient != nil && w.functionClient.IsConfigured():
		return w.processWithFunction(ctx, &payload)
	case w.delegate != nil:
		return w.processWithDelegate(ctx, &payload)
	default:
		return w.processWithMock(ctx, &payload)
	}
}

func (w *VideoWorker) processWithFunction(ctx context.Context, payload *model.VideoTaskPayload) error {
	req := &model.VideoFunctionRequest{
		ImageURL:   payload.ImageURL,
		Prompt:     buildVideoPrompt(payload.Instruction),
		StepNumber: payload.StepNumber,
		TargetPath: payload.TargetKey,
	}

	resp, err := w.functionClient.GenerateVideo(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status != model.VideoFunctionStatusSuccess {
		return w.failStep(ctx, payload, resp.Error)
	}

	w.notifySuccess(ctx, payload)
	return nil
}

func (w *VideoWorker) processWithDelegate(ctx context.Context, payload *model.VideoTaskPayload) error {
	req := &model.VideoFunctionRequest{
		ImageURL:   payload.ImageURL,
		Prompt:     buildVideoPrompt(payload.Instruction),
		StepNumber: payload.StepNumber,
		TargetPath: payload.TargetKey,
	}

	result := w.delegate.Generate(ctx, req)
	switch result.State {
	case videogen.StateDone:
		w.notifySuccess(ctx, payload)
		return nil
	case videogen.StateTimedOut:
		return w.failStep(ctx, payload, fmt.Sprintf("video generation timed out: %v", result.Err))
	default:
		return w.failStep(ctx, payload, fmt.Sprintf("video generation failed: %v", result.Err))
	}
}

func (w *VideoWorker) processWithMock(ctx context.Context, payload *model.VideoTaskPayload) error {
	log.Warn().
		Str("tutorial_id", payload.TutorialID).
		Int("step", payload.StepNumber).
		Msg("no video backend configured, writing mock video")

	if _, err := w.storage.Upload(ctx, payload.TargetKey, bytes.NewReader(mockVideo), "video/mp4"); err != nil {
		return err
	}
	w.notifySuccess(ctx, payload)
	return nil
}

// failStep records the terminal failure so status polling can distinguish
// "failed" from "still running", then consumes the task.
func (w *VideoWorker) failStep(ctx context.Context, payload *model.VideoTaskPayload, message string) error {
	failure := model.StepFailure{
		StepNumber: payload.StepNumber,
		Status:     "failed",
		Error:      message,
		FailedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(failure)
	if err != nil {
		return err
	}
	key := model.StepStatusKey(payload.TutorialID, payload.StepNumber)
	if _, err := w.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}

	log.Error().
		Str("tutorial_id", payload.TutorialID).
		Int("step", payload.StepNumber).
		Str("reason", message).
		Msg("step video failed")

	w.hub.Broadcast(payload.TutorialID, model.WSErrorMessage{
		Type:       model.WSMessageTypeError,
		TutorialID: payload.TutorialID,
		StepNumber: payload.StepNumber,
		Error: model.WSError{
			Code:    "VIDEO_GENERATION_FAILED",
			Message: message,
		},
	})
	return nil
}

func (w *VideoWorker) notifySuccess(ctx context.Context, payload *model.VideoTaskPayload) {
	progress, complete := w.computeProgress(ctx, payload.TutorialID)

	w.hub.Broadcast(payload.TutorialID, model.WSProgressMessage{
		Type:       model.WSMessageTypeProgress,
		TutorialID: payload.TutorialID,
		StepNumber: payload.StepNumber,
		Status:     model.TutorialStatusProcessing,
		Progress:   progress,
		VideoURL:   w.storage.GetPublicURL(payload.TargetKey),
	})

	if complete {
		w.hub.Broadcast(payload.TutorialID, model.WSCompleteMessage{
			Type:       model.WSMessageTypeComplete,
			TutorialID: payload.TutorialID,
		})
	}
}

// computeProgress counts finished videos against the tutorial's step count.
func (w *VideoWorker) computeProgress(ctx context.Context, tutorialID string) (int, bool) {
	tutorial, err := w.tutorials.Get(ctx, tutorialID)
	if err != nil {
		return 0, false
	}

	total := len(tutorial.Steps)
	if total == 0 {
		return 0, false
	}

	present := 0
	for _, step := range tutorial.Steps {
		exists, err := w.storage.Exists(ctx, model.StepVideoKey(tutorialID, step.StepNumber))
		if err == nil && exists {
			present++
		}
	}

	progress := (100*present + total/2) / total
	return progress, present == total
}

func buildVideoPrompt(instruction string) string {
	return fmt.Sprintf("Generate a video of the given face photo with the following instruction.\n%s", instruction)
}
