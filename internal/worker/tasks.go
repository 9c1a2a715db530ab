package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ejanapp/api/internal/model"
)

// TypeVideoGenerate is the asynq task type for per-step video generation.
const TypeVideoGenerate = "video:generate"

// QueueVideo keeps long-running video work off the default queue.
const QueueVideo = "video"

// NewVideoGenerateTask wraps a work item for the queue.
func NewVideoGenerateTask(payload *model.VideoTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal video task payload: %w", err)
	}
	return asynq.NewTask(TypeVideoGenerate, data,
		asynq.Queue(QueueVideo),
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
	), nil
}

// AsynqDispatcher enqueues video work items onto the Redis-backed queue.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, payload *model.VideoTaskPayload) error {
	task, err := NewVideoGenerateTask(payload)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue video task: %w", err)
	}
	return nil
}
