package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ejanapp/api/internal/model"
)

const recordTTL = 24 * time.Hour

// RedisTutorialRepository keeps tutorial records in Redis as JSON with a TTL.
// The durable copy lives in object storage as metadata.json; Redis is the
// fast path for status polling.
type RedisTutorialRepository struct {
	client *redis.Client
}

func NewRedisTutorialRepository(client *redis.Client) *RedisTutorialRepository {
	return &RedisTutorialRepository{client: client}
}

func tutorialKey(id string) string {
	return fmt.Sprintf("tutorial:%s", id)
}

func (r *RedisTutorialRepository) Put(ctx context.Context, tutorial *model.Tutorial) error {
	data, err := json.Marshal(tutorial)
	if err != nil {
		return fmt.Errorf("failed to marshal tutorial: %w", err)
	}
	if err := r.client.Set(ctx, tutorialKey(tutorial.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to store tutorial: %w", err)
	}
	return nil
}

func (r *RedisTutorialRepository) Get(ctx context.Context, id string) (*model.Tutorial, error) {
	data, err := r.client.Get(ctx, tutorialKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrTutorialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tutorial: %w", err)
	}
	var tutorial model.Tutorial
	if err := json.Unmarshal(data, &tutorial); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tutorial: %w", err)
	}
	return &tutorial, nil
}

// RedisStyleRepository keeps style records in Redis as JSON with a TTL.
type RedisStyleRepository struct {
	client *redis.Client
}

func NewRedisStyleRepository(client *redis.Client) *RedisStyleRepository {
	return &RedisStyleRepository{client: client}
}

func styleKey(id string) string {
	return fmt.Sprintf("style:%s", id)
}

func (r *RedisStyleRepository) Put(ctx context.Context, style *model.Style) error {
	data, err := json.Marshal(style)
	if err != nil {
		return fmt.Errorf("failed to marshal style: %w", err)
	}
	if err := r.client.Set(ctx, styleKey(style.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to store style: %w", err)
	}
	return nil
}

func (r *RedisStyleRepository) Get(ctx context.Context, id string) (*model.Style, error) {
	data, err := r.client.Get(ctx, styleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrStyleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load style: %w", err)
	}
	var style model.Style
	if err := json.Unmarshal(data, &style); err != nil {
		return nil, fmt.Errorf("failed to unmarshal style: %w", err)
	}
	return &style, nil
}
