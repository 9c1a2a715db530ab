package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejanapp/api/internal/model"
)

func TestMemoryTutorialRepository_PutGet(t *testing.T) {
	repo := NewMemoryTutorialRepository()
	ctx := context.Background()

	tutorial := &model.Tutorial{
		ID:         "t-1",
		Title:      "ナチュラルメイク",
		TotalSteps: 2,
		Status:     model.TutorialStatusProcessing,
		Steps: []model.Step{
			{StepNumber: 1, Title: "ベース", Status: model.StepStatusCompleted},
			{StepNumber: 2, Title: "リップ", Status: model.StepStatusPending},
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Put(ctx, tutorial))

	got, err := repo.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, tutorial.Title, got.Title)
	assert.Len(t, got.Steps, 2)
}

func TestMemoryTutorialRepository_NotFound(t *testing.T) {
	repo := NewMemoryTutorialRepository()

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrTutorialNotFound)
}

func TestMemoryTutorialRepository_Isolation(t *testing.T) {
	repo := NewMemoryTutorialRepository()
	ctx := context.Background()

	tutorial := &model.Tutorial{
		ID:    "t-iso",
		Steps: []model.Step{{StepNumber: 1, Status: model.StepStatusPending}},
	}
	require.NoError(t, repo.Put(ctx, tutorial))

	got, err := repo.Get(ctx, "t-iso")
	require.NoError(t, err)
	got.Steps[0].Status = model.StepStatusCompleted

	again, err := repo.Get(ctx, "t-iso")
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusPending, again.Steps[0].Status)
}

func TestMemoryStyleRepository_PutGet(t *testing.T) {
	repo := NewMemoryStyleRepository()
	ctx := context.Background()

	style := &model.Style{
		ID:             "s-1",
		Title:          "フレッシュ",
		RawDescription: "Fresh and natural style",
		Gender:         model.GenderMale,
	}
	require.NoError(t, repo.Put(ctx, style))

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh and natural style", got.RawDescription)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrStyleNotFound)
}
