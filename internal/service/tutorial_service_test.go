package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
)

type fakeDispatcher struct {
	payloads []*model.VideoTaskPayload
}

func (d *fakeDispatcher) Dispatch(_ context.Context, payload *model.VideoTaskPayload) error {
	d.payloads = append(d.payloads, payload)
	return nil
}

type tutorialFixture struct {
	svc        *TutorialService
	storage    *client.MemoryStorage
	tutorials  *repository.MemoryTutorialRepository
	dispatcher *fakeDispatcher
	imageURL   string
}

func newTutorialFixture(t *testing.T, gen *fakeGenerator) *tutorialFixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpegBytes)
	}))
	t.Cleanup(srv.Close)

	storage := client.NewMemoryStorage()
	tutorials := repository.NewMemoryTutorialRepository()
	styles := repository.NewMemoryStyleRepository()
	dispatcher := &fakeDispatcher{}

	svc := NewTutorialService(
		NewStructureService(gen, geminiTestConfig),
		NewImageService(gen, geminiTestConfig),
		storage,
		tutorials,
		styles,
		dispatcher,
	)

	return &tutorialFixture{
		svc:        svc,
		storage:    storage,
		tutorials:  tutorials,
		dispatcher: dispatcher,
		imageURL:   srv.URL,
	}
}

func contentRejected() error {
	return &model.ImageGenerationError{
		Kind: model.ImageFailureContentRejected,
		Err:  errors.New("blocked by safety filter"),
	}
}

func TestGenerateTutorial_Success(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredResp: validProcedureJSON(3)}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "elegant long hair with soft makeup",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tutorial.TotalSteps)
	assert.Equal(t, model.TutorialStatusProcessing, tutorial.Status)
	require.Len(t, tutorial.Steps, 3)
	for _, step := range tutorial.Steps {
		assert.Equal(t, model.StepStatusCompleted, step.Status)
		assert.NotEmpty(t, step.ImageURL)
		assert.Nil(t, step.VideoURL)
	}

	// One video work item per successful step, targeting the step's video key.
	require.Len(t, fx.dispatcher.payloads, 3)
	for i, p := range fx.dispatcher.payloads {
		assert.Equal(t, tutorial.ID, p.TutorialID)
		assert.Equal(t, i+1, p.StepNumber)
		assert.Equal(t, model.StepVideoKey(tutorial.ID, i+1), p.TargetKey)
	}

	// The chain: the first video starts from the original, later ones from
	// the previous step's image.
	assert.Equal(t, tutorial.OriginalImageURL, fx.dispatcher.payloads[0].ImageURL)
	assert.Equal(t, tutorial.Steps[0].ImageURL, fx.dispatcher.payloads[1].ImageURL)
	assert.Equal(t, tutorial.Steps[1].ImageURL, fx.dispatcher.payloads[2].ImageURL)

	// Durable artifacts.
	for _, key := range []string{
		model.TutorialOriginalKey(tutorial.ID),
		model.TutorialMetadataKey(tutorial.ID),
		model.StepImageKey(tutorial.ID, 1),
		model.StepImageKey(tutorial.ID, 2),
		model.StepImageKey(tutorial.ID, 3),
	} {
		exists, err := fx.storage.Exists(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, exists, "expected %s to exist", key)
	}
}

func TestGenerateTutorial_SequentialChain(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredResp: validProcedureJSON(2)}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "sleek bob cut",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	// The fake numbers generated images in call order; each step's stored
	// image must be the output of its own generation call.
	img1, err := fx.storage.Download(context.Background(), model.StepImageKey(tutorial.ID, 1))
	require.NoError(t, err)
	img2, err := fx.storage.Download(context.Background(), model.StepImageKey(tutorial.ID, 2))
	require.NoError(t, err)
	assert.Equal(t, []byte("image-1"), img1)
	assert.Equal(t, []byte("image-2"), img2)
	assert.Equal(t, 2, gen.imageCalls)
}

func TestGenerateTutorial_StructuringFailureWritesNothing(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredErr: contentRejected()}
	fx := newTutorialFixture(t, gen)

	_, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "anything",
		OriginalImageURL: fx.imageURL,
	})

	var sErr *model.StructuringError
	require.ErrorAs(t, err, &sErr)
	assert.Zero(t, fx.storage.ObjectCount(), "a structuring failure must leave storage untouched")
	assert.Empty(t, fx.dispatcher.payloads)
}

func TestGenerateTutorial_PartialFailure(t *testing.T) {
	gen := &fakeGenerator{
		configured:     true,
		structuredResp: validProcedureJSON(4),
		imageErrAt:     map[int]error{2: contentRejected()},
	}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "dramatic evening look",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err, "an image failure mid-chain is not fatal to the request")

	require.Len(t, tutorial.Steps, 4)
	assert.Equal(t, model.StepStatusCompleted, tutorial.Steps[0].Status)
	assert.Equal(t, model.StepStatusFailed, tutorial.Steps[1].Status)
	assert.NotEmpty(t, tutorial.Steps[1].Error)
	assert.Equal(t, model.StepStatusPending, tutorial.Steps[2].Status)
	assert.Equal(t, model.StepStatusPending, tutorial.Steps[3].Status)

	// Only the step before the failure got a video dispatched.
	require.Len(t, fx.dispatcher.payloads, 1)
	assert.Equal(t, 1, fx.dispatcher.payloads[0].StepNumber)

	// No generation was attempted past the failed step.
	assert.Equal(t, 2, gen.imageCalls)

	for _, n := range []int{2, 3, 4} {
		exists, _ := fx.storage.Exists(context.Background(), model.StepImageKey(tutorial.ID, n))
		assert.False(t, exists, "step %d must have no image", n)
	}
}

func TestGetTutorial_RehydratesFromStorage(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredResp: validProcedureJSON(2)}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "soft perm",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	// Simulate cache expiry: fresh repository, same storage.
	fx.svc.tutorials = repository.NewMemoryTutorialRepository()

	got, err := fx.svc.GetTutorial(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, tutorial.Title, got.Title)
	assert.Len(t, got.Steps, 2)
}

func TestGetTutorial_NotFound(t *testing.T) {
	fx := newTutorialFixture(t, &fakeGenerator{configured: false})

	_, err := fx.svc.GetTutorial(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrTutorialNotFound)
}

func TestGetStatus_ProgressFromVideos(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredResp: validProcedureJSON(5)}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "layered medium cut",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	writeVideo := func(step int) {
		_, err := fx.storage.Upload(context.Background(),
			model.StepVideoKey(tutorial.ID, step),
			bytes.NewReader([]byte(fmt.Sprintf("video-%d", step))), "video/mp4")
		require.NoError(t, err)
	}

	status, err := fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TutorialStatusProcessing, status.Status)
	assert.Equal(t, 0, status.Progress)

	writeVideo(1)
	writeVideo(2)
	writeVideo(3)

	status, err = fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TutorialStatusProcessing, status.Status)
	assert.Equal(t, 60, status.Progress)

	completed := 0
	for _, s := range status.Steps {
		if s.Status == model.StepStatusCompleted {
			completed++
			assert.NotNil(t, s.VideoURL)
		}
	}
	assert.Equal(t, 3, completed)

	writeVideo(4)
	writeVideo(5)

	status, err = fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TutorialStatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
}

func TestGetStatus_WorkerFailureMarker(t *testing.T) {
	gen := &fakeGenerator{configured: true, structuredResp: validProcedureJSON(2)}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "wolf cut",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	marker := `{"stepNumber":2,"status":"failed","error":"video generation timed out"}`
	_, err = fx.storage.Upload(context.Background(),
		model.StepStatusKey(tutorial.ID, 2),
		bytes.NewReader([]byte(marker)), "application/json")
	require.NoError(t, err)

	status, err := fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusProcessing, status.Steps[0].Status)
	assert.Equal(t, model.StepStatusFailed, status.Steps[1].Status)
	assert.Contains(t, status.Steps[1].Error, "timed out")
	assert.Equal(t, model.TutorialStatusProcessing, status.Status)
}

func TestGetStatus_PendingStepsAfterImageFailure(t *testing.T) {
	gen := &fakeGenerator{
		configured:     true,
		structuredResp: validProcedureJSON(4),
		imageErrAt:     map[int]error{2: contentRejected()},
	}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "bold red lip look",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	// Step 1's video finishing must not mask the rest of the chain.
	_, err = fx.storage.Upload(context.Background(),
		model.StepVideoKey(tutorial.ID, 1),
		bytes.NewReader([]byte("video-1")), "video/mp4")
	require.NoError(t, err)

	status, err := fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)

	require.Len(t, status.Steps, 4)
	assert.Equal(t, model.StepStatusCompleted, status.Steps[0].Status)
	assert.Equal(t, model.StepStatusFailed, status.Steps[1].Status)

	// Steps past the failure have no image, so no video will ever arrive;
	// they must read pending rather than processing.
	assert.Equal(t, model.StepStatusPending, status.Steps[2].Status)
	assert.Equal(t, model.StepStatusPending, status.Steps[3].Status)
	assert.Nil(t, status.Steps[2].VideoURL)
	assert.Nil(t, status.Steps[3].VideoURL)

	assert.Equal(t, model.TutorialStatusProcessing, status.Status)
	assert.Equal(t, 25, status.Progress)
}

func TestGetStatus_AllStepsFailed(t *testing.T) {
	gen := &fakeGenerator{
		configured:     true,
		structuredResp: validProcedureJSON(1),
		imageErrAt:     map[int]error{1: contentRejected()},
	}
	fx := newTutorialFixture(t, gen)

	tutorial, err := fx.svc.GenerateTutorial(context.Background(), &model.TutorialGenerateRequest{
		RawDescription:   "pixie cut",
		OriginalImageURL: fx.imageURL,
	})
	require.NoError(t, err)

	status, err := fx.svc.GetStatus(context.Background(), tutorial.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TutorialStatusFailed, status.Status)
	assert.Equal(t, 0, status.Progress)
}

func TestGetStatus_NotFound(t *testing.T) {
	fx := newTutorialFixture(t, &fakeGenerator{configured: false})

	_, err := fx.svc.GetStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrTutorialNotFound)
}
