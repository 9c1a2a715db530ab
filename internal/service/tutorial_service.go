package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
)

// VideoDispatcher hands a per-step video work item to the background queue.
// Dispatch must return once the item is durably enqueued; the work itself
// runs on the worker with its own lifetime, so cancelling the request
// context never cancels a dispatched item.
type VideoDispatcher interface {
	Dispatch(ctx context.Context, payload *model.VideoTaskPayload) error
}

// TutorialService orchestrates tutorial generation: structuring, the
// sequential image chain, storage writes and video dispatch.
type TutorialService struct {
	structure  *StructureService
	images     *ImageService
	storage    client.StorageClient
	tutorials  repository.TutorialRepository
	styles     repository.StyleRepository
	dispatcher VideoDispatcher
	httpClient *http.Client
}

func NewTutorialService(
	structure *StructureService,
	images *ImageService,
	storage client.StorageClient,
	tutorials repository.TutorialRepository,
	styles repository.StyleRepository,
	dispatcher VideoDispatcher,
) *TutorialService {
	return &TutorialService{
		structure:  structure,
		images:     images,
		storage:    storage,
		tutorials:  tutorials,
		styles:     styles,
		dispatcher: dispatcher,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateTutorial runs the synchronous phase of tutorial creation and
// returns the record with all step images resolved. Structuring failures are
// fatal and leave nothing in storage. An image failure at step k leaves steps
// 1..k-1 completed and k+1 onward pending; videos are only dispatched for
// steps whose image succeeded.
func (s *TutorialService) GenerateTutorial(ctx context.Context, req *model.TutorialGenerateRequest) (*model.Tutorial, error) {
	styleDescription := req.RawDescription
	if req.StyleID != "" {
		style, err := s.styles.Get(ctx, req.StyleID)
		if err == nil && style.RawDescription != "" {
			styleDescription = style.RawDescription
		}
	}

	proc, err := s.structure.StructureTutorial(ctx, styleDescription, req.Customization)
	if err != nil {
		return nil, err
	}

	originalImage, mimeType, err := s.fetchImage(ctx, req.OriginalImageURL)
	if err != nil {
		return nil, err
	}

	tutorialID := uuid.New().String()
	log.Info().
		Str("tutorial_id", tutorialID).
		Int("steps", len(proc.Steps)).
		Msg("tutorial structured")

	originalURL, err := s.storage.Upload(ctx, model.TutorialOriginalKey(tutorialID), bytes.NewReader(originalImage), mimeType)
	if err != nil {
		return nil, err
	}

	tutorial := &model.Tutorial{
		ID:               tutorialID,
		Title:            proc.Title,
		Description:      proc.Description,
		TotalSteps:       len(proc.Steps),
		Status:           model.TutorialStatusProcessing,
		OriginalImageURL: originalURL,
		RawDescription:   req.RawDescription,
		Difficulty:       proc.Difficulty,
		DurationMinutes:  proc.TotalDurationMin,
		CreatedAt:        time.Now().UTC(),
	}

	previousImage := originalImage
	previousMime := mimeType
	previousURL := originalURL
	failed := false

	for _, procStep := range proc.Steps {
		step := model.Step{
			StepNumber:  procStep.StepNumber,
			Title:       procStep.Title,
			Description: procStep.Description,
			Tools:       procStep.ToolsNeeded,
			DurationSec: procStep.DurationSec,
			Status:      model.StepStatusPending,
		}

		if failed {
			tutorial.Steps = append(tutorial.Steps, step)
			continue
		}

		completed, err := s.images.GenerateCompletedLook(ctx, previousImage, previousMime, procStep.TitleEN, procStep.DescriptionEN)
		if err != nil {
			log.Error().Err(err).
				Str("tutorial_id", tutorialID).
				Int("step", procStep.StepNumber).
				Msg("step image generation failed")
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			tutorial.Steps = append(tutorial.Steps, step)
			failed = true
			continue
		}

		imageKey := model.StepImageKey(tutorialID, procStep.StepNumber)
		imageURL, err := s.storage.Upload(ctx, imageKey, bytes.NewReader(completed), "image/jpeg")
		if err != nil {
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			tutorial.Steps = append(tutorial.Steps, step)
			failed = true
			continue
		}

		step.ImageURL = imageURL
		step.Status = model.StepStatusCompleted

		// The video input is deliberately the previous step's image, not the
		// completed look: the clip shows this step being performed from its
		// starting state. Do not switch it to step.ImageURL.
		payload := &model.VideoTaskPayload{
			TutorialID:  tutorialID,
			StepNumber:  procStep.StepNumber,
			ImageURL:    previousURL,
			Instruction: fmt.Sprintf("%s: %s", procStep.TitleEN, procStep.DescriptionEN),
			TargetKey:   model.StepVideoKey(tutorialID, procStep.StepNumber),
		}
		if err := s.dispatcher.Dispatch(ctx, payload); err != nil {
			log.Error().Err(err).
				Str("tutorial_id", tutorialID).
				Int("step", procStep.StepNumber).
				Msg("video dispatch failed")
		}

		if err := s.writeStepMetadata(ctx, tutorialID, &step); err != nil {
			log.Warn().Err(err).Int("step", procStep.StepNumber).Msg("step metadata write failed")
		}

		tutorial.Steps = append(tutorial.Steps, step)
		previousImage = completed
		previousMime = "image/jpeg"
		previousURL = imageURL
	}

	if err := s.tutorials.Put(ctx, tutorial); err != nil {
		return nil, err
	}
	if err := s.writeTutorialMetadata(ctx, tutorial); err != nil {
		log.Warn().Err(err).Str("tutorial_id", tutorialID).Msg("tutorial metadata write failed")
	}

	return tutorial, nil
}

// GetTutorial serves the tutorial record, falling back to the durable
// metadata copy in storage when the cache entry has expired.
func (s *TutorialService) GetTutorial(ctx context.Context, id string) (*model.Tutorial, error) {
	tutorial, err := s.tutorials.Get(ctx, id)
	if err == nil {
		return tutorial, nil
	}

	data, derr := s.storage.Download(ctx, model.TutorialMetadataKey(id))
	if derr != nil {
		return nil, model.ErrTutorialNotFound
	}
	var rehydrated model.Tutorial
	if uerr := json.Unmarshal(data, &rehydrated); uerr != nil {
		return nil, fmt.Errorf("corrupt tutorial metadata: %w", uerr)
	}
	return &rehydrated, nil
}

// GetStatus derives per-step and overall progress from what actually exists
// in storage. The tutorial record only supplies the step list; completion is
// decided by the presence of each step's video object, and terminal failures
// by the marker the worker writes.
func (s *TutorialService) GetStatus(ctx context.Context, id string) (*model.TutorialStatusResponse, error) {
	tutorial, err := s.GetTutorial(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &model.TutorialStatusResponse{
		TutorialID: tutorial.ID,
		Steps:      make([]model.StepStatusInfo, 0, len(tutorial.Steps)),
		CreatedAt:  tutorial.CreatedAt,
		UpdatedAt:  time.Now().UTC(),
	}

	videosPresent := 0
	stepsFailed := 0
	imagesComplete := 0

	for _, step := range tutorial.Steps {
		info := model.StepStatusInfo{
			StepNumber: step.StepNumber,
			Status:     model.StepStatusPending,
		}

		switch {
		case step.Status == model.StepStatusFailed:
			info.Status = model.StepStatusFailed
			info.Error = step.Error
		case step.ImageURL == "":
			// No image means no video was ever dispatched for this step.
		default:
			imagesComplete++
			videoKey := model.StepVideoKey(tutorial.ID, step.StepNumber)
			exists, err := s.storage.Exists(ctx, videoKey)
			if err != nil {
				return nil, err
			}
			if exists {
				url := s.storage.GetPublicURL(videoKey)
				info.Status = model.StepStatusCompleted
				info.VideoURL = &url
				videosPresent++
				break
			}

			failure, err := s.readStepFailure(ctx, tutorial.ID, step.StepNumber)
			if err != nil {
				return nil, err
			}
			if failure != nil {
				info.Status = model.StepStatusFailed
				info.Error = failure.Error
			} else {
				info.Status = model.StepStatusProcessing
			}
		}

		if info.Status == model.StepStatusFailed {
			stepsFailed++
		}
		resp.Steps = append(resp.Steps, info)
	}

	total := len(tutorial.Steps)
	if total > 0 {
		resp.Progress = (100*videosPresent + total/2) / total
	}

	switch {
	case total > 0 && stepsFailed == total:
		resp.Status = model.TutorialStatusFailed
	case total > 0 && imagesComplete == total && videosPresent == total:
		resp.Status = model.TutorialStatusCompleted
	default:
		resp.Status = model.TutorialStatusProcessing
	}

	return resp, nil
}

func (s *TutorialService) readStepFailure(ctx context.Context, tutorialID string, stepNumber int) (*model.StepFailure, error) {
	key := model.StepStatusKey(tutorialID, stepNumber)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	data, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	var failure model.StepFailure
	if err := json.Unmarshal(data, &failure); err != nil {
		return nil, fmt.Errorf("corrupt step status for step %d: %w", stepNumber, err)
	}
	return &failure, nil
}

func (s *TutorialService) writeTutorialMetadata(ctx context.Context, tutorial *model.Tutorial) error {
	data, err := json.Marshal(tutorial)
	if err != nil {
		return err
	}
	_, err = s.storage.Upload(ctx, model.TutorialMetadataKey(tutorial.ID), bytes.NewReader(data), "application/json")
	return err
}

func (s *TutorialService) writeStepMetadata(ctx context.Context, tutorialID string, step *model.Step) error {
	data, err := json.Marshal(step)
	if err != nil {
		return err
	}
	_, err = s.storage.Upload(ctx, model.StepMetadataKey(tutorialID, step.StepNumber), bytes.NewReader(data), "application/json")
	return err
}

func (s *TutorialService) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &model.ValidationError{Field: "originalImageUrl", Message: "invalid image URL"}
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch original image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &model.ValidationError{Field: "originalImageUrl", Message: fmt.Sprintf("image fetch returned status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, model.MaxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read original image: %w", err)
	}
	if len(data) > model.MaxPhotoBytes {
		return nil, "", &model.ValidationError{Field: "originalImageUrl", Message: "image exceeds 10MB limit"}
	}
	mimeType, ok := sniffImageType(data)
	if !ok {
		return nil, "", &model.ValidationError{Field: "originalImageUrl", Message: "unsupported image format"}
	}
	return data, mimeType, nil
}
