package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
)

// StyleService generates style suggestions from a face photo and serves
// previously generated suggestions by ID.
type StyleService struct {
	images  *ImageService
	storage client.StorageClient
	styles  repository.StyleRepository
}

func NewStyleService(images *ImageService, storage client.StorageClient, styles repository.StyleRepository) *StyleService {
	return &StyleService{
		images:  images,
		storage: storage,
		styles:  styles,
	}
}

// GenerateStyles decodes and validates the uploaded photo, then produces
// one suggestion per style variation. A single failed variation fails the
// whole request; the demo always shows a full set.
func (s *StyleService) GenerateStyles(ctx context.Context, req *model.StyleGenerateRequest) (*model.StyleGenerateResponse, error) {
	photo, mimeType, err := decodePhoto(req.Photo)
	if err != nil {
		return nil, err
	}

	styles := make([]model.Style, 0, model.StylesPerRequest)
	for i := 0; i < model.StylesPerRequest; i++ {
		generated, err := s.images.GenerateStyleImage(ctx, photo, mimeType, req.Gender, i, "")
		if err != nil {
			return nil, fmt.Errorf("style variation %d: %w", i, err)
		}

		id := uuid.New().String()
		key := fmt.Sprintf("styles/%s/image.png", id)
		imageURL, err := s.storage.Upload(ctx, key, bytes.NewReader(generated.Data), generated.MimeType)
		if err != nil {
			return nil, err
		}

		info := s.images.LocalizeStyleInfo(ctx, generated.RawDescription)

		style := model.Style{
			ID:             id,
			Title:          info.Title,
			Description:    info.Description,
			ImageURL:       imageURL,
			RawDescription: generated.RawDescription,
			Gender:         req.Gender,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.styles.Put(ctx, &style); err != nil {
			return nil, err
		}

		log.Info().Str("style_id", id).Int("variation", i).Msg("style generated")
		styles = append(styles, style)
	}

	return &model.StyleGenerateResponse{Styles: styles}, nil
}

// GetStyle returns the stored detail view for one suggestion.
func (s *StyleService) GetStyle(ctx context.Context, id string) (*model.StyleDetailResponse, error) {
	style, err := s.styles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.StyleDetailResponse{
		ID:               style.ID,
		Title:            style.Title,
		Description:      style.Description,
		ImageURL:         style.ImageURL,
		RawDescription:   style.RawDescription,
		Tools:            style.Tools,
		EstimatedTimeMin: style.EstimatedTimeMin,
	}, nil
}

// decodePhoto accepts plain or data-URI base64 and enforces the size cap and
// supported formats before any model call is made.
func decodePhoto(encoded string) ([]byte, string, error) {
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	photo, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", &model.ValidationError{Field: "photo", Message: "invalid base64 encoding"}
	}
	if len(photo) == 0 {
		return nil, "", &model.ValidationError{Field: "photo", Message: "photo is empty"}
	}
	if len(photo) > model.MaxPhotoBytes {
		return nil, "", &model.ValidationError{Field: "photo", Message: "photo exceeds 10MB limit"}
	}
	mimeType, ok := sniffImageType(photo)
	if !ok {
		return nil, "", &model.ValidationError{Field: "photo", Message: "unsupported image format, use JPEG, PNG or WebP"}
	}
	return photo, mimeType, nil
}

// sniffImageType checks magic numbers for the formats the image model accepts.
func sniffImageType(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg", true
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png", true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp", true
	}
	return "", false
}
