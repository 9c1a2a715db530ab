package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
)

var uploadExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadService stores user photos so tutorial generation can reference them
// by URL.
type UploadService struct {
	storage client.StorageClient
}

func NewUploadService(storage client.StorageClient) *UploadService {
	return &UploadService{storage: storage}
}

// UploadPhoto validates and stores one photo, returning its public URL.
func (s *UploadService) UploadPhoto(ctx context.Context, data []byte) (*model.UploadPhotoResponse, error) {
	if len(data) == 0 {
		return nil, &model.ValidationError{Field: "file", Message: "file is empty"}
	}
	if len(data) > model.MaxPhotoBytes {
		return nil, &model.ValidationError{Field: "file", Message: "file exceeds 10MB limit"}
	}
	mimeType, ok := sniffImageType(data)
	if !ok {
		return nil, &model.ValidationError{Field: "file", Message: "unsupported image format, use JPEG, PNG or WebP"}
	}

	key := fmt.Sprintf("uploads/%s.%s", uuid.New().String(), uploadExtensions[mimeType])
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, err
	}

	return &model.UploadPhotoResponse{
		URL:       url,
		Key:       key,
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}, nil
}
