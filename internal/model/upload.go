package model

import "time"

// UploadPhotoResponse is returned by POST /api/uploads/photo.
type UploadPhotoResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
