package handler

import (
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/service"
	"github.com/ejanapp/api/pkg/response"
)

type UploadHandler struct {
	service   *service.UploadService
	validator *validator.Validate
}

func NewUploadHandler(svc *service.UploadService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{
		service:   svc,
		validator: v,
	}
}

// Photo handles POST /api/uploads/photo
// @Summary      Upload a photo
// @Description  Upload a face photo to reference from tutorial generation
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Image file (JPEG, PNG, WebP; max 10MB)"
// @Success      201 {object} model.UploadPhotoResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/uploads/photo [post]
func (h *UploadHandler) Photo(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > model.MaxPhotoBytes {
		return response.ValidationError(c, "File size exceeds 10MB limit", map[string]interface{}{
			"maxSize":  model.MaxPhotoBytes,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read uploaded file")
	}

	result, err := h.service.UploadPhoto(c.Context(), data)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return response.ValidationError(c, vErr.Message, nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}
