package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/service"
	"github.com/ejanapp/api/pkg/response"
)

type StylesHandler struct {
	service   *service.StyleService
	validator *validator.Validate
}

func NewStylesHandler(svc *service.StyleService, v *validator.Validate) *StylesHandler {
	return &StylesHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/styles/generate
// @Summary      Generate style suggestions
// @Description  Generate three makeup/hairstyle suggestions from a face photo
// @Tags         Styles
// @Accept       json
// @Produce      json
// @Param        request body model.StyleGenerateRequest true "Generate request"
// @Success      200 {object} model.StyleGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/styles/generate [post]
func (h *StylesHandler) Generate(c *fiber.Ctx) error {
	var req model.StyleGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.GenerateStyles(c.Context(), &req)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return response.ValidationError(c, vErr.Message, map[string]string{vErr.Field: vErr.Message})
		}
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}

// Get handles GET /api/styles/:styleId
// @Summary      Get style detail
// @Description  Return the stored detail for one generated style
// @Tags         Styles
// @Produce      json
// @Param        styleId path string true "Style ID"
// @Success      200 {object} model.StyleDetailResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/styles/{styleId} [get]
func (h *StylesHandler) Get(c *fiber.Ctx) error {
	styleID := c.Params("styleId")

	result, err := h.service.GetStyle(c.Context(), styleID)
	if err != nil {
		if errors.Is(err, model.ErrStyleNotFound) {
			return response.NotFound(c, "Style not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}
