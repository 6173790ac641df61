package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/desk-relay/internal/api/dto"
	"github.com/spec-kit/desk-relay/internal/observability"
	"github.com/spec-kit/desk-relay/internal/service"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

const textRequiredMessage = "Text field is required."

// ExtractionHandler serves the text extraction endpoint.
type ExtractionHandler struct {
	service  *service.ExtractionService
	validate *validator.Validate
}

// NewExtractionHandler constructs handler.
func NewExtractionHandler(extractionService *service.ExtractionService, validate *validator.Validate) *ExtractionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ExtractionHandler{service: extractionService, validate: validate}
}

// ProcessText POST /process-text. The completion is sent back as a JSON
// string, unparsed. A body that does not decode into a string text field is
// treated as missing text.
func (h *ExtractionHandler) ProcessText(c *fiber.Ctx) error {
	var req dto.ProcessTextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(textRequiredMessage, nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperrors.NewValidationError(textRequiredMessage, nil)
	}
	output, err := h.service.Extract(c.UserContext(), observability.RequestID(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(output)
}
