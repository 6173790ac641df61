package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/desk-relay/internal/api/dto"
	"github.com/spec-kit/desk-relay/internal/domain"
	"github.com/spec-kit/desk-relay/internal/observability"
	"github.com/spec-kit/desk-relay/internal/service"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

const attachmentsField = "files"

// TicketsHandler serves ticket submission.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/create-ticket.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	files, err := readAttachments(c)
	if err != nil {
		return err
	}

	record, err := h.service.CreateTicket(c.UserContext(), observability.RequestID(c), req.ToDomain(files))
	if err != nil {
		return err
	}
	return c.JSON(dto.CreateTicketResponse{
		Message:      "Ticket created successfully!",
		TicketID:     record.ID,
		TicketNumber: record.TicketNumber,
	})
}

func readAttachments(c *fiber.Ctx) ([]domain.Attachment, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	headers := form.File[attachmentsField]
	if len(headers) > domain.MaxAttachments {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("at most %d files are accepted", domain.MaxAttachments),
			map[string]any{"field": attachmentsField, "count": len(headers)},
		)
	}

	files := make([]domain.Attachment, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		files = append(files, domain.Attachment{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
