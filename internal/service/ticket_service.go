package service

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/desk"
	"github.com/spec-kit/desk-relay/internal/domain"
	"github.com/spec-kit/desk-relay/internal/events"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

// TokenSource yields a fresh helpdesk access token per call.
type TokenSource interface {
	FetchAccessToken(ctx context.Context) (domain.AccessToken, error)
}

// TicketGateway creates tickets and attaches files on the helpdesk.
type TicketGateway interface {
	CreateTicket(ctx context.Context, token domain.AccessToken, payload desk.TicketPayload) (domain.TicketRecord, error)
	UploadAttachment(ctx context.Context, token domain.AccessToken, ticketID string, file domain.Attachment) error
}

// TicketService coordinates token acquisition, ticket creation and uploads.
type TicketService struct {
	tokens     TokenSource
	desk       TicketGateway
	profile    domain.ExtractionProfile
	cfg        config.DeskConfig
	validate   *validator.Validate
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Tokens     TokenSource
	Desk       TicketGateway
	Profile    domain.ExtractionProfile
	DeskConfig config.DeskConfig
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs a ticket service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TicketService{
		tokens:     deps.Tokens,
		desk:       deps.Desk,
		profile:    deps.Profile,
		cfg:        deps.DeskConfig,
		validate:   validator.New(),
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
	s.validate.RegisterTagNameFunc(jsonFieldName)
	s.validate.RegisterStructValidation(s.validateConfiguredFields, domain.TicketRequest{})
	return s
}

// CreateTicket obtains a token, creates the ticket and uploads attachments in
// order. The first failing upload aborts the rest; the ticket stays created.
func (s *TicketService) CreateTicket(ctx context.Context, requestID string, req domain.TicketRequest) (domain.TicketRecord, error) {
	if err := s.validateRequest(req); err != nil {
		return domain.TicketRecord{}, err
	}

	token, err := s.tokens.FetchAccessToken(ctx)
	if err != nil {
		return domain.TicketRecord{}, s.tokenError(requestID, err)
	}

	payload := desk.NewTicketPayload(req, s.profile.MergeNotes, s.cfg)
	record, err := s.desk.CreateTicket(ctx, token, payload)
	if err != nil {
		s.logger.Error("ticket creation failed", zap.String("request_id", requestID), zap.Error(err))
		var de *apperrors.DomainError
		if errors.As(err, &de) {
			return domain.TicketRecord{}, err
		}
		return domain.TicketRecord{}, apperrors.NewOperationFailed("TICKET_CREATION_FAILED", "An error occurred", err)
	}
	s.logger.Info("ticket created",
		zap.String("request_id", requestID),
		zap.String("ticket_id", record.ID),
		zap.String("ticket_number", record.TicketNumber))

	if len(req.Attachments) > 0 {
		if err := s.uploadAttachments(ctx, requestID, token, record.ID, req.Attachments); err != nil {
			return domain.TicketRecord{}, err
		}
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketSubmitted,
		RequestID: requestID,
		TicketID:  record.ID,
		Payload: events.TicketSubmittedPayload{
			TicketNumber:    record.TicketNumber,
			DepartmentID:    payload.DepartmentID,
			TeamID:          payload.TeamID,
			Priority:        payload.Priority,
			Subject:         payload.Subject,
			AttachmentCount: len(req.Attachments),
		},
	})
	return record, nil
}

func (s *TicketService) validateRequest(req domain.TicketRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInternalError(err)
	}

	fields := make([]string, 0, len(verrs))
	rules := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		rules[fe.Field()] = fe.ActualTag()
	}
	return apperrors.NewValidationError("ticket request failed validation", map[string]any{
		"fields": fields,
		"rules":  rules,
	})
}

// validateConfiguredFields requires department and contact only when the
// deployment has no fallback, plus whatever the active profile demands.
func (s *TicketService) validateConfiguredFields(sl validator.StructLevel) {
	req := sl.Current().Interface().(domain.TicketRequest)

	if req.DepartmentID == "" && s.cfg.DepartmentID == "" {
		sl.ReportError(req.DepartmentID, domain.FieldDepartment, "DepartmentID", "required", "")
	}
	if req.ContactID == "" && s.cfg.ContactID == "" {
		sl.ReportError(req.ContactID, domain.FieldContactID, "ContactID", "required", "")
	}
	for _, extra := range []struct {
		name, field, value string
	}{
		{domain.FieldTeamID, "TeamID", req.TeamID},
		{domain.FieldProjectName, "ProjectName", req.ProjectName},
		{domain.FieldCreatedBy, "CreatedBy", req.CreatedBy},
	} {
		if extra.value == "" && s.profile.Requires(extra.name) {
			sl.ReportError(extra.value, extra.name, extra.field, "required", "")
		}
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func (s *TicketService) tokenError(requestID string, err error) error {
	s.logger.Error("access token unavailable", zap.String("request_id", requestID), zap.Error(err))
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, desk.ErrTokenNotFound) {
		return apperrors.NewServerError("TOKEN_UNAVAILABLE", "Access token not found in the response", err)
	}
	return apperrors.NewOperationFailed("TOKEN_UNAVAILABLE", "An error occurred", err)
}

func (s *TicketService) uploadAttachments(ctx context.Context, requestID string, token domain.AccessToken, ticketID string, files []domain.Attachment) error {
	if s.cfg.OrgID == "" {
		return apperrors.NewConfigurationError("ZOHO_ORG_ID")
	}

	for i, file := range files {
		if s.cfg.RefetchTokenPerAttachment && i > 0 {
			fresh, err := s.tokens.FetchAccessToken(ctx)
			if err != nil {
				return s.tokenError(requestID, err)
			}
			token = fresh
		}

		if err := s.desk.UploadAttachment(ctx, token, ticketID, file); err != nil {
			s.logger.Error("attachment upload failed",
				zap.String("request_id", requestID),
				zap.String("ticket_id", ticketID),
				zap.String("file_name", file.FileName),
				zap.Int("position", i+1),
				zap.Error(err))
			return apperrors.NewOperationFailed("ATTACHMENT_UPLOAD_FAILED", "An error occurred", err)
		}

		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventAttachmentUploaded,
			RequestID: requestID,
			TicketID:  ticketID,
			Payload: events.AttachmentUploadedPayload{
				FileName:  file.FileName,
				SizeBytes: len(file.Content),
				Position:  i + 1,
			},
		})
	}
	return nil
}

