package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/domain"
	"github.com/spec-kit/desk-relay/internal/events"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

// Completer returns the raw completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ExtractionService turns free text into the model's key/value answer.
type ExtractionService struct {
	llm        Completer
	profile    domain.ExtractionProfile
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ExtractionDependencies bundles collaborators for the extraction service.
type ExtractionDependencies struct {
	LLM        Completer
	Profile    domain.ExtractionProfile
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewExtractionService constructs the service.
func NewExtractionService(deps ExtractionDependencies) *ExtractionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionService{
		llm:        deps.LLM,
		profile:    deps.Profile,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Extract sends text through the profile's prompt and returns the model
// output exactly as received. The output is never parsed here. Only an empty
// string is rejected; whitespace goes to the model like any other text.
func (s *ExtractionService) Extract(ctx context.Context, requestID, text string) (string, error) {
	if text == "" {
		return "", apperrors.NewValidationError("Text field is required.", nil)
	}

	output, err := s.llm.Complete(ctx, s.profile.Model, s.profile.Prompt(text))
	if err != nil {
		s.logger.Error("extraction failed",
			zap.String("request_id", requestID),
			zap.String("profile", s.profile.Name),
			zap.Error(err))
		return "", apperrors.NewServerError("EXTRACTION_FAILED", "An error occurred while processing the request.", err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTextExtracted,
		RequestID: requestID,
		Payload: events.TextExtractedPayload{
			Profile:     s.profile.Name,
			Model:       s.profile.Model,
			InputChars:  len(text),
			OutputChars: len(output),
		},
	})
	return output, nil
}
