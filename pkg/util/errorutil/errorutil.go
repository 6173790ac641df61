package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewServerError reports a 500 whose message is the only thing the caller sees.
func NewServerError(code, message string, err error) error {
	return &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewOperationFailed reports a failure that is surfaced to the caller as a
// generic 500 carrying the underlying message in details.
func NewOperationFailed(code, message string, err error) error {
	de := &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
	if err != nil {
		de.Details = map[string]any{"cause": err.Error()}
	}
	return de
}

// NewUpstreamRejected relays a non-success response from a dependency,
// keeping its status code and body.
func NewUpstreamRejected(service string, status int, body any) error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &DomainError{
		Code:       "UPSTREAM_REJECTED",
		Message:    fmt.Sprintf("%s rejected the request", service),
		HTTPStatus: status,
		Details:    map[string]any{"service": service, "upstream": body},
	}
}

// NewUpstreamUnavailable reports that a dependency returned no response.
func NewUpstreamUnavailable(service string, err error) error {
	return &DomainError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    fmt.Sprintf("no response from %s", service),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"service": service},
		Err:        err,
	}
}

// NewConfigurationError reports a required setting that is absent.
func NewConfigurationError(key string) error {
	return &DomainError{
		Code:       "CONFIGURATION_ERROR",
		Message:    fmt.Sprintf("%s is not configured", key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
