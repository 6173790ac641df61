package desk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/domain"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

const deskService = "helpdesk"

// TicketPayload is the helpdesk ticket-creation body.
type TicketPayload struct {
	Subject      string              `json:"subject"`
	DepartmentID string              `json:"departmentId"`
	TeamID       string              `json:"teamId,omitempty"`
	Description  string              `json:"description"`
	Language     string              `json:"language"`
	Priority     string              `json:"priority"`
	Status       domain.TicketStatus `json:"status"`
	Category     string              `json:"category"`
	ContactID    string              `json:"contactId"`
	ProductID    string              `json:"productId"`
	CustomFields map[string]any      `json:"cf"`
}

// NewTicketPayload maps a caller request onto the helpdesk schema.
// Tenant constants from cfg take the place of fields the helpdesk requires
// but the caller does not supply.
func NewTicketPayload(req domain.TicketRequest, mergeNotes bool, cfg config.DeskConfig) TicketPayload {
	description := req.Description
	if mergeNotes {
		description = fmt.Sprintf("%s\n\nAdditional Notes: %s", req.Description, req.AdditionalNotes)
	}

	departmentID := req.DepartmentID
	if departmentID == "" {
		departmentID = cfg.DepartmentID
	}
	contactID := cfg.ContactID
	if contactID == "" {
		contactID = req.ContactID
	}

	cf := map[string]any{
		"cf_permanentaddress":   nil,
		"cf_dateofpurchase":     nil,
		"cf_phone":              nil,
		"cf_numberofitems":      nil,
		"cf_url":                nil,
		"cf_secondaryemail":     nil,
		"cf_severitypercentage": cfg.SeverityPercentage,
		"cf_modelname":          cfg.ModelName,
	}
	if req.ProjectName != "" {
		cf["cf_project_name"] = req.ProjectName
	}
	if req.CreatedBy != "" {
		cf["cf_created_by"] = req.CreatedBy
	}

	return TicketPayload{
		Subject:      req.Subject,
		DepartmentID: departmentID,
		TeamID:       req.TeamID,
		Description:  description,
		Language:     cfg.Language,
		Priority:     req.Severity,
		Status:       domain.TicketStatusOpen,
		Category:     cfg.Category,
		ContactID:    contactID,
		ProductID:    cfg.ProductID,
		CustomFields: cf,
	}
}

// Client talks to the helpdesk REST API.
type Client struct {
	cfg    config.DeskConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient constructs a helpdesk client.
func NewClient(cfg config.DeskConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// CreateTicket submits payload and returns the created ticket's identifiers.
func (c *Client) CreateTicket(ctx context.Context, token domain.AccessToken, payload TicketPayload) (domain.TicketRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.TicketRecord{}, fmt.Errorf("encode ticket: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("tickets"), bytes.NewReader(body))
	if err != nil {
		return domain.TicketRecord{}, fmt.Errorf("build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(token))
	// Optional here; uploads refuse to run without it.
	if c.cfg.OrgID != "" {
		req.Header.Set("orgId", c.cfg.OrgID)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return domain.TicketRecord{}, apperrors.NewUpstreamUnavailable(deskService, err)
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Warn("ticket creation rejected", zap.Int("status_code", res.StatusCode))
		return domain.TicketRecord{}, apperrors.NewUpstreamRejected(deskService, res.StatusCode, decodeBody(resBody))
	}

	var created struct {
		ID           looseString `json:"id"`
		TicketNumber looseString `json:"ticketNumber"`
	}
	if err := json.Unmarshal(resBody, &created); err != nil {
		return domain.TicketRecord{}, fmt.Errorf("decode ticket response: %w", err)
	}
	if created.ID == "" {
		return domain.TicketRecord{}, fmt.Errorf("ticket response has no id")
	}
	return domain.TicketRecord{ID: string(created.ID), TicketNumber: string(created.TicketNumber)}, nil
}

// UploadAttachment sends one file as a multipart upload bound to ticketID.
func (c *Client) UploadAttachment(ctx context.Context, token domain.AccessToken, ticketID string, file domain.Attachment) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.FileName)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := c.endpoint("tickets", url.PathEscape(ticketID), "attachments")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", authHeader(token))
	req.Header.Set("orgId", c.cfg.OrgID)

	res, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewUpstreamUnavailable(deskService, err)
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apperrors.NewUpstreamRejected(deskService, res.StatusCode, decodeBody(resBody))
	}
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	return strings.TrimRight(c.cfg.APIBaseURL, "/") + "/" + strings.Join(parts, "/")
}

func authHeader(token domain.AccessToken) string {
	return "Zoho-oauthtoken " + token.String()
}

func decodeBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

// looseString accepts identifiers sent either as JSON strings or numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
