package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/desk"
	"github.com/spec-kit/desk-relay/internal/domain"
	"github.com/spec-kit/desk-relay/internal/events"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

type fakeTokens struct {
	calls  int
	tokens []domain.AccessToken
	err    error
}

func (f *fakeTokens) FetchAccessToken(context.Context) (domain.AccessToken, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.tokens) == 0 {
		return "tok", nil
	}
	return f.tokens[(f.calls-1)%len(f.tokens)], nil
}

type fakeDesk struct {
	createCalls int
	created     desk.TicketPayload
	createErr   error
	uploaded    []string
	uploadToken []domain.AccessToken
	failOn      string
	uploadErr   error
}

func (f *fakeDesk) CreateTicket(_ context.Context, _ domain.AccessToken, payload desk.TicketPayload) (domain.TicketRecord, error) {
	f.createCalls++
	f.created = payload
	if f.createErr != nil {
		return domain.TicketRecord{}, f.createErr
	}
	return domain.TicketRecord{ID: "T-1", TicketNumber: "101"}, nil
}

func (f *fakeDesk) UploadAttachment(_ context.Context, token domain.AccessToken, ticketID string, file domain.Attachment) error {
	f.uploaded = append(f.uploaded, file.FileName)
	f.uploadToken = append(f.uploadToken, token)
	if file.FileName == f.failOn {
		return f.uploadErr
	}
	return nil
}

func basicDeskConfig() config.DeskConfig {
	return config.DeskConfig{
		OrgID:              "org-1",
		DepartmentID:       "dept-1",
		ContactID:          "contact-1",
		ModelName:          "F3 2017",
		SeverityPercentage: "0.0",
	}
}

func newTicketTestService(tokens *fakeTokens, gw *fakeDesk, cfg config.DeskConfig, profile domain.ExtractionProfile) (*TicketService, *[]events.Event) {
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	record := func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketSubmitted, record)
	dispatcher.Subscribe(events.EventAttachmentUploaded, record)
	return NewTicketService(TicketDependencies{
		Tokens:     tokens,
		Desk:       gw,
		Profile:    profile,
		DeskConfig: cfg,
		Dispatcher: dispatcher,
	}), &published
}

func validRequest() domain.TicketRequest {
	return domain.TicketRequest{
		Subject:         "Fix thruster",
		Description:     "Drifts left",
		Severity:        "High",
		AdditionalNotes: "urgent",
	}
}

func files(names ...string) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Attachment{FileName: n, Content: []byte(n)})
	}
	return out
}

func TestCreateTicketWithoutAttachments(t *testing.T) {
	tokens := &fakeTokens{}
	gw := &fakeDesk{}
	svc, published := newTicketTestService(tokens, gw, basicDeskConfig(), domain.ExtractionProfile{MergeNotes: true})

	rec, err := svc.CreateTicket(context.Background(), "req-1", validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "T-1" || rec.TicketNumber != "101" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if tokens.calls != 1 || gw.createCalls != 1 {
		t.Fatalf("expected one token and one create call, got %d/%d", tokens.calls, gw.createCalls)
	}
	if len(gw.uploaded) != 0 {
		t.Fatalf("no attachment call expected, got %v", gw.uploaded)
	}
	if gw.created.Description != "Drifts left\n\nAdditional Notes: urgent" {
		t.Fatalf("notes not merged: %q", gw.created.Description)
	}
	if len(*published) != 1 || (*published)[0].Type != events.EventTicketSubmitted {
		t.Fatalf("unexpected events %+v", *published)
	}
}

func TestCreateTicketTokenFailureStopsBeforeCreate(t *testing.T) {
	tokens := &fakeTokens{err: desk.ErrTokenNotFound}
	gw := &fakeDesk{}
	svc, _ := newTicketTestService(tokens, gw, basicDeskConfig(), domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a.txt")
	_, err := svc.CreateTicket(context.Background(), "req-1", req)
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus != http.StatusInternalServerError || de.Code != "TOKEN_UNAVAILABLE" {
		t.Fatalf("unexpected error %+v", de)
	}
	if gw.createCalls != 0 || len(gw.uploaded) != 0 {
		t.Fatalf("helpdesk must not be called after token failure")
	}
}

func TestCreateTicketTokenEndpointUnreachable(t *testing.T) {
	tokens := &fakeTokens{err: apperrors.NewUpstreamUnavailable("oauth token endpoint", errors.New("dial tcp: refused"))}
	gw := &fakeDesk{}
	svc, _ := newTicketTestService(tokens, gw, basicDeskConfig(), domain.ExtractionProfile{})

	_, err := svc.CreateTicket(context.Background(), "req-1", validRequest())
	if de := apperrors.ToDomainError(err); de.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("expected 502, got %+v", de)
	}
	if gw.createCalls != 0 {
		t.Fatal("create must not be called")
	}
}

func TestCreateTicketPropagatesRejection(t *testing.T) {
	gw := &fakeDesk{createErr: apperrors.NewUpstreamRejected("helpdesk", http.StatusUnprocessableEntity, map[string]any{"errorCode": "INVALID_DATA"})}
	svc, published := newTicketTestService(&fakeTokens{}, gw, basicDeskConfig(), domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a.txt")
	_, err := svc.CreateTicket(context.Background(), "req-1", req)
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected upstream status, got %+v", de)
	}
	if len(gw.uploaded) != 0 {
		t.Fatal("no uploads expected after rejected create")
	}
	if len(*published) != 0 {
		t.Fatalf("no events expected, got %+v", *published)
	}
}

func TestCreateTicketUploadsInOrderAndStopsAtFirstFailure(t *testing.T) {
	gw := &fakeDesk{failOn: "b.txt", uploadErr: errors.New("boom")}
	svc, _ := newTicketTestService(&fakeTokens{}, gw, basicDeskConfig(), domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a.txt", "b.txt", "c.txt")
	_, err := svc.CreateTicket(context.Background(), "req-1", req)
	de := apperrors.ToDomainError(err)
	if de.Code != "ATTACHMENT_UPLOAD_FAILED" || de.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected error %+v", de)
	}
	if len(gw.uploaded) != 2 || gw.uploaded[0] != "a.txt" || gw.uploaded[1] != "b.txt" {
		t.Fatalf("unexpected upload sequence %v", gw.uploaded)
	}
	if gw.createCalls != 1 {
		t.Fatal("ticket should have been created once")
	}
}

func TestCreateTicketReusesTokenByDefault(t *testing.T) {
	tokens := &fakeTokens{tokens: []domain.AccessToken{"t1", "t2", "t3"}}
	gw := &fakeDesk{}
	svc, published := newTicketTestService(tokens, gw, basicDeskConfig(), domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a", "b", "c")
	if _, err := svc.CreateTicket(context.Background(), "req-1", req); err != nil {
		t.Fatal(err)
	}
	if tokens.calls != 1 {
		t.Fatalf("expected a single token fetch, got %d", tokens.calls)
	}
	for _, tok := range gw.uploadToken {
		if tok != "t1" {
			t.Fatalf("expected token reuse, got %v", gw.uploadToken)
		}
	}
	if len(*published) != 4 {
		t.Fatalf("expected three upload events and one submit event, got %d", len(*published))
	}
}

func TestCreateTicketRefetchesTokenPerAttachment(t *testing.T) {
	cfg := basicDeskConfig()
	cfg.RefetchTokenPerAttachment = true
	tokens := &fakeTokens{tokens: []domain.AccessToken{"t1", "t2", "t3"}}
	gw := &fakeDesk{}
	svc, _ := newTicketTestService(tokens, gw, cfg, domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a", "b", "c")
	if _, err := svc.CreateTicket(context.Background(), "req-1", req); err != nil {
		t.Fatal(err)
	}
	if tokens.calls != 3 {
		t.Fatalf("expected three token fetches, got %d", tokens.calls)
	}
	want := []domain.AccessToken{"t1", "t2", "t3"}
	for i, tok := range gw.uploadToken {
		if tok != want[i] {
			t.Fatalf("upload %d used %q, want %q", i, tok, want[i])
		}
	}
}

func TestCreateTicketMissingOrgIDFailsAfterCreate(t *testing.T) {
	cfg := basicDeskConfig()
	cfg.OrgID = ""
	gw := &fakeDesk{}
	svc, _ := newTicketTestService(&fakeTokens{}, gw, cfg, domain.ExtractionProfile{})

	req := validRequest()
	req.Attachments = files("a")
	_, err := svc.CreateTicket(context.Background(), "req-1", req)
	if de := apperrors.ToDomainError(err); de.Code != "CONFIGURATION_ERROR" {
		t.Fatalf("expected configuration error, got %+v", de)
	}
	if gw.createCalls != 1 || len(gw.uploaded) != 0 {
		t.Fatalf("unexpected calls create=%d uploads=%v", gw.createCalls, gw.uploaded)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	profile := domain.ExtractionProfile{
		RequiredTicketFields: []string{domain.FieldTeamID, domain.FieldProjectName},
	}
	cfg := basicDeskConfig()
	cfg.DepartmentID = ""
	tokens := &fakeTokens{}
	svc, _ := newTicketTestService(tokens, &fakeDesk{}, cfg, profile)

	req := validRequest()
	req.Subject = ""
	_, err := svc.CreateTicket(context.Background(), "req-1", req)
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", de)
	}
	missing, _ := de.Details["fields"].([]string)
	want := []string{"subject", domain.FieldDepartment, domain.FieldTeamID, domain.FieldProjectName}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing = %v, want %v", missing, want)
		}
	}
	rules, _ := de.Details["rules"].(map[string]string)
	if rules["subject"] != "required" || rules[domain.FieldTeamID] != "required" {
		t.Fatalf("unexpected rules %+v", rules)
	}
	if tokens.calls != 0 {
		t.Fatal("token must not be fetched for an invalid request")
	}
}

func TestCreateTicketValidationRules(t *testing.T) {
	withFallbacks := basicDeskConfig()
	noFallbacks := basicDeskConfig()
	noFallbacks.DepartmentID = ""
	noFallbacks.ContactID = ""
	directory := domain.ExtractionProfile{
		RequiredTicketFields: []string{domain.FieldTeamID, domain.FieldProjectName, domain.FieldCreatedBy},
	}

	tests := []struct {
		name    string
		cfg     config.DeskConfig
		profile domain.ExtractionProfile
		mutate  func(*domain.TicketRequest)
		missing []string
	}{
		{
			name:    "configured fallbacks satisfy department and contact",
			cfg:     withFallbacks,
			mutate:  func(*domain.TicketRequest) {},
			missing: nil,
		},
		{
			name:    "caller must supply department and contact without fallbacks",
			cfg:     noFallbacks,
			mutate:  func(*domain.TicketRequest) {},
			missing: []string{domain.FieldDepartment, domain.FieldContactID},
		},
		{
			name: "caller values stand in for missing fallbacks",
			cfg:  noFallbacks,
			mutate: func(r *domain.TicketRequest) {
				r.DepartmentID = "dept-9"
				r.ContactID = "contact-9"
			},
			missing: nil,
		},
		{
			name:    "profile extras are enforced",
			cfg:     withFallbacks,
			profile: directory,
			mutate:  func(r *domain.TicketRequest) { r.TeamID = "team-1" },
			missing: []string{domain.FieldProjectName, domain.FieldCreatedBy},
		},
		{
			name:    "every base field is reported",
			cfg:     withFallbacks,
			mutate:  func(r *domain.TicketRequest) { *r = domain.TicketRequest{} },
			missing: []string{"subject", "description", "severity"},
		},
		{
			name:    "file count is bounded",
			cfg:     withFallbacks,
			mutate:  func(r *domain.TicketRequest) { r.Attachments = make([]domain.Attachment, domain.MaxAttachments+1) },
			missing: []string{"files"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeDesk{}
			svc, _ := newTicketTestService(&fakeTokens{}, gw, tt.cfg, tt.profile)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateTicket(context.Background(), "req-1", req)
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			de := apperrors.ToDomainError(err)
			if de.HTTPStatus != http.StatusBadRequest {
				t.Fatalf("expected 400, got %+v", de)
			}
			got, _ := de.Details["fields"].([]string)
			if strings.Join(got, ",") != strings.Join(tt.missing, ",") {
				t.Fatalf("fields = %v, want %v", got, tt.missing)
			}
			if gw.createCalls != 0 {
				t.Fatal("helpdesk must not be called for an invalid request")
			}
		})
	}
}
