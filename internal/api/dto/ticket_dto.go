package dto

import "github.com/spec-kit/desk-relay/internal/domain"

// CreateTicketRequest payload. Accepted as JSON or multipart form fields.
type CreateTicketRequest struct {
	Subject         string `json:"subject" form:"subject"`
	DepartmentID    string `json:"departmentId" form:"departmentId"`
	TeamID          string `json:"teamId" form:"teamId"`
	Description     string `json:"description" form:"description"`
	Severity        string `json:"severity" form:"severity"`
	AdditionalNotes string `json:"additionalNotes" form:"additionalNotes"`
	ContactID       string `json:"contactId" form:"contactId"`
	ProjectName     string `json:"projectName" form:"projectName"`
	CreatedBy       string `json:"createdBy" form:"createdBy"`
}

// ToDomain maps the payload and its files onto a ticket request.
func (r CreateTicketRequest) ToDomain(files []domain.Attachment) domain.TicketRequest {
	return domain.TicketRequest{
		Subject:         r.Subject,
		DepartmentID:    r.DepartmentID,
		TeamID:          r.TeamID,
		Description:     r.Description,
		Severity:        r.Severity,
		AdditionalNotes: r.AdditionalNotes,
		ContactID:       r.ContactID,
		ProjectName:     r.ProjectName,
		CreatedBy:       r.CreatedBy,
		Attachments:     files,
	}
}

// CreateTicketResponse is returned once the ticket and all files are in.
type CreateTicketResponse struct {
	Message      string `json:"message"`
	TicketID     string `json:"ticketId"`
	TicketNumber string `json:"ticketNumber,omitempty"`
}
