package domain

// TicketStatus enumerates the helpdesk states the relay writes.
type TicketStatus string

const (
	TicketStatusOpen TicketStatus = "Open"
)

// MaxAttachments bounds the files accepted on one ticket request.
const MaxAttachments = 10

// TicketRequest carries the caller's ticket fields. It is assembled by the
// client from a previous extraction; the relay does not derive it.
// Department, contact and profile-specific fields are checked against the
// deployment configuration by the ticket service.
type TicketRequest struct {
	Subject         string       `json:"subject" validate:"required"`
	DepartmentID    string       `json:"departmentId"`
	TeamID          string       `json:"teamId"`
	Description     string       `json:"description" validate:"required"`
	Severity        string       `json:"severity" validate:"required"`
	AdditionalNotes string       `json:"additionalNotes"`
	ContactID       string       `json:"contactId"`
	ProjectName     string       `json:"projectName"`
	CreatedBy       string       `json:"createdBy"`
	Attachments     []Attachment `json:"files" validate:"max=10"`
}

// Attachment is an in-memory file received with a ticket request.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// TicketRecord identifies a ticket created upstream. It lives only for the
// duration of the inbound request.
type TicketRecord struct {
	ID           string
	TicketNumber string
}

// AccessToken is a short-lived bearer credential for the helpdesk API.
type AccessToken string

func (t AccessToken) String() string {
	return string(t)
}
