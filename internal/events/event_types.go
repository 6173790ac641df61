package events

import "time"

// EventType enumerates relay event identifiers.
type EventType string

const (
	EventTextExtracted      EventType = "text_extracted"
	EventTicketSubmitted    EventType = "ticket_submitted"
	EventAttachmentUploaded EventType = "attachment_uploaded"
)

// Event is emitted by services after an outbound step succeeds.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TextExtractedPayload payload. The completion itself is not included.
type TextExtractedPayload struct {
	Profile     string `json:"profile"`
	Model       string `json:"model"`
	InputChars  int    `json:"input_chars"`
	OutputChars int    `json:"output_chars"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	TicketNumber    string `json:"ticket_number"`
	DepartmentID    string `json:"department_id"`
	TeamID          string `json:"team_id,omitempty"`
	Priority        string `json:"priority"`
	Subject         string `json:"subject"`
	AttachmentCount int    `json:"attachment_count"`
}

// AttachmentUploadedPayload payload.
type AttachmentUploadedPayload struct {
	FileName  string `json:"file_name"`
	SizeBytes int    `json:"size_bytes"`
	Position  int    `json:"position"`
}
