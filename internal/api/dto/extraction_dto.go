package dto

// ProcessTextRequest payload. Whitespace-only text is accepted.
type ProcessTextRequest struct {
	Text string `json:"text" form:"text" validate:"required"`
}
