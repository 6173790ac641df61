package domain

import (
	"fmt"
	"strings"
)

// Ticket request fields a profile may additionally require.
const (
	FieldTeamID      = "teamId"
	FieldProjectName = "projectName"
	FieldCreatedBy   = "createdBy"
	FieldDepartment  = "departmentId"
	FieldContactID   = "contactId"
)

// OutputKey is one key the model is told to emit.
type OutputKey struct {
	Name string `mapstructure:"name" json:"name"`
	Note string `mapstructure:"note" json:"note,omitempty"`
}

// LookupEntry maps a human-readable name to a helpdesk identifier.
type LookupEntry struct {
	Name string `mapstructure:"name" json:"name"`
	ID   string `mapstructure:"id" json:"id"`
}

// LookupTable is embedded in the prompt so the model resolves names to ids.
// The relay never validates the mapping itself.
type LookupTable struct {
	Key     string        `mapstructure:"key" json:"key"`
	Entries []LookupEntry `mapstructure:"entries" json:"entries"`
}

// ExtractionProfile describes one deployment variant of the extractor and
// the ticket mapping rules that go with it.
type ExtractionProfile struct {
	Name                 string        `mapstructure:"name" json:"name"`
	Model                string        `mapstructure:"model" json:"model"`
	Instructions         string        `mapstructure:"instructions" json:"instructions"`
	OutputKeys           []OutputKey   `mapstructure:"output_keys" json:"output_keys"`
	Lookups              []LookupTable `mapstructure:"lookups" json:"lookups,omitempty"`
	ExampleInput         string        `mapstructure:"example_input" json:"example_input"`
	ExampleOutput        string        `mapstructure:"example_output" json:"example_output"`
	MergeNotes           bool          `mapstructure:"merge_notes" json:"merge_notes"`
	RequiredTicketFields []string      `mapstructure:"required_ticket_fields" json:"required_ticket_fields,omitempty"`
}

// Validate checks that the profile can render a usable prompt.
func (p ExtractionProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name required")
	}
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("profile %s: model required", p.Name)
	}
	if len(p.OutputKeys) == 0 {
		return fmt.Errorf("profile %s: at least one output key required", p.Name)
	}
	for _, f := range p.RequiredTicketFields {
		switch f {
		case FieldTeamID, FieldProjectName, FieldCreatedBy, FieldDepartment, FieldContactID:
		default:
			return fmt.Errorf("profile %s: unknown required ticket field %q", p.Name, f)
		}
	}
	return nil
}

// Requires reports whether the profile demands the given ticket field.
func (p ExtractionProfile) Requires(field string) bool {
	for _, f := range p.RequiredTicketFields {
		if f == field {
			return true
		}
	}
	return false
}

// Prompt renders the fixed instruction template followed by the caller's
// text, appended verbatim.
func (p ExtractionProfile) Prompt(text string) string {
	var b strings.Builder
	b.WriteString(p.Instructions)
	b.WriteString("\n")
	for i, key := range p.OutputKeys {
		fmt.Fprintf(&b, "%d. %s", i+1, key.Name)
		if key.Note != "" {
			fmt.Fprintf(&b, " (%s)", key.Note)
		}
		b.WriteString("\n")
	}
	for _, table := range p.Lookups {
		fmt.Fprintf(&b, "\nUse the identifier for %s from this table instead of the name:\n", table.Key)
		for _, entry := range table.Entries {
			fmt.Fprintf(&b, "%s: %s\n", entry.Name, entry.ID)
		}
	}
	if p.ExampleInput != "" {
		fmt.Fprintf(&b, "\nExample Input:\n%q\n", p.ExampleInput)
	}
	if p.ExampleOutput != "" {
		fmt.Fprintf(&b, "\nExample Output:\n%s\n", p.ExampleOutput)
	}
	b.WriteString("\nInput: ")
	b.WriteString(text)
	return b.String()
}
