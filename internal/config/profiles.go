package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/spec-kit/desk-relay/internal/domain"
)

const basicInstructions = "Extract the following details from the provided text and return them in a key value format and don't have any additional signs or next line characters.Make sure that the names of keys are the following only:"

// DefaultProfiles returns the built-in extraction profiles keyed by name.
// Deployment specific variants, such as lookup tables of helpdesk ids, come
// from the profiles file; see configs/profiles.example.yaml.
func DefaultProfiles() map[string]domain.ExtractionProfile {
	basic := domain.ExtractionProfile{
		Name:         "basic",
		Model:        "gpt-4o",
		Instructions: basicInstructions,
		OutputKeys: []domain.OutputKey{
			{Name: "Project_name"},
			{Name: "Department"},
			{Name: "Description"},
			{Name: "Severity"},
			{Name: "Due_Date", Note: "if mentioned"},
			{Name: "Additional_Notes", Note: "if any"},
		},
		ExampleInput: "This is for project HCL Tech, department marketing. The task is to create a social media campaign plan for our new yacht launch. The priority is high, and it needs to be completed by next Friday. Additional note: coordinate with the graphic design team for visuals.",
		ExampleOutput: `{
  "Project_name": "HCL Tech",
  "Department": "Marketing",
  "Description": "Create a social media campaign plan for our new yacht launch.",
  "Severity": "High",
  "Due_Date": "Next Friday",
  "Additional_Notes": "Coordinate with the graphic design team for visuals."
}`,
		MergeNotes: true,
	}

	return map[string]domain.ExtractionProfile{
		basic.Name: basic,
	}
}

type profilesFile struct {
	Profiles []domain.ExtractionProfile `mapstructure:"profiles"`
}

// LoadProfiles merges profiles from an optional YAML or JSON file over the
// built-in set. An empty path returns the built-ins.
func LoadProfiles(path string) (map[string]domain.ExtractionProfile, error) {
	profiles := DefaultProfiles()
	if strings.TrimSpace(path) == "" {
		return profiles, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var file profilesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode profiles file: %w", err)
	}
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// ExtractionProfile resolves the active profile, applying the LLM_MODEL
// override when set.
func (c *Config) ExtractionProfile() (domain.ExtractionProfile, error) {
	profiles, err := LoadProfiles(c.Extraction.ProfilesFile)
	if err != nil {
		return domain.ExtractionProfile{}, err
	}
	profile, ok := profiles[c.Extraction.Profile]
	if !ok {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		return domain.ExtractionProfile{}, fmt.Errorf("unknown extraction profile %q (available: %s)", c.Extraction.Profile, strings.Join(names, ", "))
	}
	if c.LLM.Model != "" {
		profile.Model = c.LLM.Model
	}
	return profile, nil
}
