package nutrition

import (
	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/distribution"
	"github.com/fdg312/nutriplan/internal/interactions"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/requirements"
)

// RequirementsReport — всё, что нужно нутрициологу и генератору плана по одному профилю
type RequirementsReport struct {
	Profile            profiles.PatientProfile       `json:"profile"`
	DetectedConditions []string                      `json:"detected_conditions"`
	Targets            requirements.Result           `json:"targets"`
	Distribution       distribution.Plan             `json:"distribution"`
	Interactions       interactions.Report           `json:"interactions"`
	SupplementMacros   interactions.Macros           `json:"supplement_macros"`
	MedicationNotes    []interactions.MedicationNote `json:"medication_notes"`
	Restrictions       []string                      `json:"restrictions"`
	AvoidTags          []string                      `json:"avoid_tags"`
	PreferTags         []string                      `json:"prefer_tags"`
	Considerations     []string                      `json:"considerations,omitempty"`
}

// RequirementsRequest accepts an inline profile or a stored one.
type RequirementsRequest struct {
	ProfileID *uuid.UUID               `json:"profile_id,omitempty"`
	Profile   *profiles.PatientProfile `json:"profile,omitempty"`
}

type InteractionsRequest struct {
	Medications []string                  `json:"medications"`
	Supplements []profiles.SupplementDose `json:"supplements"`
}

type InteractionsResponse struct {
	Report           interactions.Report           `json:"report"`
	SupplementMacros interactions.Macros           `json:"supplement_macros"`
	MedicationNotes  []interactions.MedicationNote `json:"medication_notes"`
}

type DetectRequest struct {
	Text string `json:"text"`
}

type ConditionRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Pregnancy   bool   `json:"pregnancy,omitempty"`
}

type ConditionsResponse struct {
	Conditions []ConditionRef `json:"conditions"`
}
