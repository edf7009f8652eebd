package domain

import "time"

// Step identifies where a chat currently is in a multi-step dialog.
type Step string

const (
	// StepIdle indicates no multi-step flow is in progress.
	StepIdle Step = "idle"
	// StepAwaitingRegion waits for a region or place name for a sightings/notable search.
	StepAwaitingRegion Step = "awaiting_region"
	// StepDateSelection waits for a date-preset button press.
	StepDateSelection Step = "date_selection"
	// StepAwaitingCustomDate waits for a typed custom date or date range.
	StepAwaitingCustomDate Step = "awaiting_custom_date"
	// StepAwaitingNearbyDistance waits for a search radius after a location share.
	StepAwaitingNearbyDistance Step = "awaiting_nearby_distance"
	// StepAwaitingSpeciesName waits for a species name for a species search.
	StepAwaitingSpeciesName Step = "awaiting_species_name"
	// StepAwaitingSpeciesLocation waits for the region of a species search.
	StepAwaitingSpeciesLocation Step = "awaiting_species_location"
	// StepHotspotSelection waits for the user to pick one of several matched hotspots.
	StepHotspotSelection Step = "hotspot_selection"
	// StepAwaitingJumpPage waits for a typed page number.
	StepAwaitingJumpPage Step = "awaiting_jump_page"
)

// ConversationState is the single dialog record kept per chat. It is
// overwritten on every transition and deleted when a flow completes, is
// cancelled, or an unrelated command starts.
type ConversationState struct {
	ChatID      int64     `json:"chat_id"`
	Step        Step      `json:"step"`
	QueryType   QueryType `json:"query_type,omitempty"`
	RegionCode  string    `json:"region_code,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	SpeciesCode string    `json:"species_code,omitempty"`
	SpeciesName string    `json:"species_name,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	IsHotspot   bool      `json:"is_hotspot,omitempty"`
	Candidates  []Hotspot `json:"candidates,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PromptRecord remembers the last prompt shown to a chat so it can be
// re-issued after a downstream failure, together with the step to restore.
type PromptRecord struct {
	ChatID int64  `json:"chat_id"`
	Prompt string `json:"prompt"`
	Step   Step   `json:"step"`
}
