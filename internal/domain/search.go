package domain

import "time"

// QueryType is the search category. It is part of cache keys and button
// payloads, so each category paginates independently per chat.
type QueryType string

const (
	QuerySightings QueryType = "sightings"
	QueryNotable   QueryType = "notable"
	QuerySpecies   QueryType = "species"
	QueryNearby    QueryType = "nearby"
)

// Valid reports whether q is one of the known query types.
func (q QueryType) Valid() bool {
	switch q {
	case QuerySightings, QueryNotable, QuerySpecies, QueryNearby:
		return true
	}
	return false
}

// DateFilter is an absolute date window resolved from a preset or a custom
// range. Immutable once built; Start is never after End.
type DateFilter struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LookbackDays int       `json:"lookback_days"`
	Label        string    `json:"label"`
}

// Observation is one species-sighting record returned by the data-fetch
// collaborator.
type Observation struct {
	SpeciesCode    string    `json:"species_code"`
	CommonName     string    `json:"common_name"`
	ScientificName string    `json:"scientific_name"`
	Count          int       `json:"count"`
	ObservedAt     time.Time `json:"observed_at"`
	LocationID     string    `json:"location_id"`
	LocationName   string    `json:"location_name"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	CountryCode    string    `json:"country_code"`
}

// Hotspot is a named, fixed birding location with aggregate statistics.
type Hotspot struct {
	LocationID   string  `json:"location_id"`
	Name         string  `json:"name"`
	RegionCode   string  `json:"region_code"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	SpeciesCount int     `json:"species_count"`
}

// CachedResultSet is one completed search kept for pagination, summary and
// share views. Read-only after creation; a new search under the same
// (QueryType, ChatID) key replaces it wholesale.
type CachedResultSet struct {
	QueryType   QueryType
	ChatID      int64
	Items       []Observation
	DisplayName string
	RegionCode  string
	DateLabel   string
	Filter      DateFilter
	IsHotspot   bool
}
