package models

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeocodeResult is one normalized match for a free-text place search.
// Timezone is an IANA name, or "" when the provider did not annotate it.
type GeocodeResult struct {
	Formatted string      `json:"formatted"`
	City      string      `json:"city,omitempty"`
	State     string      `json:"state,omitempty"`
	County    string      `json:"county,omitempty"`
	Country   string      `json:"country,omitempty"`
	Timezone  string      `json:"timezone"`
	Geometry  Coordinates `json:"geometry"`
	Flag      string      `json:"flag,omitempty"`
}

// GeocodeResponse is the body of GET /api/geocode.
type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}
