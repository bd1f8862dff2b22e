package models

// TimezoneResponse is the body of GET /v1/timezone.
type TimezoneResponse struct {
	Timezone     string `json:"timezone"`
	Abbreviation string `json:"abbreviation"`
}

// ZoneSummary describes a place's zone. Unknown parts are "UNK".
type ZoneSummary struct {
	Name            string `json:"name"`
	OffsetStd       string `json:"offsetStd"`
	OffsetDst       string `json:"offsetDst"`
	AbbreviationStd string `json:"abbreviationStd"`
	AbbreviationDst string `json:"abbreviationDst"`
}

// ReverseLocationResponse is the body of GET /v1/locations/reverse.
type ReverseLocationResponse struct {
	LocationName string      `json:"locationName"`
	Timezone     ZoneSummary `json:"timezone"`
}

// Place is one search hit.
type Place struct {
	Name        string       `json:"name"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country,omitempty"`
	CountryCode string       `json:"countryCode,omitempty"`
	Postcode    string       `json:"postcode,omitempty"`
	ResultType  string       `json:"resultType,omitempty"`
	Timezone    *ZoneSummary `json:"timezone,omitempty"`
}

// PlaceList is the body of GET /v1/locations/search.
type PlaceList struct {
	Items []Place           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// WeatherResponse is the forecast for one place and instant. On failure
// only Error is set.
type WeatherResponse struct {
	Condition       string     `json:"condition,omitempty"`
	Category        string     `json:"category,omitempty"`
	Temperature     *int       `json:"temperature,omitempty"`
	TemperatureUnit string     `json:"temperatureUnit,omitempty"`
	WindSpeed       string     `json:"windSpeed,omitempty"`
	WindDirection   string     `json:"windDirection,omitempty"`
	Precipitation   *int       `json:"precipitationChance,omitempty"`
	PeriodStart     *Timestamp `json:"periodStart,omitempty"`
	PeriodEnd       *Timestamp `json:"periodEnd,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// ChargingStationsRequest is the body of POST /v1/charging-stations/along-route.
// Parameters are passed through to the station provider.
type ChargingStationsRequest struct {
	Route      [][]float64    `json:"route"`
	Parameters map[string]any `json:"parameters,omitempty"`
}
