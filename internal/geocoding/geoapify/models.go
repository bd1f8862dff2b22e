package geoapify

// featureCollection is the GeoJSON answer of the geocode endpoints.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	Properties properties `json:"properties"`
	BBox       []float64  `json:"bbox,omitempty"`
}

type properties struct {
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	State       string    `json:"state"`
	City        string    `json:"city"`
	Postcode    string    `json:"postcode"`
	Lon         float64   `json:"lon"`
	Lat         float64   `json:"lat"`
	ResultType  string    `json:"result_type"`
	Formatted   string    `json:"formatted"`
	Timezone    *timezone `json:"timezone,omitempty"`
	PlaceID     string    `json:"place_id"`
}

type timezone struct {
	Name             string `json:"name"`
	OffsetSTD        string `json:"offset_STD"`
	OffsetSTDSeconds int    `json:"offset_STD_seconds"`
	OffsetDST        string `json:"offset_DST"`
	OffsetDSTSeconds int    `json:"offset_DST_seconds"`
	AbbreviationSTD  string `json:"abbreviation_STD"`
	AbbreviationDST  string `json:"abbreviation_DST"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
