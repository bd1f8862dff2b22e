package openrouteservice

import "github.com/tripweather/tripweather/internal/routing"

type orsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Elevation    bool        `json:"elevation,omitempty"`
	Instructions bool        `json:"instructions"`
	Geometry     bool        `json:"geometry"`
	Units        string      `json:"units"`
}

// orsResponse is the JSON flavour of the directions response, with the
// geometry as an encoded polyline.
type orsResponse struct {
	Routes []orsRoute `json:"routes"`
}

type orsRoute struct {
	Summary struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"summary"`
	Segments []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"segments"`
	BBox     bbox   `json:"bbox"`
	Geometry string `json:"geometry"`
}

// bbox is [minLon, minLat, maxLon, maxLat], or with elevation
// [minLon, minLat, minEle, maxLon, maxLat, maxEle].
type bbox []float64

func (b bbox) box() *routing.BoundingBox {
	switch len(b) {
	case 4:
		return &routing.BoundingBox{MinLon: b[0], MinLat: b[1], MaxLon: b[2], MaxLat: b[3]}
	case 6:
		return &routing.BoundingBox{MinLon: b[0], MinLat: b[1], MaxLon: b[3], MaxLat: b[4]}
	default:
		return nil
	}
}

type orsErrorResponse struct {
	Error struct {
		Code    errorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

type errorCode int

// unroutable reports the ORS codes for "route not found" (2009) and
// "point not found" (2010).
func (c errorCode) unroutable() bool { return c == 2009 || c == 2010 }
