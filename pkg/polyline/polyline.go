// Package polyline encodes and decodes route geometry in Google's polyline
// format, including the elevation-carrying variant returned by
// OpenRouteService when elevation is requested.
//
// Algorithm reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

const (
	coordPrecision     = 1e5
	elevationPrecision = 1e2
)

// Coordinate is a geographic point. Elevation is in meters and is zero when
// the source carried none.
type Coordinate struct {
	Lat       float64
	Lon       float64
	Elevation float64
}

// Decode decodes a 2D polyline (lat, lon pairs at precision 5).
func Decode(encoded string) []Coordinate {
	return decode(encoded, false)
}

// DecodeElevation decodes a 3D polyline (lat, lon at precision 5 followed
// by elevation at precision 2 for each point).
func DecodeElevation(encoded string) []Coordinate {
	return decode(encoded, true)
}

func decode(encoded string, withElevation bool) []Coordinate {
	if encoded == "" {
		return nil
	}

	var (
		coords        []Coordinate
		index         int
		lat, lon, ele int
		delta         int
	)

	for index < len(encoded) {
		delta, index = decodeValue(encoded, index)
		lat += delta
		delta, index = decodeValue(encoded, index)
		lon += delta

		c := Coordinate{
			Lat: float64(lat) / coordPrecision,
			Lon: float64(lon) / coordPrecision,
		}
		if withElevation {
			delta, index = decodeValue(encoded, index)
			ele += delta
			c.Elevation = float64(ele) / elevationPrecision
		}
		coords = append(coords, c)
	}

	return coords
}

// decodeValue reads one zig-zag varint starting at index and returns the
// value and the next index.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes coordinates as a 2D polyline. Elevation is ignored.
func Encode(coords []Coordinate) string {
	return encode(coords, false)
}

// EncodeElevation encodes coordinates as a 3D polyline.
func EncodeElevation(coords []Coordinate) string {
	return encode(coords, true)
}

func encode(coords []Coordinate, withElevation bool) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*6)
	var prevLat, prevLon, prevEle int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * coordPrecision))
		lon := int(math.Round(c.Lon * coordPrecision))
		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon

		if withElevation {
			ele := int(math.Round(c.Elevation * elevationPrecision))
			buf = encodeValue(buf, ele-prevEle)
			prevEle = ele
		}
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// LonLat converts coordinates to GeoJSON order: [lon, lat] points, or
// [lon, lat, elevation] when withElevation is set.
func LonLat(coords []Coordinate, withElevation bool) [][]float64 {
	out := make([][]float64, len(coords))
	for i, c := range coords {
		if withElevation {
			out[i] = []float64{c.Lon, c.Lat, c.Elevation}
		} else {
			out[i] = []float64{c.Lon, c.Lat}
		}
	}
	return out
}

// FromLonLat converts GeoJSON-ordered points back to coordinates. Points
// with fewer than two values are skipped.
func FromLonLat(points [][]float64) []Coordinate {
	out := make([]Coordinate, 0, len(points))
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		c := Coordinate{Lon: p[0], Lat: p[1]}
		if len(p) > 2 {
			c.Elevation = p[2]
		}
		out = append(out, c)
	}
	return out
}

// Length returns the haversine length of the line in meters.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversineDistance(coords[i-1], coords[i])
	}
	return total
}

// Sample returns points spaced roughly intervalMeters apart along the line,
// always keeping the first and last point. Used to thin long geometries
// before sending them to providers with request size limits.
func Sample(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return coords
	}

	sampled := []Coordinate{coords[0]}
	accumulated := 0.0

	for i := 1; i < len(coords); i++ {
		from, to := coords[i-1], coords[i]
		segmentDist := haversineDistance(from, to)

		for segmentDist > 0 && accumulated+segmentDist >= intervalMeters {
			fraction := (intervalMeters - accumulated) / segmentDist
			from = Coordinate{
				Lat: from.Lat + fraction*(to.Lat-from.Lat),
				Lon: from.Lon + fraction*(to.Lon-from.Lon),
			}
			sampled = append(sampled, from)

			segmentDist = haversineDistance(from, to)
			accumulated = 0
		}

		accumulated += segmentDist
	}

	last := coords[len(coords)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}

const earthRadiusMeters = 6371000

func haversineDistance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
