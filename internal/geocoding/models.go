// Package geocoding turns coordinates into place names and free text into
// candidate places.
package geocoding

import (
	"context"
	"errors"
	"time"
)

// Geocoding errors.
var (
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	ErrNotFound            = errors.New("no place found")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidQuery        = errors.New("search query is empty")
	ErrNotConfigured       = errors.New("geocoding provider is not configured")
)

// Provider defines the interface for geocoding providers.
type Provider interface {
	// Reverse returns the nearest place to a coordinate.
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)

	// Search returns up to limit places matching text.
	Search(ctx context.Context, text string, limit int) ([]Place, error)

	// Name returns the provider name for logging.
	Name() string
}

// Place is a geocoded location.
type Place struct {
	Name        string
	Latitude    float64
	Longitude   float64
	City        string
	State       string
	Country     string
	CountryCode string
	Postcode    string
	ResultType  string

	// Timezone is nil when the provider did not report one.
	Timezone *ZoneInfo

	FetchedAt time.Time
}

// ZoneInfo is the time zone a provider reports for a place.
type ZoneInfo struct {
	Name             string
	OffsetStd        string
	OffsetStdSeconds int
	OffsetDst        string
	OffsetDstSeconds int
	AbbreviationStd  string
	AbbreviationDst  string
}

// Placeholders used when a reverse lookup has nothing to report.
const (
	UnknownName         = "Unknown"
	UnknownAbbreviation = "UNK"
	UnknownOffset       = "-00:00"
)

// Summary is the flattened answer for a reverse lookup. It is always fully
// populated, with placeholders for anything missing.
type Summary struct {
	LocationName    string
	Zone            string
	AbbreviationStd string
	OffsetStd       string
	AbbreviationDst string
	OffsetDst       string
}

// Summarize flattens p into a Summary. A nil place gives all placeholders.
func Summarize(p *Place) Summary {
	s := Summary{
		LocationName:    UnknownName,
		AbbreviationStd: UnknownAbbreviation,
		OffsetStd:       UnknownOffset,
		AbbreviationDst: UnknownAbbreviation,
		OffsetDst:       UnknownOffset,
	}
	if p == nil {
		return s
	}
	if p.Name != "" {
		s.LocationName = p.Name
	}
	if tz := p.Timezone; tz != nil {
		s.Zone = tz.Name
		s.AbbreviationStd = orDefault(tz.AbbreviationStd, UnknownAbbreviation)
		s.OffsetStd = orDefault(tz.OffsetStd, UnknownOffset)
		s.AbbreviationDst = orDefault(tz.AbbreviationDst, UnknownAbbreviation)
		s.OffsetDst = orDefault(tz.OffsetDst, UnknownOffset)
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
