// Package evcharging finds electric-vehicle charging stations near a route.
package evcharging

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Charging station errors.
var (
	ErrInvalidRoute        = errors.New("invalid route geometry")
	ErrNotConfigured       = errors.New("charging station provider is not configured")
	ErrProviderUnavailable = errors.New("charging station provider unavailable")
)

// Provider finds stations near a route given as a WKT LINESTRING.
type Provider interface {
	StationsNearRoute(ctx context.Context, wkt string, params map[string]any) (*FeatureCollection, error)
	Name() string
}

// FeatureCollection is a GeoJSON collection of charging stations.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Features []Feature `json:"features"`
}

// EmptyCollection is the answer when nothing could be found.
func EmptyCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Metadata describes the result set.
type Metadata struct {
	StationLocatorURL string         `json:"station_locator_url,omitempty"`
	TotalResults      int            `json:"total_results"`
	StationCounts     map[string]any `json:"station_counts,omitempty"`
}

// Feature is one station.
type Feature struct {
	Type       string   `json:"type"`
	Geometry   Geometry `json:"geometry"`
	Properties Station  `json:"properties"`
}

// Geometry is a GeoJSON point, [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Station holds the attributes of a charging station.
type Station struct {
	ID                   int            `json:"id"`
	StationName          string         `json:"station_name"`
	StationPhone         string         `json:"station_phone,omitempty"`
	StreetAddress        string         `json:"street_address,omitempty"`
	City                 string         `json:"city,omitempty"`
	State                string         `json:"state,omitempty"`
	Zip                  string         `json:"zip,omitempty"`
	Country              string         `json:"country,omitempty"`
	AccessCode           string         `json:"access_code,omitempty"`
	AccessDaysTime       string         `json:"access_days_time,omitempty"`
	DateLastConfirmed    string         `json:"date_last_confirmed,omitempty"`
	FuelTypeCode         string         `json:"fuel_type_code,omitempty"`
	GroupsWithAccessCode string         `json:"groups_with_access_code,omitempty"`
	OpenDate             string         `json:"open_date,omitempty"`
	EVConnectorTypes     []string       `json:"ev_connector_types,omitempty"`
	EVDCFastNum          *int           `json:"ev_dc_fast_num,omitempty"`
	EVLevel1EVSENum      *int           `json:"ev_level1_evse_num,omitempty"`
	EVLevel2EVSENum      *int           `json:"ev_level2_evse_num,omitempty"`
	EVNetwork            string         `json:"ev_network,omitempty"`
	EVNetworkWeb         string         `json:"ev_network_web,omitempty"`
	EVWorkplaceCharging  *bool          `json:"ev_workplace_charging,omitempty"`
	EVChargingUnits      []ChargingUnit `json:"ev_charging_units,omitempty"`
}

// ChargingUnit is a group of ports at a station.
type ChargingUnit struct {
	Network        string               `json:"network,omitempty"`
	Connectors     map[string]Connector `json:"connectors,omitempty"`
	PortCount      int                  `json:"port_count"`
	ChargingLevel  string               `json:"charging_level,omitempty"`
	FundingSources []string             `json:"funding_sources,omitempty"`
}

// Connector is one connector type on a charging unit.
type Connector struct {
	PowerKW   float64 `json:"power_kw"`
	PortCount int     `json:"port_count"`
}

// ToWKT renders [lon, lat] points as "LINESTRING (lon lat, lon lat, ...)".
func ToWKT(route [][]float64) (string, error) {
	if len(route) < 2 {
		return "", ErrInvalidRoute
	}

	var b strings.Builder
	b.WriteString("LINESTRING (")
	for i, p := range route {
		if len(p) < 2 {
			return "", ErrInvalidRoute
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(p[0], 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p[1], 'f', -1, 64))
	}
	b.WriteByte(')')
	return b.String(), nil
}
