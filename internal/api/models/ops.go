package models

import "github.com/tripweather/tripweather/internal/cache"

// Health is the liveness and readiness payload.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is returned by the ops status endpoint. Status is the worst
// of the subsystem statuses; an unhealthy provider only degrades it.
type SystemStatus struct {
	Status     HealthStatus           `json:"status"`
	Time       Timestamp              `json:"time"`
	Subsystems []SubsystemStatus      `json:"subsystems"`
	Providers  []ProviderStatus       `json:"providers"`
	Caches     map[string]cache.Stats `json:"caches,omitempty"`
}

type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus describes one upstream API: routing, geocoding, time zone,
// weather or charging stations.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Calls         uint64       `json:"calls"`
	Failures      uint64       `json:"failures"`
	LatencyMs     int64        `json:"lastLatencyMs"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
