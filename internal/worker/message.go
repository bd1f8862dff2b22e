package worker

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Job types carried in Message.JobType.
const (
	JobZoneWarmup  = "zone_warmup"
	JobHealthCheck = "health_check"
)

// Message is the Pub/Sub payload for a worker job.
type Message struct {
	JobType string `json:"job_type"`

	// RouteID names one saved route for zone_warmup.
	RouteID string `json:"route_id,omitempty"`

	// RouteIDs batches several routes into one zone_warmup job.
	RouteIDs []string `json:"route_ids,omitempty"`
}

// NewZoneWarmupMessage encodes a zone_warmup job for ids.
func NewZoneWarmupMessage(ids ...uuid.UUID) ([]byte, error) {
	msg := Message{JobType: JobZoneWarmup}
	if len(ids) == 1 {
		msg.RouteID = ids[0].String()
	} else {
		for _, id := range ids {
			msg.RouteIDs = append(msg.RouteIDs, id.String())
		}
	}
	return json.Marshal(msg)
}

// Routes returns the distinct route ids named by m.
func (m Message) Routes() ([]uuid.UUID, error) {
	raw := m.RouteIDs
	if m.RouteID != "" {
		raw = append([]string{m.RouteID}, raw...)
	}

	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid route id %q: %w", s, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
