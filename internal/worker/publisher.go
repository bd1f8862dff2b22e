package worker

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher queues worker jobs on a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the job publisher.
type PublisherConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPublisher creates a Publisher for cfg.Topic.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// PublishZoneWarmup queues a zone_warmup job for routeID and returns the
// server-assigned message id.
func (p *Publisher) PublishZoneWarmup(ctx context.Context, routeID uuid.UUID) (string, error) {
	data, err := NewZoneWarmupMessage(routeID)
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"job_type": JobZoneWarmup},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("message_id", id).
		Str("route_id", routeID.String()).
		Msg("queued zone warm-up")
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
