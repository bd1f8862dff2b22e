package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// errPermanent marks messages that can never succeed; they are acked so
// they are not redelivered.
var errPermanent = errors.New("permanent job failure")

const tracerName = "github.com/tripweather/tripweather/internal/worker"

// Subscriber receives job messages from a Pub/Sub subscription and acks
// or nacks each one by the dispatcher's verdict.
type Subscriber struct {
	client       *pubsub.Client
	sub          *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	tracer       trace.Tracer
	logger       zerolog.Logger
}

type SubscriberConfig struct {
	ProjectID    string
	Subscription string
	Jobs         *Jobs
	Logger       zerolog.Logger

	// MaxOutstandingMessages defaults to 10.
	MaxOutstandingMessages int
}

func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.Subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = 10
	if cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	}
	sub.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Subscriber{
		client:       client,
		sub:          sub,
		subscription: cfg.Subscription,
		dispatcher:   NewDispatcher(cfg.Jobs, cfg.Logger),
		tracer:       otel.Tracer(tracerName),
		logger:       cfg.Logger.With().Str("subscription", cfg.Subscription).Logger(),
	}, nil
}

// Run receives messages until ctx is done or the subscription fails.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info().Int("max_outstanding", s.sub.ReceiveSettings.MaxOutstandingMessages).Msg("receiving jobs")
	return s.sub.Receive(ctx, s.receive)
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}

func (s *Subscriber) receive(ctx context.Context, msg *pubsub.Message) {
	ctx, span := s.tracer.Start(ctx, "worker.receive", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "gcp_pubsub"),
			attribute.String("messaging.destination.name", s.subscription),
			attribute.String("messaging.message.id", msg.ID),
		))
	defer span.End()

	log := s.logger.With().Str("message_id", msg.ID).Logger()
	if msg.DeliveryAttempt != nil {
		log = log.With().Int("delivery_attempt", *msg.DeliveryAttempt).Logger()
	}
	log.Debug().Time("published", msg.PublishTime).Msg("received job message")

	err := s.dispatcher.Handle(ctx, msg.Data)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, errPermanent):
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Msg("dropping job")
		msg.Ack()
	default:
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("job failed, requesting redelivery")
		msg.Nack()
	}
}

// Dispatcher decodes job messages and runs them.
type Dispatcher struct {
	jobs   *Jobs
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher for jobs.
func NewDispatcher(jobs *Jobs, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{jobs: jobs, logger: logger}
}

// Handle runs the job in data. Errors wrapping errPermanent mean the
// message should be dropped; any other error asks for redelivery.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	startTime := time.Now()

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Error().Err(err).Msg("failed to parse message")
		return fmt.Errorf("%w: %w", errPermanent, err)
	}

	var err error
	switch msg.JobType {
	case JobZoneWarmup:
		err = d.handleZoneWarmup(ctx, msg)
	case JobHealthCheck:
		err = d.handleHealthCheck(ctx)
	default:
		d.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return fmt.Errorf("%w: unknown job type %q", errPermanent, msg.JobType)
	}
	if err != nil {
		return err
	}

	d.logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return nil
}

func (d *Dispatcher) handleZoneWarmup(ctx context.Context, msg Message) error {
	ids, err := msg.Routes()
	if err != nil {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: zone_warmup without route ids", errPermanent)
	}

	result := d.jobs.WarmupRoutes(ctx, ids)

	retryable := 0
	for _, e := range result.Errors {
		if e.Retryable {
			retryable++
		}
	}
	if retryable > 0 {
		return fmt.Errorf("zone warm-up failed for %d of %d routes", retryable, result.Total)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	result := d.jobs.Probe(ctx)
	if result.Failed > 0 {
		for _, e := range result.Errors {
			d.logger.Warn().Str("target", e.Target).Str("error", e.Error).Msg("probe failed")
		}
		// Health checks are periodic; a redelivery would only repeat the probe.
		return fmt.Errorf("%w: health check failed: %d of %d probes", errPermanent, result.Failed, result.Total)
	}

	d.logger.Debug().Int("probes", result.Total).Msg("health check passed")
	return nil
}
