// Package main provides the entrypoint for the TripWeather background worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/database"
	"github.com/tripweather/tripweather/internal/geocoding/geoapify"
	"github.com/tripweather/tripweather/internal/provider/resilience"
	"github.com/tripweather/tripweather/internal/telemetry"
	"github.com/tripweather/tripweather/internal/timezone"
	"github.com/tripweather/tripweather/internal/timezone/google"
	"github.com/tripweather/tripweather/internal/trip"
	"github.com/tripweather/tripweather/internal/user"
	"github.com/tripweather/tripweather/internal/weather"
	"github.com/tripweather/tripweather/internal/weather/nws"
	"github.com/tripweather/tripweather/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tripweather-worker"

	envErr := godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if envErr != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	log.Info().Str("build_time", BuildTime).Msg("starting TripWeather worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !database.Configured() {
		log.Fatal().Msg("worker requires DATABASE_URL or DB_HOST")
	}
	pool, err := database.Connect(ctx, database.ConfigFromEnv(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	registry := resilience.NewRegistry()
	if providerMetrics, pmErr := telemetry.NewProviderMetrics(nil); pmErr == nil {
		registry.SetRecorder(providerMetrics)
	}

	trips := trip.NewService(trip.ServiceConfig{
		Repo:   trip.NewPostgresRepository(pool),
		Users:  user.NewService(user.NewPostgresRepository(pool), log),
		Logger: log,
	})

	var providers []timezone.Provider
	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		client, gErr := google.NewClient(google.ClientConfig{APIKey: key, Registry: registry, Logger: log})
		if gErr != nil {
			log.Error().Err(gErr).Msg("google timezone client disabled")
		} else {
			providers = append(providers, client)
		}
	}
	if key := os.Getenv("GEOAPIFY_API_KEY"); key != "" {
		providers = append(providers, geoapify.NewClient(geoapify.ClientConfig{APIKey: key, Registry: registry, Logger: log}))
	}

	zones := timezone.NewResolver(timezone.ResolverConfig{
		Providers: providers,
		Store:     timezone.NewPostgresStore(pool),
		Logger:    log,
	})

	cfg := worker.ConfigFromEnv()
	jobsCfg := worker.JobsConfig{
		Config: cfg,
		Logger: log,
		Routes: trips,
		Zones:  zones,
	}
	if cfg.ProbeWeather {
		jobsCfg.Weather = weather.NewService(weather.ServiceConfig{
			Provider: nws.NewClient(nws.ClientConfig{
				UserAgent: os.Getenv("NWS_USER_AGENT"),
				Registry:  registry,
				Logger:    log,
			}),
			Logger: log,
		})
	}
	jobs := worker.NewJobs(jobsCfg)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"metrics": jobs.MetricsSnapshot(),
		})
	})
	r.Get("/providers", func(w http.ResponseWriter, r *http.Request) {
		health := registry.All()
		out := make([]map[string]any, 0, len(health))
		for _, h := range health {
			out = append(out, map[string]any{
				"name":      h.Name,
				"status":    h.Status(),
				"calls":     h.Calls,
				"failures":  h.Failures,
				"lastError": h.LastError,
			})
		}
		response.JSON(w, r, http.StatusOK, out)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")

	if projectID != "" && subscription != "" {
		subscriber, err := worker.NewSubscriber(ctx, worker.SubscriberConfig{
			ProjectID:              projectID,
			Subscription:           subscription,
			Jobs:                   jobs,
			Logger:                 log,
			MaxOutstandingMessages: cfg.MaxOutstandingMessages,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub subscriber")
		}
		defer func() {
			if err := subscriber.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
				cancel()
			}
		}()
	} else {
		log.Warn().Dur("interval", cfg.ProbeInterval).Msg("pub/sub not configured, running periodic probes only")
		go runProbes(ctx, jobs, cfg.ProbeInterval, log)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func runProbes(ctx context.Context, jobs *worker.Jobs, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result := jobs.Probe(ctx)
		log.Info().
			Int("targets", result.Total).
			Int("failed", result.Failed).
			Dur("duration", result.Duration).
			Msg("probe run finished")

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
