// Package main provides the entrypoint for the TripWeather API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api"
	"github.com/tripweather/tripweather/internal/api/handler"
	"github.com/tripweather/tripweather/internal/api/middleware"
	"github.com/tripweather/tripweather/internal/auth"
	"github.com/tripweather/tripweather/internal/database"
	"github.com/tripweather/tripweather/internal/evcharging"
	"github.com/tripweather/tripweather/internal/evcharging/nrel"
	"github.com/tripweather/tripweather/internal/geocoding"
	"github.com/tripweather/tripweather/internal/geocoding/geoapify"
	"github.com/tripweather/tripweather/internal/planner"
	"github.com/tripweather/tripweather/internal/provider/resilience"
	"github.com/tripweather/tripweather/internal/routing"
	"github.com/tripweather/tripweather/internal/routing/openrouteservice"
	"github.com/tripweather/tripweather/internal/telemetry"
	"github.com/tripweather/tripweather/internal/timezone"
	"github.com/tripweather/tripweather/internal/timezone/google"
	"github.com/tripweather/tripweather/internal/trip"
	"github.com/tripweather/tripweather/internal/user"
	"github.com/tripweather/tripweather/internal/weather"
	"github.com/tripweather/tripweather/internal/weather/nws"
	"github.com/tripweather/tripweather/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tripweather-api"

	envErr := godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if envErr != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting TripWeather API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	registry := resilience.NewRegistry()
	if providerMetrics, pmErr := telemetry.NewProviderMetrics(nil); pmErr != nil {
		log.Warn().Err(pmErr).Msg("provider metrics disabled")
	} else {
		registry.SetRecorder(providerMetrics)
	}

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		pool      *pgxpool.Pool
		userRepo  user.Repository
		tripRepo  trip.Repository
		zoneStore timezone.Store
		dbPinger  handler.Pinger
	)
	if database.Configured() {
		dbConfig := database.ConfigFromEnv()
		pool, err = database.Connect(ctx, dbConfig, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}

		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		userRepo = user.NewPostgresRepository(pool)
		tripRepo = trip.NewPostgresRepository(pool)
		zoneStore = timezone.NewPostgresStore(pool)
		dbPinger = pool
	} else {
		log.Warn().Msg("no database configured, routes and users are kept in memory")
		userRepo = user.NewInMemoryRepository()
		tripRepo = trip.NewInMemoryRepository()
	}

	userService := user.NewService(userRepo, log)

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: jwtSigningKey,
			Issuer:     os.Getenv("JWT_ISSUER"),
			Audience:   os.Getenv("JWT_AUDIENCE"),
		}),
		Users: userService,
	})

	tripService := trip.NewService(trip.ServiceConfig{
		Repo:   tripRepo,
		Users:  userService,
		Logger: log,
	})

	// Providers
	orsClient := openrouteservice.NewClient(openrouteservice.ClientConfig{
		APIKey:   os.Getenv("ORS_API_KEY"),
		Registry: registry,
		Logger:   log,
	})
	routingService := routing.NewService(routing.ServiceConfig{
		Provider: orsClient,
		Logger:   log,
	})

	geoapifyClient := geoapify.NewClient(geoapify.ClientConfig{
		APIKey:   os.Getenv("GEOAPIFY_API_KEY"),
		Registry: registry,
		Logger:   log,
	})
	geocodingService := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geoapifyClient,
		Logger:   log,
	})

	zones := timezone.NewResolver(timezone.ResolverConfig{
		Providers: zoneProviders(log, registry, geoapifyClient),
		Store:     zoneStore,
		Logger:    log,
	})

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: nws.NewClient(nws.ClientConfig{
			UserAgent: os.Getenv("NWS_USER_AGENT"),
			Registry:  registry,
			Logger:    log,
		}),
		Logger: log,
	})

	stations := evcharging.NewService(evcharging.ServiceConfig{
		Provider: nrel.NewClient(nrel.ClientConfig{
			APIKey:   os.Getenv("NREL_API_KEY"),
			Registry: registry,
			Logger:   log,
		}),
		Logger: log,
	})

	tripPlanner := planner.New(planner.Config{
		Router:      routingService,
		Zones:       zones,
		Logger:      log,
		DefaultZone: os.Getenv("DEFAULT_TIMEZONE"),
	})

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		RateLimits:  middleware.LimitsFromEnv(),
		AuthService: authService,
		Planner:     tripPlanner,
		Zones:       zones,
		Geocoder:    geocodingService,
		Stations:    stations,
		Trips:       tripService,
		Weather:     weatherService,
		Providers:   registry,
		DB:          dbPinger,
		Caches: map[string]handler.CacheReporter{
			"routing": routingService,
			"weather": weatherService,
		},
	}

	if publisher := newPublisher(ctx, log); publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close publisher")
			}
		}()
		routerCfg.Jobs = publisher
	}

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("providers", registry.Len()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// zoneProviders returns the zone lookup chain: Google first when a key is
// set, then Geoapify. An empty chain leaves the resolver on the longitude
// approximation.
func zoneProviders(log zerolog.Logger, registry *resilience.Registry, geo *geoapify.Client) []timezone.Provider {
	var providers []timezone.Provider

	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		client, err := google.NewClient(google.ClientConfig{
			APIKey:   key,
			Registry: registry,
			Logger:   log,
		})
		if err != nil {
			log.Error().Err(err).Msg("google timezone client disabled")
		} else {
			providers = append(providers, client)
		}
	}

	if os.Getenv("GEOAPIFY_API_KEY") != "" {
		providers = append(providers, geo)
	}

	if len(providers) == 0 {
		log.Warn().Msg("no timezone provider configured, zones are approximated from longitude")
	}
	return providers
}

// newPublisher connects the warm-up publisher when Pub/Sub is configured.
func newPublisher(ctx context.Context, log zerolog.Logger) *worker.Publisher {
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	topic := os.Getenv("PUBSUB_TOPIC")
	if projectID == "" || topic == "" {
		log.Info().Msg("pub/sub not configured, zone warm-up jobs disabled")
		return nil
	}

	publisher, err := worker.NewPublisher(ctx, worker.PublisherConfig{
		ProjectID: projectID,
		Topic:     topic,
		Logger:    log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create publisher, zone warm-up jobs disabled")
		return nil
	}

	log.Info().Str("topic", topic).Msg("zone warm-up publisher ready")
	return publisher
}
