// Package api provides the HTTP API for TripWeather.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api/handler"
	"github.com/tripweather/tripweather/internal/api/middleware"
	"github.com/tripweather/tripweather/internal/planner"
	"github.com/tripweather/tripweather/internal/provider/resilience"
)

// AuthService issues and validates access tokens. *auth.Service implements it.
type AuthService interface {
	handler.TokenIssuer
	middleware.TokenValidator
}

// ZoneService resolves zones for coordinates. *timezone.Resolver implements it.
type ZoneService interface {
	handler.ZoneDescriber
	planner.ZoneLookup
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// RateLimits defaults to middleware.DefaultLimits when zero.
	RateLimits middleware.Limits

	AuthService AuthService
	Planner     handler.Planner
	Zones       ZoneService
	Geocoder    handler.Geocoder
	Stations    handler.StationFinder
	Trips       handler.Trips

	// Weather is optional; without it the weather endpoints answer 503.
	Weather handler.WeatherReporter

	// Jobs is optional; without it saved routes get no zone warm-up.
	Jobs handler.JobPublisher

	// Providers, DB and Caches feed the ops endpoints. All may be nil.
	Providers *resilience.Registry
	DB        handler.Pinger
	Caches    map[string]handler.CacheReporter
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tripweather-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // JSON request bodies only

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, cfg.Providers).ReportCaches(cfg.Caches)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Weather)
	weatherHandler := handler.NewWeatherHandler(cfg.Weather, cfg.Zones, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.Geocoder, cfg.Zones, cfg.Logger)
	chargingHandler := handler.NewChargingHandler(cfg.Stations)
	tripHandler := handler.NewTripHandler(cfg.Trips, cfg.Jobs, cfg.Logger)

	optionalAuth := middleware.OptionalAuth(cfg.AuthService)
	limits := cfg.RateLimits
	if limits == (middleware.Limits{}) {
		limits = middleware.DefaultLimits()
	}
	authRateLimit := middleware.RateLimit(limits.Auth)
	providerRateLimit := middleware.RateLimit(limits.Provider)
	standardRateLimit := middleware.RateLimit(limits.Standard)

	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit)
			r.Post("/token", authHandler.IssueToken)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Everything below works for guests; a token attributes the
		// request to its user.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			// Endpoints that call paid upstream providers
			r.Group(func(r chi.Router) {
				r.Use(providerRateLimit)
				r.Post("/route", routeHandler.Calculate)
				r.Post("/route/weather", routeHandler.Weather)
				r.Get("/weather", weatherHandler.Forecast)
				r.Get("/timezone", locationHandler.Timezone)
				r.Get("/locations/reverse", locationHandler.Reverse)
				r.Get("/locations/search", locationHandler.Search)
				r.Post("/charging-stations/along-route", chargingHandler.AlongRoute)
			})

			r.Route("/trips", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", tripHandler.List)
				r.Post("/", tripHandler.Save)
				r.Get("/search", tripHandler.Search)
				r.Route("/{routeID}", func(r chi.Router) {
					r.Get("/", tripHandler.Get)
					r.Delete("/", tripHandler.Delete)
					r.Post("/warmup", tripHandler.Warmup)
				})
			})
		})
	})

	return r
}
