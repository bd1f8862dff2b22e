// Package database connects to PostgreSQL and owns the schema.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Config struct {
	// URL, when set, is used as-is and the discrete fields are ignored.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns          int
	MinConns          int
	ConnMaxLifetime   time.Duration
	HealthCheckPeriod time.Duration

	// QueryLog is a pgx log level name (trace, debug, info, warn, error,
	// none). Empty disables query logging.
	QueryLog string
}

// ConfigFromEnv reads DATABASE_URL or the DB_* variables.
func ConfigFromEnv() Config {
	return Config{
		URL:               os.Getenv("DATABASE_URL"),
		Host:              env("DB_HOST", "localhost"),
		Port:              envInt("DB_PORT", 5432),
		User:              env("DB_USER", "tripweather"),
		Password:          env("DB_PASSWORD", "localdev"),
		Database:          env("DB_NAME", "tripweather"),
		SSLMode:           env("DB_SSLMODE", "disable"),
		MaxConns:          envInt("DB_MAX_CONNS", 10),
		MinConns:          envInt("DB_MIN_CONNS", 2),
		ConnMaxLifetime:   envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		HealthCheckPeriod: envDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		QueryLog:          os.Getenv("DB_QUERY_LOG"),
	}
}

// Configured reports whether a database was asked for. Without DATABASE_URL
// or DB_HOST the service runs on in-memory storage.
func Configured() bool {
	return os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
}

func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect opens a pool and pings it. Queries are logged to log at
// cfg.QueryLog.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // small configured value
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // small configured value
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	tracer, err := queryTracer(cfg.QueryLog, log)
	if err != nil {
		return nil, err
	}
	if tracer != nil {
		poolConfig.ConnConfig.Tracer = tracer
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func queryTracer(level string, log zerolog.Logger) (*tracelog.TraceLog, error) {
	if level == "" {
		return nil, nil
	}
	lvl, err := tracelog.LogLevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("DB_QUERY_LOG: %w", err)
	}
	return &tracelog.TraceLog{Logger: zerologAdapter(log), LogLevel: lvl}, nil
}

// zerologAdapter sends pgx trace events to log under component=pgx.
func zerologAdapter(log zerolog.Logger) tracelog.Logger {
	log = log.With().Str("component", "pgx").Logger()
	return tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		log.WithLevel(zerologLevel(level)).Fields(data).Msg(msg)
	})
}

func zerologLevel(l tracelog.LogLevel) zerolog.Level {
	switch l {
	case tracelog.LogLevelTrace:
		return zerolog.TraceLevel
	case tracelog.LogLevelDebug:
		return zerolog.DebugLevel
	case tracelog.LogLevelInfo:
		return zerolog.InfoLevel
	case tracelog.LogLevelWarn:
		return zerolog.WarnLevel
	case tracelog.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.NoLevel
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
