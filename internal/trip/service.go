package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/user"
)

// Users resolves the caller of a request.
type Users interface {
	ByIDOrGuest(ctx context.Context, id *uuid.UUID) (*user.User, error)
	Guest(ctx context.Context) (*user.User, error)
}

// ZoneLookup resolves the zone at a location.
type ZoneLookup interface {
	LookupZone(ctx context.Context, lat, lon float64) string
}

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	Repo   Repository
	Users  Users
	Logger zerolog.Logger
	Now    func() time.Time
}

// Service saves and loads routes on behalf of users.
type Service struct {
	repo   Repository
	users  Users
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repo,
		users:  cfg.Users,
		logger: cfg.Logger,
		now:    now,
	}
}

// Save creates or updates a route for caller (nil means guest).
//
// Without an ID a new route is created. An existing route is updated when
// the caller owns it; a route owned by someone else is updated and handed
// to the guest user. An unknown ID creates a new route under that ID.
// Waypoints are always replaced wholesale.
func (s *Service) Save(ctx context.Context, caller *uuid.UUID, in SaveInput) (*Route, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	owner, err := s.users.ByIDOrGuest(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	now := s.now().UTC()
	id := uuid.New()
	createdAt := now

	if in.ID != nil {
		id = *in.ID
		existing, err := s.repo.Get(ctx, id)
		switch {
		case err == nil:
			createdAt = existing.CreatedAt
			if existing.UserID != owner.ID {
				s.logger.Warn().
					Str("route_id", id.String()).
					Str("owner_id", existing.UserID.String()).
					Str("caller_id", owner.ID.String()).
					Msg("route saved by non-owner, reassigning to guest")
				if owner, err = s.users.Guest(ctx); err != nil {
					return nil, fmt.Errorf("resolving guest: %w", err)
				}
			}
		case errors.Is(err, ErrRouteNotFound):
			s.logger.Info().Str("route_id", id.String()).Msg("route not found, creating it")
		default:
			return nil, fmt.Errorf("loading route: %w", err)
		}
	}

	route := NewRoute(id, in.Name, owner.ID, createdAt, now, NewWaypoints(in.Waypoints))
	if err := s.repo.Save(ctx, &route); err != nil {
		return nil, fmt.Errorf("saving route: %w", err)
	}

	s.logger.Info().
		Str("route_id", route.ID.String()).
		Str("user_id", route.UserID.String()).
		Int("waypoints", len(route.Waypoints)).
		Msg("route saved")

	return &route, nil
}

// Get loads a route with its waypoints.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Route, error) {
	return s.repo.Get(ctx, id)
}

// List returns the routes owned by caller.
func (s *Service) List(ctx context.Context, caller *uuid.UUID, limit int) ([]Summary, error) {
	owner, err := s.users.ByIDOrGuest(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}
	return s.repo.ListByUser(ctx, owner.ID, limit)
}

// Search finds routes by name.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidRoute)
	}
	return s.repo.Search(ctx, query, limit)
}

// Delete removes a route owned by caller.
func (s *Service) Delete(ctx context.Context, caller *uuid.UUID, id uuid.UUID) error {
	owner, err := s.users.ByIDOrGuest(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	route, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if route.UserID != owner.ID {
		return ErrNotAuthorized
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("route_id", id.String()).Msg("route deleted")
	return nil
}

// FillZones resolves the zone of every waypoint of a saved route that has
// none, and stores the route when anything changed. It returns the number
// of waypoints updated.
func (s *Service) FillZones(ctx context.Context, id uuid.UUID, zones ZoneLookup) (int, error) {
	route, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	filled := 0
	for i := range route.Waypoints {
		wp := &route.Waypoints[i]
		if wp.Timezone != "" {
			continue
		}
		wp.Timezone = zones.LookupZone(ctx, wp.Latitude, wp.Longitude)
		filled++
	}
	if filled == 0 {
		return 0, nil
	}

	if err := s.repo.Save(ctx, route); err != nil {
		return 0, fmt.Errorf("saving route: %w", err)
	}
	return filled, nil
}
