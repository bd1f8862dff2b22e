package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service provides user lookups with guest fallback.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create creates a user with a unique name.
func (s *Service) Create(ctx context.Context, name string) (*User, error) {
	u, err := New(name, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("name", u.Name).Msg("created user")
	return u, nil
}

// GetOrCreate returns the user called name, creating it when absent.
func (s *Service) GetOrCreate(ctx context.Context, name string) (*User, error) {
	name = strings.TrimSpace(name)
	u, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	u, err = s.Create(ctx, name)
	if errors.Is(err, ErrUserExists) {
		// Lost a race with a concurrent create.
		return s.repo.GetByName(ctx, name)
	}
	return u, err
}

// Guest returns the shared guest user.
func (s *Service) Guest(ctx context.Context) (*User, error) {
	return s.GetOrCreate(ctx, GuestName)
}

// ByIDOrGuest returns the user with id, or the guest user when id is nil
// or unknown.
func (s *Service) ByIDOrGuest(ctx context.Context, id *uuid.UUID) (*User, error) {
	if id == nil {
		return s.Guest(ctx)
	}
	u, err := s.repo.Get(ctx, *id)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.Warn().Str("user_id", id.String()).Msg("unknown user, falling back to guest")
		return s.Guest(ctx)
	}
	return u, err
}
