package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tripweather/tripweather/internal/user"
)

// Users finds or creates the user a token is issued for.
type Users interface {
	GetOrCreate(ctx context.Context, name string) (*user.User, error)
}

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	users      Users
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	Users      Users
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		users:      cfg.Users,
	}
}

// IssueToken returns an access token for the user called name, creating
// the user on first use.
func (s *Service) IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	u, err := s.users.GetOrCreate(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(u.ID, u.Name)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtService.Expiry().Seconds()),
		UserID:      u.ID,
		Name:        u.Name,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateAccessToken validates a token and returns the user ID it carries.
func (s *Service) ValidateAccessToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID()
}
