package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenExpiry is how long access tokens are valid.
const AccessTokenExpiry = time.Hour

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrNoSigningKey       = errors.New("jwt signing key is not configured")
)

// Claims are the claims of an access token. The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims

	Name string `json:"name,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", ErrInvalidAccessToken)
	}
	return id, nil
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string

	// Expiry overrides AccessTokenExpiry.
	Expiry time.Duration

	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	key    []byte
	cfg    JWTConfig
	parser *jwt.Parser
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = AccessTokenExpiry
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTService{
		key: []byte(cfg.SigningKey),
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithTimeFunc(cfg.Now),
		),
	}
}

// Expiry is the lifetime of issued tokens.
func (s *JWTService) Expiry() time.Duration {
	return s.cfg.Expiry
}

// GenerateAccessToken signs a token for userID and returns it with its
// expiry time.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, name string) (string, time.Time, error) {
	if len(s.key) == 0 {
		return "", time.Time{}, ErrNoSigningKey
	}

	now := s.cfg.Now()
	expiresAt := now.Add(s.cfg.Expiry)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name: name,
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry.
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	if len(s.key) == 0 {
		return nil, ErrNoSigningKey
	}

	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	return &claims, nil
}
