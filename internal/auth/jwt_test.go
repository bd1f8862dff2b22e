package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/auth"
	"github.com/tripweather/tripweather/internal/user"
)

func newJWT(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newJWT("test-secret-key-for-testing-only", "https://api.tripweather.app", "tripweather-api")
	id := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(id, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "https://api.tripweather.app", claims.Issuer)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newJWT("test-secret-key-for-testing-only", "https://api.tripweather.app", "tripweather-api")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Mismatches(t *testing.T) {
	issuing := newJWT("key-one", "issuer-one", "audience-one")
	token, _, err := issuing.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)

	tests := map[string]*auth.JWTService{
		"signing key": newJWT("key-two", "issuer-one", "audience-one"),
		"issuer":      newJWT("key-one", "issuer-two", "audience-one"),
		"audience":    newJWT("key-one", "issuer-one", "audience-two"),
	}
	for name, validating := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := validating.ValidateAccessToken(token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	issued := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	now := issued

	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "iss",
		Audience:   "aud",
		Expiry:     15 * time.Minute,
		Now:        func() time.Time { return now },
	})

	token, expiresAt, err := svc.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)
	assert.Equal(t, issued.Add(15*time.Minute), expiresAt)

	now = issued.Add(20 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_Leeway(t *testing.T) {
	issued := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	now := issued

	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "iss",
		Audience:   "aud",
		Expiry:     15 * time.Minute,
		Leeway:     time.Minute,
		Now:        func() time.Time { return now },
	})
	token, _, err := svc.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)

	now = issued.Add(15*time.Minute + 30*time.Second)
	_, err = svc.ValidateAccessToken(token)
	assert.NoError(t, err, "within leeway")

	now = issued.Add(17 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestClaims_UserIDMalformed(t *testing.T) {
	c := &auth.Claims{}
	c.Subject = "guest"
	_, err := c.UserID()
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_NoSigningKey(t *testing.T) {
	svc := newJWT("", "iss", "aud")

	_, _, err := svc.GenerateAccessToken(uuid.New(), "alice")
	assert.ErrorIs(t, err, auth.ErrNoSigningKey)
	_, err = svc.ValidateAccessToken("a.b.c")
	assert.ErrorIs(t, err, auth.ErrNoSigningKey)
}

func TestService_IssueToken(t *testing.T) {
	users := user.NewService(user.NewInMemoryRepository(), zerolog.Nop())
	svc := auth.NewService(auth.ServiceConfig{
		JWTService: newJWT("test-key", "iss", "aud"),
		Users:      users,
	})
	ctx := context.Background()

	first, err := svc.IssueToken(ctx, &auth.TokenRequest{Name: " alice "})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", first.TokenType)
	assert.Equal(t, int64(3600), first.ExpiresIn)
	assert.Equal(t, "alice", first.Name)

	second, err := svc.IssueToken(ctx, &auth.TokenRequest{Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID, "same name maps to the same user")

	id, err := svc.ValidateAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, id)
}

func TestTokenRequest_Validate(t *testing.T) {
	tests := map[string]string{
		"":       "REQUIRED",
		"   ":    "REQUIRED",
		"Guest":  "RESERVED",
		"carlos": "",
	}
	for name, code := range tests {
		errs := (&auth.TokenRequest{Name: name}).Validate()
		if code == "" {
			assert.Empty(t, errs, name)
			continue
		}
		require.Len(t, errs, 1, name)
		assert.Equal(t, code, errs[0].Code)
	}
}
