// Package auth issues and validates the bearer tokens that identify users.
//
// Access tokens are short-lived HS256 JWTs carrying the user's ID. There are
// no refresh tokens: clients request a new token by name when one expires.
// Requests without a token are served as the guest user.
package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenRequest is the body of POST /v1/auth/token.
type TokenRequest struct {
	Name string `json:"name"`
}

// Validate validates the token request.
func (r *TokenRequest) Validate() []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		errs = append(errs, FieldError{Field: "name", Message: "name is required", Code: "REQUIRED"})
	case strings.EqualFold(name, "guest"):
		errs = append(errs, FieldError{Field: "name", Message: "name is reserved", Code: "RESERVED"})
	}

	return errs
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse is returned after a token is issued.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`

	// UserID is the user the token identifies.
	UserID uuid.UUID `json:"userId"`

	// Name is the user's name.
	Name string `json:"name"`

	// ExpiresAt is when the token expires.
	ExpiresAt time.Time `json:"expiresAt"`
}
