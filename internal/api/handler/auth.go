package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/auth"
	"github.com/tripweather/tripweather/internal/user"
)

// TokenIssuer issues access tokens. *auth.Service implements it.
type TokenIssuer interface {
	IssueToken(ctx context.Context, req *auth.TokenRequest) (*auth.TokenResponse, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	issuer TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// IssueToken handles POST /v1/auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req auth.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		fieldErrors := make([]models.FieldError, len(errs))
		for i, e := range errs {
			fieldErrors[i] = models.FieldError{
				Field:   e.Field,
				Message: e.Message,
				Code:    e.Code,
			}
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	tokenResp, err := h.issuer.IssueToken(r.Context(), &req)
	if err != nil {
		if errors.Is(err, user.ErrInvalidName) {
			response.BadRequest(w, r, "invalid name", []models.FieldError{
				{Field: "name", Message: err.Error(), Code: "INVALID"},
			})
			return
		}
		response.InternalError(w, r, "token issuance failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}
