package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/tripweather/tripweather/internal/api/middleware"
)

// callerID returns the authenticated user, or nil for guests.
func callerID(ctx context.Context) *uuid.UUID {
	id, ok := middleware.GetUserID(ctx)
	if !ok {
		return nil
	}
	return &id
}
