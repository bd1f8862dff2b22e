package trip

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultListLimit caps listings and searches when no limit is given.
const DefaultListLimit = 50

// Repository defines the interface for route persistence.
type Repository interface {
	// Get retrieves a route with its waypoints ordered by sequence.
	Get(ctx context.Context, id uuid.UUID) (*Route, error)

	// Save inserts or replaces a route. Existing waypoints are replaced
	// wholesale, atomically with the route row.
	Save(ctx context.Context, route *Route) error

	// ListByUser returns the user's routes, most recently updated first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Summary, error)

	// Search returns routes whose name contains query, case-insensitively.
	Search(ctx context.Context, query string, limit int) ([]Summary, error)

	// Delete removes a route and its waypoints.
	Delete(ctx context.Context, id uuid.UUID) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used in tests and when no database is configured.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[uuid.UUID]*Route
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{routes: make(map[uuid.UUID]*Route)}
}

// Get retrieves a route.
func (r *InMemoryRepository) Get(_ context.Context, id uuid.UUID) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	return copyRoute(route), nil
}

// Save inserts or replaces a route.
func (r *InMemoryRepository) Save(_ context.Context, route *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[route.ID] = copyRoute(route)
	return nil
}

// ListByUser returns the user's routes.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]Summary, error) {
	return r.filter(limit, func(route *Route) bool { return route.UserID == userID }), nil
}

// Search returns routes whose name contains query.
func (r *InMemoryRepository) Search(_ context.Context, query string, limit int) ([]Summary, error) {
	query = strings.ToLower(query)
	return r.filter(limit, func(route *Route) bool {
		return strings.Contains(strings.ToLower(route.Name), query)
	}), nil
}

func (r *InMemoryRepository) filter(limit int, match func(*Route) bool) []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0)
	for _, route := range r.routes {
		if match(route) {
			out = append(out, route.Summarize())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes a route.
func (r *InMemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[id]; !ok {
		return ErrRouteNotFound
	}
	delete(r.routes, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
