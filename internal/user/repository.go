package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the interface for user data persistence.
type Repository interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByName retrieves a user by exact name.
	GetByName(ctx context.Context, name string) (*User, error)

	// Create stores a new user. Returns ErrUserExists when the name is taken.
	Create(ctx context.Context, user *User) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used in tests and when no database is configured.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*User
	byName map[string]uuid.UUID
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:  make(map[uuid.UUID]*User),
		byName: make(map[string]uuid.UUID),
	}
}

// Get retrieves a user by ID.
func (r *InMemoryRepository) Get(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cpy := *u
	return &cpy, nil
}

// GetByName retrieves a user by name.
func (r *InMemoryRepository) GetByName(_ context.Context, name string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, ErrUserNotFound
	}
	cpy := *r.users[id]
	return &cpy, nil
}

// Create stores a new user.
func (r *InMemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[u.Name]; taken {
		return ErrUserExists
	}
	if _, taken := r.users[u.ID]; taken {
		return ErrUserExists
	}

	cpy := *u
	r.users[u.ID] = &cpy
	r.byName[u.Name] = u.ID
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
