// Package user manages the accounts that own saved routes.
//
// Users are identified by a random UUID and carry only a display name.
// Requests without credentials act as the shared "guest" user, which is
// created on first use.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestName is the name of the shared user for unauthenticated requests.
const GuestName = "guest"

// MaxNameLength bounds user names.
const MaxNameLength = 255

// Errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidName  = errors.New("invalid user name")
)

// User is an account.
type User struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// IsGuest reports whether u is the shared guest user.
func (u *User) IsGuest() bool {
	return u != nil && u.Name == GuestName
}

// New returns a user with a fresh ID.
func New(name string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return nil, ErrInvalidName
	}
	return &User{ID: uuid.New(), Name: name, CreatedAt: now.UTC()}, nil
}
