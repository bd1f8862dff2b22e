package itinerary

import (
	"errors"
	"fmt"

	"github.com/tripweather/tripweather/internal/clock"
)

// Kind classifies planning failures. A Kind is itself an error so callers
// can match with errors.Is(err, itinerary.UpstreamUnavailable).
type Kind string

// Failure kinds.
const (
	// InsufficientInput means fewer than two waypoints were supplied.
	InsufficientInput Kind = "insufficient input"
	// UpstreamUnavailable means a provider failed or returned no usable geometry.
	UpstreamUnavailable Kind = "upstream unavailable"
	// TemporalParseFailure means a date-time or zone could not be interpreted.
	TemporalParseFailure Kind = "temporal parse failure"
	// ConfigurationMissing means provider credentials are absent.
	ConfigurationMissing Kind = "configuration missing"
)

func (k Kind) Error() string { return string(k) }

// Error is a classified planning failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// ScheduleError reports why timed scheduling was abandoned.
type ScheduleError struct {
	// Waypoint is the index being processed when the failure occurred,
	// or -1 for the departure itself.
	Waypoint int
	Err      error
}

func (e *ScheduleError) Error() string {
	if e.Waypoint < 0 {
		return fmt.Sprintf("schedule departure: %v", e.Err)
	}
	return fmt.Sprintf("schedule waypoint %d: %v", e.Waypoint, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// Is reports true for TemporalParseFailure when the cause is an unreadable
// date-time or zone.
func (e *ScheduleError) Is(target error) bool {
	if target != TemporalParseFailure {
		return false
	}
	return errors.Is(e.Err, clock.ErrInvalidFormat) || errors.Is(e.Err, clock.ErrUnknownZone)
}
