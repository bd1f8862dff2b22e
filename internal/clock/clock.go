// Package clock provides minute-precision wall-clock handling across IANA time zones.
//
// Date-times cross package boundaries as strings in the fixed layout
// "2006-01-02 15:04" with no UTC offset embedded; the zone travels alongside.
// Internally they are carried as LocalDateTime values.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Layout is the only accepted date-time pattern (yyyy-MM-dd HH:mm).
const Layout = "2006-01-02 15:04"

// DateLayout and TimeLayout are the halves of Layout.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DefaultZone is used when a caller supplies no zone at all.
const DefaultZone = "America/Los_Angeles"

var (
	// ErrInvalidFormat is returned when a string does not match Layout.
	ErrInvalidFormat = errors.New("date-time does not match yyyy-MM-dd HH:mm")
	// ErrUnknownZone is returned when a zone identifier cannot be loaded.
	ErrUnknownZone = errors.New("unknown time zone")
)

// NowFunc returns the current instant. Injected wherever "now" matters.
type NowFunc func() time.Time

var zones sync.Map // zone name -> *time.Location

// LoadZone resolves an IANA zone identifier. The empty string and "Local"
// are rejected so that a missing zone never silently becomes the host zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	if loc, ok := zones.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	zones.Store(name, loc)
	return loc, nil
}

// IsValidZone reports whether name is a loadable IANA zone identifier.
func IsValidZone(name string) bool {
	_, err := LoadZone(name)
	return err == nil
}

// LocalDateTime is a wall-clock reading bound to an IANA zone.
type LocalDateTime struct {
	t    time.Time
	zone string
}

// Parse reads dateTime in Layout as a wall-clock in zone.
func Parse(dateTime, zone string) (LocalDateTime, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return LocalDateTime{}, err
	}
	s := strings.TrimSpace(dateTime)
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("%w: %q", ErrInvalidFormat, dateTime)
	}
	// A wall clock inside a spring-forward gap does not exist; move it later
	// by the length of the gap so 02:30 on a 02:00->03:00 day becomes 03:30.
	wall, _ := time.ParseInLocation(Layout, s, time.UTC)
	if got, _ := time.ParseInLocation(Layout, t.Format(Layout), time.UTC); !got.Equal(wall) {
		t = t.Add(wall.Sub(got))
	}
	return LocalDateTime{t: t, zone: zone}, nil
}

// ToZoned joins a date ("2006-01-02") and a time ("15:04") and parses the
// result in zone.
func ToZoned(date, clockTime, zone string) (LocalDateTime, error) {
	return Parse(strings.TrimSpace(date)+" "+strings.TrimSpace(clockTime), zone)
}

// FromTime renders an instant in zone.
func FromTime(t time.Time, zone string) (LocalDateTime, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return LocalDateTime{}, err
	}
	return LocalDateTime{t: t.In(loc), zone: zone}, nil
}

// NowIn returns the current instant in zone, truncated to the minute.
func NowIn(zone string, now NowFunc) (LocalDateTime, error) {
	if now == nil {
		now = time.Now
	}
	ldt, err := FromTime(now(), zone)
	if err != nil {
		return LocalDateTime{}, err
	}
	return ldt.truncate(), nil
}

// Time returns the underlying instant.
func (l LocalDateTime) Time() time.Time { return l.t }

// Zone returns the IANA identifier the wall-clock is read in.
func (l LocalDateTime) Zone() string { return l.zone }

// IsZero reports whether l was never set.
func (l LocalDateTime) IsZero() bool { return l.t.IsZero() }

// String formats the wall-clock in Layout.
func (l LocalDateTime) String() string { return l.t.Format(Layout) }

// Date formats the date half.
func (l LocalDateTime) Date() string { return l.t.Format(DateLayout) }

// Clock formats the time-of-day half.
func (l LocalDateTime) Clock() string { return l.t.Format(TimeLayout) }

// In renders the same instant in another zone.
func (l LocalDateTime) In(zone string) (LocalDateTime, error) {
	if zone == l.zone {
		return l, nil
	}
	return FromTime(l.t, zone)
}

// AddMinutes advances the instant by minutes. Addition is on the absolute
// timeline, so crossing a DST transition moves the wall-clock accordingly.
func (l LocalDateTime) AddMinutes(minutes int) LocalDateTime {
	return LocalDateTime{t: l.t.Add(time.Duration(minutes) * time.Minute), zone: l.zone}
}

// Before reports whether l is earlier than o.
func (l LocalDateTime) Before(o LocalDateTime) bool { return l.t.Before(o.t) }

// Equal reports whether l and o denote the same instant.
func (l LocalDateTime) Equal(o LocalDateTime) bool { return l.t.Equal(o.t) }

// IsDST reports whether daylight saving time is in effect at l.
func (l LocalDateTime) IsDST() bool { return l.t.IsDST() }

func (l LocalDateTime) truncate() LocalDateTime {
	return LocalDateTime{t: l.t.Truncate(time.Minute), zone: l.zone}
}

// ConvertStrict reads dateTime as a wall-clock in fromZone and renders the
// same instant in toZone.
func ConvertStrict(dateTime, fromZone, toZone string) (string, error) {
	ldt, err := Parse(dateTime, fromZone)
	if err != nil {
		return "", err
	}
	if fromZone == toZone {
		return dateTime, nil
	}
	out, err := ldt.In(toZone)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// Convert is ConvertStrict that returns dateTime unchanged on failure.
func Convert(dateTime, fromZone, toZone string) string {
	out, err := ConvertStrict(dateTime, fromZone, toZone)
	if err != nil {
		return dateTime
	}
	return out
}

// AddMinutesStrict reads dateTime in zone, adds minutes and renders the
// result in the same zone.
func AddMinutesStrict(dateTime, zone string, minutes int) (string, error) {
	ldt, err := Parse(dateTime, zone)
	if err != nil {
		return "", err
	}
	return ldt.AddMinutes(minutes).String(), nil
}

// AddMinutes is AddMinutesStrict that returns dateTime unchanged on failure.
func AddMinutes(dateTime, zone string, minutes int) string {
	out, err := AddMinutesStrict(dateTime, zone, minutes)
	if err != nil {
		return dateTime
	}
	return out
}

// CurrentTime formats "now" in zone. An unknown zone falls back to the
// host zone.
func CurrentTime(zone string, now NowFunc) string {
	if now == nil {
		now = time.Now
	}
	ldt, err := NowIn(zone, now)
	if err != nil {
		return now().Format(Layout)
	}
	return ldt.String()
}
