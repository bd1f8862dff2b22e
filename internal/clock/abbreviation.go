package clock

import (
	"fmt"
	"strings"
	"time"
)

var standardAbbreviations = map[string]string{
	"America/Los_Angeles": "PST",
	"America/Denver":      "MST",
	"America/Chicago":     "CST",
	"America/New_York":    "EST",
	"America/Halifax":     "AST",
	"America/Phoenix":     "MST",
	"America/Anchorage":   "AKST",
	"Pacific/Honolulu":    "HST",
	"America/Vancouver":   "PST",
	"America/Winnipeg":    "CST",
	"America/Toronto":     "EST",
	"America/Montreal":    "EST",
	"America/Mexico_City": "CST",
	"UTC":                 "UTC",
}

var daylightAbbreviations = map[string]string{
	"America/Los_Angeles": "PDT",
	"America/Denver":      "MDT",
	"America/Chicago":     "CDT",
	"America/New_York":    "EDT",
	"America/Halifax":     "ADT",
	"America/Anchorage":   "AKDT",
	"America/Vancouver":   "PDT",
	"America/Winnipeg":    "CDT",
	"America/Toronto":     "EDT",
	"America/Montreal":    "EDT",
	"America/Mexico_City": "CDT",
}

// StandardAbbreviation returns the standard-time abbreviation for zone.
// Zones outside the table get the first three letters of their city.
func StandardAbbreviation(zone string) string {
	if abbr, ok := standardAbbreviations[zone]; ok {
		return abbr
	}
	if label, ok := etcLabel(zone); ok {
		return label
	}
	name := zone
	if _, city, ok := strings.Cut(zone, "/"); ok {
		name = strings.ReplaceAll(city, "_", " ")
	}
	if len(name) > 3 {
		name = name[:3]
	}
	return strings.ToUpper(name)
}

// DaylightAbbreviation returns the daylight-saving abbreviation for zone,
// falling back to the standard one.
func DaylightAbbreviation(zone string) string {
	if abbr, ok := daylightAbbreviations[zone]; ok {
		return abbr
	}
	return StandardAbbreviation(zone)
}

// Abbreviation returns the abbreviation in effect for zone at dateTime.
// An empty dateTime means now. Unparseable input yields the city name.
func Abbreviation(zone, dateTime string, now NowFunc) string {
	var (
		ldt LocalDateTime
		err error
	)
	if dateTime == "" {
		ldt, err = NowIn(zone, now)
	} else {
		ldt, err = Parse(dateTime, zone)
	}
	if err != nil {
		if _, city, ok := strings.Cut(zone, "/"); ok {
			return strings.ReplaceAll(city, "_", " ")
		}
		return zone
	}
	if ldt.IsDST() {
		return DaylightAbbreviation(zone)
	}
	return StandardAbbreviation(zone)
}

// etcLabel turns the POSIX-style "Etc/GMT-2" (two hours east) into "GMT+2".
func etcLabel(zone string) (string, bool) {
	rest, ok := strings.CutPrefix(zone, "Etc/GMT")
	if !ok || len(rest) < 2 {
		return "", false
	}
	switch rest[0] {
	case '-':
		return "GMT+" + rest[1:], true
	case '+':
		return "GMT-" + rest[1:], true
	}
	return "", false
}

// OffsetLabel formats a UTC offset in seconds as "+05:30" style text.
func OffsetLabel(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// Offsets returns the standard and daylight UTC offsets of zone in the
// given year, in seconds. A zone without DST reports the same value twice.
func Offsets(zone string, year int) (std, dst int, err error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return 0, 0, err
	}
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	if jan > jul {
		return jul, jan, nil
	}
	return jan, jul, nil
}
