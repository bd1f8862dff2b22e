package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrNoPeriod            = errors.New("no forecast available for selected date/time")
)

// Forecast is a sequence of forecast periods for one location.
type Forecast struct {
	// Location coordinates
	Lat float64
	Lon float64

	// Periods are in chronological order.
	Periods []Period

	// When the upstream generated the forecast and when we fetched it
	GeneratedAt time.Time
	FetchedAt   time.Time
}

// Period is one forecast interval, typically a half day.
type Period struct {
	Number    int
	Name      string
	StartTime time.Time
	EndTime   time.Time
	IsDaytime bool

	// Temperature is nil when the upstream omitted it.
	Temperature     *int
	TemperatureUnit string

	// Wind is reported as text, e.g. "10 to 15 mph" and "NW".
	WindSpeed     string
	WindDirection string

	ShortForecast    string
	DetailedForecast string

	// PrecipitationChance is a percentage, nil when not reported.
	PrecipitationChance *int
}

// PeriodAt returns the period covering t (start <= t < end), or the first
// period when none does. It returns nil only for an empty forecast.
func (f *Forecast) PeriodAt(t time.Time) *Period {
	if f == nil || len(f.Periods) == 0 {
		return nil
	}
	for i := range f.Periods {
		p := &f.Periods[i]
		if !t.Before(p.StartTime) && t.Before(p.EndTime) {
			return p
		}
	}
	return &f.Periods[0]
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// conditionKeywords is checked in order; the first match wins.
var conditionKeywords = []struct {
	keyword   string
	condition Condition
}{
	{"thunder", ConditionThunderstorm},
	{"snow", ConditionSnow},
	{"sleet", ConditionSnow},
	{"blizzard", ConditionSnow},
	{"drizzle", ConditionDrizzle},
	{"rain", ConditionRain},
	{"shower", ConditionRain},
	{"fog", ConditionFog},
	{"haze", ConditionHaze},
	{"smoke", ConditionHaze},
	{"cloud", ConditionClouds},
	{"overcast", ConditionClouds},
	{"sunny", ConditionClear},
	{"clear", ConditionClear},
	{"fair", ConditionClear},
}

// ClassifyCondition maps free-text forecast wording to a Condition.
func ClassifyCondition(shortForecast string) Condition {
	text := strings.ToLower(shortForecast)
	for _, kw := range conditionKeywords {
		if strings.Contains(text, kw.keyword) {
			return kw.condition
		}
	}
	return ConditionUnknown
}

// Report is the weather answer for one place and instant.
type Report struct {
	Condition       string
	Category        Condition
	Temperature     *int
	TemperatureUnit string
	WindSpeed       string
	WindDirection   string
	Precipitation   *int
	StartTime       time.Time
	EndTime         time.Time

	// Error is set instead of the fields above when no forecast was found.
	Error string
}

// NewReport builds a Report from p, filling the upstream's gaps.
func NewReport(p *Period) Report {
	r := Report{
		Condition:       orUnknown(p.ShortForecast),
		Category:        ClassifyCondition(p.ShortForecast),
		Temperature:     p.Temperature,
		TemperatureUnit: p.TemperatureUnit,
		WindSpeed:       orUnknown(p.WindSpeed),
		WindDirection:   orUnknown(p.WindDirection),
		Precipitation:   p.PrecipitationChance,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
	}
	if r.TemperatureUnit == "" {
		r.TemperatureUnit = "F"
	}
	return r
}

// ErrorReport is a Report carrying only an error message.
func ErrorReport(msg string) Report {
	return Report{Error: msg}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
