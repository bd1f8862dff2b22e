package timezone

import (
	"fmt"
	"math"
)

// Approximate guesses a zone from longitude alone. North American bands map
// to their principal zones; elsewhere each 15 degrees is one hour, expressed
// as a fixed-offset Etc/GMT zone.
func Approximate(lon float64) string {
	switch {
	case lon >= -125 && lon < -115:
		return "America/Los_Angeles"
	case lon >= -115 && lon < -105:
		return "America/Denver"
	case lon >= -105 && lon < -90:
		return "America/Chicago"
	case lon >= -90 && lon < -75:
		return "America/New_York"
	case lon >= -75 && lon < -65:
		return "America/Halifax"
	}

	// Half hours round up, so -7.5 is -7.
	offset := int(math.Floor(lon/15 + 0.5))
	switch {
	case offset == 0:
		return "UTC"
	case offset < -12 || offset > 14:
		return Fallback
	case offset > 0:
		// Etc/GMT signs are inverted: Etc/GMT-2 is two hours east of Greenwich.
		return fmt.Sprintf("Etc/GMT-%d", offset)
	default:
		return fmt.Sprintf("Etc/GMT+%d", -offset)
	}
}
