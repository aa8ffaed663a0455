package geotag

import (
	"fmt"
	"math"
	"time"
)

const (
	defaultGPSDate = "1900:1:1"

	gpsLayout       = "2006:1:2 15:4:5"
	timestampLayout = "2006-01-02T15:04:05Z"
)

// GPSTimestamp combines a GPS date stamp and time-of-day triple into a
// YYYY-MM-DDTHH:MM:SSZ string. An empty date defaults to 1900:1:1 and a nil
// clock to midnight.
//
// Hour and minute are truncated while the second is rounded up, so
// fractional seconds above 59 produce an invalid time and an error.
func GPSTimestamp(date string, clock []float64) (string, error) {
	if date == "" {
		date = defaultGPSDate
	}
	h, m, s := gpsClock(clock)

	t, err := time.ParseInLocation(gpsLayout, fmt.Sprintf("%s %d:%d:%d", date, h, m, s), time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return t.Format(timestampLayout), nil
}

func gpsClock(clock []float64) (h, m, s int) {
	v := triple(clock)
	return int(math.Trunc(v[0])), int(math.Trunc(v[1])), int(math.Ceil(v[2]))
}

// Degrees converts a degrees, minutes, seconds triple into decimal degrees.
// The result is negated when ref equals negRef.
func Degrees(dms []float64, ref, negRef string) float64 {
	v := triple(dms)
	deg := v[0] + v[1]/60 + v[2]/3600
	if ref == negRef {
		return -deg
	}
	return deg
}

// triple pads or truncates vals to exactly three values.
func triple(vals []float64) [3]float64 {
	var out [3]float64
	copy(out[:], vals)
	return out
}
