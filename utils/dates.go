package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const ISODateLayout = "2006-01-02"

var location *time.Location

func init() {
	tz := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tz == "" {
		tz = "America/Guayaquil"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	location = loc
}

// Location returns the cooperative's local timezone. All day boundaries and
// date windows are computed in this zone.
func Location() *time.Location {
	return location
}

// ISODate formats an instant as YYYY-MM-DD in local time.
func ISODate(t time.Time) string {
	return t.In(location).Format(ISODateLayout)
}

// ParseISODateNoon parses YYYY-MM-DD anchored at local noon. Anchoring at
// noon keeps window-edge dates from rounding into the neighbouring day when
// they cross timezone conversions.
func ParseISODateNoon(fecha string) (time.Time, error) {
	d, err := time.ParseInLocation(ISODateLayout, strings.TrimSpace(fecha), location)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(12 * time.Hour), nil
}

// DayBounds returns the inclusive [00:00:00.000, 23:59:59.999] local-time
// bounds of a calendar date.
func DayBounds(fecha string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(ISODateLayout, strings.TrimSpace(fecha), location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end, nil
}

// flexible layouts seen in legacy fechaModificacion values
var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	ISODateLayout,
	"02/01/2006",
}

// ParseFlexibleTime normalizes the polymorphic legacy timestamp field, which
// may arrive as a native time, an epoch (seconds or milliseconds), or one of
// several string layouts. Unparseable input returns ok=false; callers count
// it as a skip, never a crash.
func ParseFlexibleTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.In(location), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.In(location), true
	case int64:
		return epochToTime(t), true
	case float64:
		return epochToTime(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochToTime(n), true
		}
		for _, layout := range legacyLayouts {
			if parsed, err := time.ParseInLocation(layout, s, location); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// epochToTime accepts seconds or milliseconds; anything past the year 2286
// in seconds is treated as milliseconds.
func epochToTime(n int64) time.Time {
	if n > 1e11 {
		return time.UnixMilli(n).In(location)
	}
	return time.Unix(n, 0).In(location)
}
