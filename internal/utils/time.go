package utils

import (
	"time"
	_ "time/tzdata"
)

const DisplayLayout = "2006-01-02 15:04"

// CairoLocation is the merchant's timezone; falls back to a fixed UTC+2 zone.
func CairoLocation() *time.Location {
	loc, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

// DisplayTime renders t for humans in the given location.
func DisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = CairoLocation()
	}
	return t.In(loc).Format(DisplayLayout)
}

// DayBounds returns [start, end) of the calendar day containing t in loc, as UTC.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
