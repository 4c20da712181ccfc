package models

import (
	"time"
)

// LastAspect is the final exact major aspect the Moon makes before leaving a sign
type LastAspect struct {
	Planet Planet     `json:"planet"`
	Type   AspectType `json:"type"`
	Time   time.Time  `json:"time"`
}

// VoidPeriod is the window between the Moon's last major aspect in a sign and its
// ingress into the next sign
type VoidPeriod struct {
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"` // next sign ingress
	LastAspect      *LastAspect `json:"lastAspect"`
	MoonSign        ZodiacSign  `json:"moonSign"`
	NextSign        ZodiacSign  `json:"nextSign"`
	DurationMinutes int         `json:"durationMinutes"`
}

// Overlaps reports whether the period intersects [from, to)
func (v VoidPeriod) Overlaps(from, to time.Time) bool {
	return v.Start.Before(to) && v.End.After(from)
}

// MoonPhase describes the Sun-Moon relationship at an instant
type MoonPhase struct {
	Name         string  `json:"name"`
	NameUK       string  `json:"nameUk"`
	Elongation   float64 `json:"elongation"`   // degrees east of the Sun, 0-360
	Illumination float64 `json:"illumination"` // fraction 0-1
	Waxing       bool    `json:"waxing"`
}

// CalendarDay is one entry of the moon calendar
type CalendarDay struct {
	Date        string       `json:"date"` // YYYY-MM-DD, UTC
	Phase       MoonPhase    `json:"phase"`
	MoonSign    ZodiacSign   `json:"moonSign"`
	MoonSignUK  string       `json:"moonSignUk"`
	VoidPeriods []VoidPeriod `json:"voidPeriods"`
}
