package moon

import (
	"fmt"
	"time"

	"astro-service/models"
)

// calendarLookahead covers voids that begin inside the calendar but end after it
const calendarLookahead = 3 * 24 * time.Hour

// VoidSource yields void periods whose ingress falls in (start, end]. *Detector is one.
type VoidSource interface {
	VoidPeriods(start, end time.Time) ([]models.VoidPeriod, error)
}

// Calendar builds per-day moon calendar entries for days UTC dates starting at from.
// Phase and sign are taken at noon UTC.
func Calendar(eph Ephemeris, voids VoidSource, from time.Time, days int) ([]models.CalendarDay, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidRange, days)
	}
	from = from.UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, days)

	periods, err := voids.VoidPeriods(from, to.Add(calendarLookahead))
	if err != nil {
		return nil, fmt.Errorf("void periods: %w", err)
	}

	calendar := make([]models.CalendarDay, 0, days)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		noon := day.Add(12 * time.Hour)
		sunLon, err := eph.Longitude(models.Sun, noon)
		if err != nil {
			return nil, fmt.Errorf("sun longitude: %w", err)
		}
		moonLon, err := eph.Longitude(models.Moon, noon)
		if err != nil {
			return nil, fmt.Errorf("moon longitude: %w", err)
		}

		sign := models.SignOf(moonLon)
		entry := models.CalendarDay{
			Date:        day.Format("2006-01-02"),
			Phase:       Phase(sunLon, moonLon),
			MoonSign:    sign,
			MoonSignUK:  sign.UkrainianName(),
			VoidPeriods: []models.VoidPeriod{},
		}
		next := day.AddDate(0, 0, 1)
		for _, v := range periods {
			if v.Overlaps(day, next) {
				entry.VoidPeriods = append(entry.VoidPeriods, v)
			}
		}
		calendar = append(calendar, entry)
	}
	return calendar, nil
}
