package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"astro-service/logger"
	"astro-service/models"
	"astro-service/moon"

	"github.com/sirupsen/logrus"
)

const (
	defaultVoidWindow   = 7 * 24 * time.Hour
	defaultCalendarDays = 7
)

// parseInstant accepts RFC 3339 timestamps and bare YYYY-MM-DD dates (midnight UTC)
func parseInstant(name, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest("invalid %s %q: want RFC 3339 or YYYY-MM-DD", name, value)
}

// handleVoidPeriods returns the void-of-course periods ending in (start, end]
func (s *Server) handleVoidPeriods(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.deps.Counter.Record("moon_void")

	query := r.URL.Query()
	start := s.now().UTC().Truncate(time.Hour)
	if v := query.Get("start"); v != "" {
		t, err := parseInstant("start", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		start = t
	}
	end := start.Add(defaultVoidWindow)
	if v := query.Get("end"); v != "" {
		t, err := parseInstant("end", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		end = t
	}

	if !end.After(start) {
		writeError(w, r, moon.ErrInvalidRange)
		return
	}
	if end.Sub(start) > time.Duration(s.deps.MaxRangeDays)*24*time.Hour {
		writeError(w, r, badRequest("range longer than %d days", s.deps.MaxRangeDays))
		return
	}

	periods, err := s.voidPeriods(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"start":       start,
		"end":         end,
		"voidPeriods": periods,
		"count":       len(periods),
	})
}

// handleCalendar returns per-day phase, sign and void periods
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.deps.Counter.Record("moon_calendar")

	query := r.URL.Query()
	from := s.now().UTC().Truncate(24 * time.Hour)
	if v := query.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, r, badRequest("invalid from %q: want YYYY-MM-DD", v))
			return
		}
		from = t
	}
	days := defaultCalendarDays
	if v := query.Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 || d > s.deps.MaxRangeDays {
			writeError(w, r, badRequest("days must be between 1 and %d", s.deps.MaxRangeDays))
			return
		}
		days = d
	}

	calendar, err := moon.Calendar(s.deps.Ephemeris, storedVoids{ctx: r.Context(), server: s}, from, days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from": from.Format(time.DateOnly),
		"days": calendar,
	})
}

// voidPeriods serves a range from the void store when it has been computed before,
// otherwise computes it and stores the result. Store failures fall back to computing.
func (s *Server) voidPeriods(ctx context.Context, from, to time.Time) ([]models.VoidPeriod, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"request_id": RequestID(ctx),
		"from":       from.Format(time.RFC3339),
		"to":         to.Format(time.RFC3339),
	})

	if s.deps.Voids != nil {
		covered, err := s.deps.Voids.Covered(ctx, from, to)
		if err != nil {
			log.WithError(err).Warn("Void store lookup failed, computing")
		} else if covered {
			periods, err := s.deps.Voids.VoidPeriodsBetween(ctx, from, to)
			if err == nil {
				log.Debug("Void periods served from store")
				return periods, nil
			}
			log.WithError(err).Warn("Void store read failed, computing")
		}
	}

	periods, err := s.deps.Detector.VoidPeriods(from, to)
	if err != nil {
		return nil, err
	}

	if s.deps.Voids != nil {
		if err := s.deps.Voids.SaveVoidPeriods(ctx, from, to, periods); err != nil {
			log.WithError(err).Warn("Failed to save void periods")
		}
	}
	return periods, nil
}

// storedVoids lets moon.Calendar read through the server's void store
type storedVoids struct {
	ctx    context.Context
	server *Server
}

func (v storedVoids) VoidPeriods(start, end time.Time) ([]models.VoidPeriod, error) {
	return v.server.voidPeriods(v.ctx, start, end)
}
