package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"astro-service/models"
)

// handleDailyHoroscope proxies the daily sun sign prediction for /api/horoscope/daily/{sign}
func (s *Server) handleDailyHoroscope(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.deps.Counter.Record("horoscope_daily")

	// Extract sign from URL path
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/horoscope/daily/"), "/")
	if name == "" {
		writeError(w, r, badRequest("sign not specified"))
		return
	}
	sign, ok := parseSignName(name)
	if !ok {
		writeError(w, r, badRequest("unknown zodiac sign %q", name))
		return
	}

	date := s.now().UTC().Format(time.DateOnly)
	if v := r.URL.Query().Get("date"); v != "" {
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			writeError(w, r, badRequest("invalid date %q: want YYYY-MM-DD", v))
			return
		}
		date = v
	}

	if s.deps.Horoscopes == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errNoHoroscopes.Error()})
		return
	}

	horoscope, err := s.deps.Horoscopes.FetchDaily(r.Context(), sign, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=1800")
	writeJSON(w, http.StatusOK, horoscope)
}

var errNoHoroscopes = errors.New("horoscope source not configured")

// parseSignName accepts English or Ukrainian sign names
func parseSignName(name string) (models.ZodiacSign, bool) {
	if sign, ok := models.ParseSign(name); ok {
		return sign, true
	}
	for sign := models.Aries; sign <= models.Pisces; sign++ {
		if strings.EqualFold(sign.UkrainianName(), name) {
			return sign, true
		}
	}
	return 0, false
}
