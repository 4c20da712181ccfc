package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"astro-service/aspects"
	"astro-service/collector"
	"astro-service/datasource"
	"astro-service/logger"
	"astro-service/moon"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API server delegates to
type Deps struct {
	Charts       datasource.ChartSource
	Horoscopes   datasource.HoroscopeSource // optional
	Ephemeris    moon.Ephemeris
	Detector     *moon.Detector
	Voids        VoidStore          // optional
	Counter      *collector.Counter // optional
	Database     Pinger             // optional, reported by the health check
	MaxRangeDays int
}

// Server represents the API server
type Server struct {
	deps   Deps
	server *http.Server
	now    func() time.Time
}

// NewServer creates a new API server
func NewServer(deps Deps, port int) *Server {
	if deps.MaxRangeDays <= 0 {
		deps.MaxRangeDays = 62
	}
	mux := http.NewServeMux()

	server := &Server{
		deps: deps,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           withRequestID(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		now: time.Now,
	}

	mux.HandleFunc("/api/compatibility", server.handleCompatibility)
	mux.HandleFunc("/api/moon/void", server.handleVoidPeriods)
	mux.HandleFunc("/api/moon/calendar", server.handleCalendar)
	mux.HandleFunc("/api/horoscope/daily/", server.handleDailyHoroscope)

	// Health check
	mux.HandleFunc("/api/health", server.handleHealthCheck)

	return server
}

// SetTimeouts configures the HTTP server read and write timeouts
func (s *Server) SetTimeouts(read, write time.Duration) {
	s.server.ReadTimeout = read
	s.server.WriteTimeout = write
}

// Handler returns the root handler, request ID middleware included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins the API server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	logger.Log.Infof("Starting API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the request ID stored by the middleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestID tags each request with an X-Request-ID and logs its outcome
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		logger.Log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(started).Round(time.Microsecond),
		}).Info("Handled request")
	})
}

// requestError marks a client mistake; it maps to 400
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	var reqErr *requestError
	var sdkErr *datasource.SDKError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, aspects.ErrInvalidLongitude),
		errors.Is(err, moon.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.As(err, &sdkErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError reports err as {"error": "..."} and logs server-side failures
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
			"path":       r.URL.Path,
			"error":      err,
		}).Error("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// allowMethod rejects anything but method with 405
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return false
	}
	return true
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"database":  "disabled",
	}
	if s.deps.Charts != nil {
		response["chartSource"] = s.deps.Charts.Name()
	}
	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Database.Ping(ctx); err != nil {
			response["database"] = "unavailable"
			response["status"] = "degraded"
		} else {
			response["database"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, response)
}
