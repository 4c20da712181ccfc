package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-service/aspects"
	"astro-service/collector"
	"astro-service/datasource"
	"astro-service/ephemeris"
	"astro-service/logger"
	"astro-service/models"
	"astro-service/moon"
)

func init() {
	logger.Discard()
}

type stubCharts struct {
	mutex sync.Mutex
	calls int
	err   error
}

func (s *stubCharts) FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	s.mutex.Lock()
	s.calls++
	s.mutex.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	// the Sun lands 120 degrees apart for the two latitudes used below
	return []models.PlanetPosition{{Name: models.Sun, Longitude: birth.Latitude * 2}}, nil
}

func (s *stubCharts) Name() string { return "Stub" }

type stubHoroscopes struct {
	err error
}

func (s stubHoroscopes) FetchDaily(ctx context.Context, sign models.ZodiacSign, date string) (models.Horoscope, error) {
	if s.err != nil {
		return models.Horoscope{}, s.err
	}
	return models.Horoscope{Sign: sign, Date: date, Prediction: "Вдалий день для нових починань.", Provider: "Stub"}, nil
}

func (s stubHoroscopes) Name() string { return "Stub" }

// countingVoidStore records how the server uses its void store
type countingVoidStore struct {
	*MemoryVoidStore
	mutex sync.Mutex
	reads int
	saves int
}

func (c *countingVoidStore) VoidPeriodsBetween(ctx context.Context, from, to time.Time) ([]models.VoidPeriod, error) {
	c.mutex.Lock()
	c.reads++
	c.mutex.Unlock()
	return c.MemoryVoidStore.VoidPeriodsBetween(ctx, from, to)
}

func (c *countingVoidStore) SaveVoidPeriods(ctx context.Context, from, to time.Time, periods []models.VoidPeriod) error {
	c.mutex.Lock()
	c.saves++
	c.mutex.Unlock()
	return c.MemoryVoidStore.SaveVoidPeriods(ctx, from, to, periods)
}

func newTestServer(deps Deps) *Server {
	eph := ephemeris.New()
	if deps.Ephemeris == nil {
		deps.Ephemeris = eph
	}
	if deps.Detector == nil {
		deps.Detector = moon.NewDetector(eph, moon.DetectorConfig{})
	}
	s := NewServer(deps, 0)
	s.now = func() time.Time { return time.Date(2026, 10, 15, 9, 41, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(Deps{Charts: &stubCharts{}})

	rec := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["database"])
	assert.Equal(t, "Stub", body["chartSource"])
	assert.Equal(t, "2026-10-15T09:41:00Z", body["timestamp"])
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthCheck_DatabaseDown(t *testing.T) {
	s := newTestServer(Deps{Database: failingPinger{}})

	var body map[string]string
	decode(t, do(t, s, http.MethodGet, "/api/health", ""), &body)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["database"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCompatibility_ExplicitPositions(t *testing.T) {
	s := newTestServer(Deps{})
	body := `{
		"person1": {"name": "Олена", "positions": [{"name": "Sun", "longitude": 10}]},
		"person2": {"name": "Андрій", "positions": [{"name": "Sun", "longitude": 130}]}
	}`

	rec := do(t, s, http.MethodPost, "/api/compatibility", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))

	var result models.CompatibilityResult
	decode(t, rec, &result)
	require.Len(t, result.SynastryAspects, 1)
	a := result.SynastryAspects[0]
	assert.Equal(t, models.Trine, a.Type)
	assert.Equal(t, "Олена", a.Person1Name)
	assert.Equal(t, "Андрій", a.Person2Name)
	assert.Equal(t, 60, result.CompatibilityScore)
}

func TestCompatibility_FetchesChartsConcurrently(t *testing.T) {
	charts := &stubCharts{}
	s := newTestServer(Deps{Charts: charts})
	body := `{
		"person1": {"birth": {"time": "1990-05-17T09:30:00+03:00", "latitude": 10, "longitude": 30}},
		"person2": {"birth": {"time": "1992-11-02T18:00:00+02:00", "latitude": 70, "longitude": 30}}
	}`

	rec := do(t, s, http.MethodPost, "/api/compatibility", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, charts.calls)

	var result models.CompatibilityResult
	decode(t, rec, &result)
	require.Len(t, result.SynastryAspects, 1)
	assert.Equal(t, "person1", result.SynastryAspects[0].Person1Name)
	assert.Equal(t, models.Trine, result.SynastryAspects[0].Type)
}

func TestCompatibility_SDKFailureIsBadGateway(t *testing.T) {
	charts := &stubCharts{err: &datasource.SDKError{Provider: "AstrologyAPI", Op: "planets", StatusCode: 500, Err: errors.New("boom")}}
	s := newTestServer(Deps{Charts: charts})
	body := `{
		"person1": {"birth": {"time": "1990-05-17T09:30:00+03:00", "latitude": 10, "longitude": 30}},
		"person2": {"positions": [{"name": "Sun", "longitude": 130}]}
	}`

	rec := do(t, s, http.MethodPost, "/api/compatibility", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "AstrologyAPI planets")
}

func TestCompatibility_BadRequests(t *testing.T) {
	s := newTestServer(Deps{Charts: &stubCharts{}})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"person1":`, "invalid request body"},
		{"unknown field", `{"person3": {}}`, "invalid request body"},
		{"missing chart", `{"person1": {"name": "A"}, "person2": {"positions": [{"name": "Sun", "longitude": 1}]}}`, "A: birth or positions required"},
		{"longitude out of range", `{"person1": {"positions": [{"name": "Sun", "longitude": 361}]}, "person2": {"positions": [{"name": "Sun", "longitude": 1}]}}`, aspects.ErrInvalidLongitude.Error()},
		{"latitude out of range", `{"person1": {"birth": {"time": "1990-05-17T09:30:00Z", "latitude": 91, "longitude": 0}}, "person2": {"positions": [{"name": "Sun", "longitude": 1}]}}`, "coordinates out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/compatibility", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.want)
		})
	}
}

func TestCompatibility_MethodNotAllowed(t *testing.T) {
	s := newTestServer(Deps{})
	rec := do(t, s, http.MethodGet, "/api/compatibility", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

type voidResponse struct {
	VoidPeriods []models.VoidPeriod `json:"voidPeriods"`
	Count       int                 `json:"count"`
}

func TestVoidPeriods_ComputesThenServesFromStore(t *testing.T) {
	store := &countingVoidStore{MemoryVoidStore: NewMemoryVoidStore()}
	s := newTestServer(Deps{Voids: store})
	target := "/api/moon/void?start=2026-01-01T00:00:00Z&end=2026-01-08T00:00:00Z"

	first := do(t, s, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "public, max-age=3600", first.Header().Get("Cache-Control"))

	var computed voidResponse
	decode(t, first, &computed)
	require.NotEmpty(t, computed.VoidPeriods)
	assert.Equal(t, len(computed.VoidPeriods), computed.Count)
	for _, p := range computed.VoidPeriods {
		assert.True(t, p.End.After(p.Start) || p.End.Equal(p.Start))
		assert.Equal(t, p.MoonSign.Next(), p.NextSign)
	}
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 0, store.reads)

	second := do(t, s, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, second.Code)
	var stored voidResponse
	decode(t, second, &stored)
	assert.Equal(t, computed, stored)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.reads)
}

func transitsOf(periods []models.VoidPeriod) []string {
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, fmt.Sprintf("%s %s..%s", p.MoonSign, p.Start.UTC().Format(time.RFC3339), p.End.UTC().Format(time.RFC3339)))
	}
	return out
}

func TestVoidPeriods_OverlappingRequestsStoreEachTransitOnce(t *testing.T) {
	store := NewMemoryVoidStore()
	s := newTestServer(Deps{Voids: store})

	for _, target := range []string{
		"/api/moon/void?start=2026-01-01T00:00:00Z&end=2026-01-11T00:00:00Z",
		"/api/moon/void?start=2026-01-04T07:13:27Z&end=2026-01-14T07:13:27Z",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	from := time.Date(2026, 1, 4, 7, 13, 27, 0, time.UTC)
	to := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	stored, err := store.VoidPeriodsBetween(context.Background(), from, to)
	require.NoError(t, err)

	direct := do(t, newTestServer(Deps{}), http.MethodGet,
		"/api/moon/void?start=2026-01-04T07:13:27Z&end=2026-01-11T00:00:00Z", "")
	require.Equal(t, http.StatusOK, direct.Code, direct.Body.String())
	var want voidResponse
	decode(t, direct, &want)
	require.NotEmpty(t, want.VoidPeriods)

	assert.Equal(t, transitsOf(want.VoidPeriods), transitsOf(stored))
}

func TestVoidPeriods_BadRequests(t *testing.T) {
	s := newTestServer(Deps{})

	tests := []struct {
		name   string
		target string
	}{
		{"end before start", "/api/moon/void?start=2026-01-08&end=2026-01-01"},
		{"range too long", "/api/moon/void?start=2026-01-01&end=2026-06-01"},
		{"bad start", "/api/moon/void?start=yesterday"},
		{"bad end", "/api/moon/void?start=2026-01-01&end=01/08/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}
}

func TestCalendar(t *testing.T) {
	s := newTestServer(Deps{Voids: NewMemoryVoidStore()})

	rec := do(t, s, http.MethodGet, "/api/moon/calendar?from=2026-01-01&days=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	var body struct {
		From string               `json:"from"`
		Days []models.CalendarDay `json:"days"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "2026-01-01", body.From)
	require.Len(t, body.Days, 3)
	assert.Equal(t, "2026-01-03", body.Days[2].Date)
	for _, day := range body.Days {
		assert.Equal(t, day.MoonSign.UkrainianName(), day.MoonSignUK)
		assert.NotNil(t, day.VoidPeriods)
	}
}

func TestCalendar_BadRequests(t *testing.T) {
	s := newTestServer(Deps{})
	for _, target := range []string{
		"/api/moon/calendar?days=0",
		"/api/moon/calendar?days=63",
		"/api/moon/calendar?days=seven",
		"/api/moon/calendar?from=2026-13-01",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDailyHoroscope(t *testing.T) {
	s := newTestServer(Deps{Horoscopes: stubHoroscopes{}})

	rec := do(t, s, http.MethodGet, "/api/horoscope/daily/leo?date=2026-10-16", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "public, max-age=1800", rec.Header().Get("Cache-Control"))

	var h models.Horoscope
	decode(t, rec, &h)
	assert.Equal(t, models.Leo, h.Sign)
	assert.Equal(t, "2026-10-16", h.Date)

	rec = do(t, s, http.MethodGet, "/api/horoscope/daily/"+url.PathEscape("Скорпіон"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &h)
	assert.Equal(t, models.Scorpio, h.Sign)
	assert.Equal(t, "2026-10-15", h.Date)
}

func TestDailyHoroscope_Errors(t *testing.T) {
	s := newTestServer(Deps{Horoscopes: stubHoroscopes{}})
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/horoscope/daily/", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/horoscope/daily/ophiuchus", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/horoscope/daily/leo?date=16.10.2026", "").Code)

	unconfigured := newTestServer(Deps{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, unconfigured, http.MethodGet, "/api/horoscope/daily/leo", "").Code)

	failing := newTestServer(Deps{Horoscopes: stubHoroscopes{err: &datasource.SDKError{Provider: "AstrologyAPI", Op: "daily horoscope", Err: errors.New("timeout")}}})
	assert.Equal(t, http.StatusBadGateway, do(t, failing, http.MethodGet, "/api/horoscope/daily/leo", "").Code)
}

type memoryCounters struct {
	mutex  sync.Mutex
	totals map[string]int64
}

func (m *memoryCounters) IncrementCounters(ctx context.Context, day time.Time, counts map[string]int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for name, n := range counts {
		m.totals[name] += n
	}
	return nil
}

func TestHandlersRecordAnalytics(t *testing.T) {
	counts := &memoryCounters{totals: map[string]int64{}}
	counter := collector.NewCounter(counts, 16, time.Hour)
	stop := counter.Start(context.Background())

	s := newTestServer(Deps{Counter: counter, Horoscopes: stubHoroscopes{}})
	do(t, s, http.MethodGet, "/api/horoscope/daily/leo", "")
	do(t, s, http.MethodGet, "/api/horoscope/daily/aries", "")
	do(t, s, http.MethodPost, "/api/compatibility", `{}`)
	stop()

	assert.Equal(t, map[string]int64{"horoscope_daily": 2, "compatibility": 1}, counts.totals)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("nope"), http.StatusBadRequest},
		{moon.ErrInvalidRange, http.StatusBadRequest},
		{aspects.ErrInvalidLongitude, http.StatusBadRequest},
		{&datasource.SDKError{Err: errors.New("x")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
