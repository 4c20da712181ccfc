package astrologyapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-service/datasource"
	"astro-service/logger"
	"astro-service/models"
)

func init() {
	logger.Discard()
}

func TestFetchPlanets(t *testing.T) {
	var got birthRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/planets/tropical", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "uk", r.Header.Get("Accept-Language"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name":"Sun","fullDegree":56.31,"speed":0.96,"isRetro":"false"},
			{"name":"Moon","fullDegree":201.7,"speed":13.1,"isRetro":"false"},
			{"name":"Mercury","fullDegree":40.2,"speed":-0.4,"isRetro":"true"},
			{"name":"Ascendant","fullDegree":110.0,"speed":0,"isRetro":"false"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "user", "secret", time.Second)
	birth := models.BirthData{
		Time:      time.Date(1990, 5, 17, 9, 30, 0, 0, time.FixedZone("EEST", 3*3600)),
		Latitude:  50.45,
		Longitude: 30.52,
	}

	positions, err := client.FetchPlanets(context.Background(), birth)
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, models.Sun, positions[0].Name)
	assert.InDelta(t, 56.31, positions[0].Longitude, 1e-9)
	assert.Equal(t, models.Mercury, positions[2].Name)
	assert.True(t, positions[2].Retrograde)

	assert.Equal(t, birthRequest{Day: 17, Month: 5, Year: 1990, Hour: 9, Min: 30, Lat: 50.45, Lon: 30.52, TZone: 3}, got)
}

func TestFetchPlanets_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "u", "k", time.Second).FetchPlanets(context.Background(), models.BirthData{Time: time.Now()})
	require.Error(t, err)

	var sdkErr *datasource.SDKError
	require.True(t, errors.As(err, &sdkErr))
	assert.Equal(t, http.StatusTooManyRequests, sdkErr.StatusCode)
	assert.Equal(t, "planets", sdkErr.Op)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFetchPlanets_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "u", "k", time.Second).FetchPlanets(context.Background(), models.BirthData{Time: time.Now()})
	var sdkErr *datasource.SDKError
	require.True(t, errors.As(err, &sdkErr))
	assert.Contains(t, err.Error(), "failed to parse API response")
}

func TestFetchPlanets_NoTrackedBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Node","fullDegree":10}]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "u", "k", time.Second).FetchPlanets(context.Background(), models.BirthData{Time: time.Now()})
	assert.ErrorIs(t, err, datasource.ErrUnknownPlanet)
}

func TestFetchPlanets_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "u", "k", time.Second).FetchPlanets(context.Background(), models.BirthData{Time: time.Now()})
	var sdkErr *datasource.SDKError
	require.True(t, errors.As(err, &sdkErr))
	assert.Zero(t, sdkErr.StatusCode)
}

func TestFetchDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sun_sign_prediction/daily/scorpio", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-10-15", body["date"])

		w.Write([]byte(`{
			"sun_sign":"Scorpio",
			"prediction_date":"15-10-2026",
			"prediction":{"luck":"Щасливе число 7.","personal_life":"Гарний день для розмов.","health":""}
		}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, "u", "k", time.Second).FetchDaily(context.Background(), models.Scorpio, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, models.Scorpio, h.Sign)
	assert.Equal(t, "2026-10-15", h.Date)
	assert.Equal(t, "Гарний день для розмов.\n\nЩасливе число 7.", h.Prediction)
	assert.Equal(t, "AstrologyAPI", h.Provider)
}
