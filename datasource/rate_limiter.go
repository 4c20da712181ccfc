package datasource

import (
	"context"
	"fmt"

	"astro-service/models"

	"golang.org/x/time/rate"
)

// RateLimitedChartSource wraps a ChartSource with rate limiting
type RateLimitedChartSource struct {
	source  ChartSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedChartSource creates a new rate limited chart source
// rps is the maximum requests per second allowed (can be fractional for less than 1 request per second)
// burst is the maximum burst size allowed
func NewRateLimitedChartSource(source ChartSource, rps float64, burst int) *RateLimitedChartSource {
	return &RateLimitedChartSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// FetchPlanets fetches positions, respecting rate limits
func (r *RateLimitedChartSource) FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	// Wait for rate limiter permission or context cancellation
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.source.FetchPlanets(ctx, birth)
}

// Name returns the source name
func (r *RateLimitedChartSource) Name() string {
	return r.name
}

// RateLimitedHoroscopeSource wraps a HoroscopeSource with rate limiting
type RateLimitedHoroscopeSource struct {
	source  HoroscopeSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedHoroscopeSource creates a new rate limited horoscope source
func NewRateLimitedHoroscopeSource(source HoroscopeSource, rps float64, burst int) *RateLimitedHoroscopeSource {
	return &RateLimitedHoroscopeSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// FetchDaily fetches a horoscope, respecting rate limits
func (r *RateLimitedHoroscopeSource) FetchDaily(ctx context.Context, sign models.ZodiacSign, date string) (models.Horoscope, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.Horoscope{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.source.FetchDaily(ctx, sign, date)
}

// Name returns the source name
func (r *RateLimitedHoroscopeSource) Name() string {
	return r.name
}

// Verify that our rate limited types implement the required interfaces
var (
	_ ChartSource     = (*RateLimitedChartSource)(nil)
	_ HoroscopeSource = (*RateLimitedHoroscopeSource)(nil)
)
