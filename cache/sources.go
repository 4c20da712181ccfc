package cache

import (
	"context"
	"time"

	"astro-service/datasource"
	"astro-service/logger"
	"astro-service/models"

	"github.com/sirupsen/logrus"
)

// CachedChartSource wraps a ChartSource and caches positions per birth moment
type CachedChartSource struct {
	source datasource.ChartSource
	cache  *TTL[string, []models.PlanetPosition]
}

// NewCachedChartSource creates a new cached wrapper around a chart source
func NewCachedChartSource(source datasource.ChartSource, ttl time.Duration, opts ...Option) *CachedChartSource {
	return &CachedChartSource{
		source: source,
		cache:  NewTTL[string, []models.PlanetPosition](ttl, opts...),
	}
}

// Name returns the name of the underlying source with [Cached] suffix
func (c *CachedChartSource) Name() string {
	return c.source.Name() + " [Cached]"
}

// FetchPlanets returns cached positions when fresh, otherwise asks the source
func (c *CachedChartSource) FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	key := birth.Key()
	log := logger.Log.WithFields(logrus.Fields{"source": c.source.Name(), "key": key})

	if positions, found := c.cache.Get(key); found {
		age, _ := c.cache.Age(key)
		log.Debugf("Chart cache HIT (age: %s)", age.Round(time.Second))
		return clonePositions(positions), nil
	}

	log.Debug("Chart cache MISS, fetching fresh data")
	positions, err := c.source.FetchPlanets(ctx, birth)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, clonePositions(positions))
	return positions, nil
}

// CacheStats returns statistics about cache hits and misses
func (c *CachedChartSource) CacheStats() Stats {
	return c.cache.Stats()
}

// CachedHoroscopeSource wraps a HoroscopeSource keyed by sign and date
type CachedHoroscopeSource struct {
	source datasource.HoroscopeSource
	cache  *TTL[horoscopeKey, models.Horoscope]
}

type horoscopeKey struct {
	sign models.ZodiacSign
	date string
}

// NewCachedHoroscopeSource creates a new cached wrapper around a horoscope source
func NewCachedHoroscopeSource(source datasource.HoroscopeSource, ttl time.Duration, opts ...Option) *CachedHoroscopeSource {
	return &CachedHoroscopeSource{
		source: source,
		cache:  NewTTL[horoscopeKey, models.Horoscope](ttl, opts...),
	}
}

// Name returns the name of the underlying source with [Cached] suffix
func (c *CachedHoroscopeSource) Name() string {
	return c.source.Name() + " [Cached]"
}

// FetchDaily returns the cached prediction when fresh, otherwise asks the source
func (c *CachedHoroscopeSource) FetchDaily(ctx context.Context, sign models.ZodiacSign, date string) (models.Horoscope, error) {
	key := horoscopeKey{sign: sign, date: date}
	log := logger.Log.WithFields(logrus.Fields{"source": c.source.Name(), "sign": sign.String(), "date": date})

	if h, found := c.cache.Get(key); found {
		log.Debug("Horoscope cache HIT")
		return h, nil
	}

	log.Debug("Horoscope cache MISS, fetching fresh data")
	h, err := c.source.FetchDaily(ctx, sign, date)
	if err != nil {
		return models.Horoscope{}, err
	}
	c.cache.Set(key, h)
	return h, nil
}

// CacheStats returns statistics about cache hits and misses
func (c *CachedHoroscopeSource) CacheStats() Stats {
	return c.cache.Stats()
}

// callers may sort or edit the slice they get back
func clonePositions(in []models.PlanetPosition) []models.PlanetPosition {
	out := make([]models.PlanetPosition, len(in))
	copy(out, in)
	return out
}

// Ensure the wrappers implement the source interfaces
var (
	_ datasource.ChartSource     = (*CachedChartSource)(nil)
	_ datasource.HoroscopeSource = (*CachedHoroscopeSource)(nil)
)
