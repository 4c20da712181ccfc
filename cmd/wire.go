package cmd

import (
	"context"
	"fmt"

	"astro-service/cache"
	"astro-service/config"
	"astro-service/datasource"
	"astro-service/ephemeris"
	"astro-service/logger"
	"astro-service/moon"
	"astro-service/providers/astrologyapi"
	"astro-service/store"
)

// newSDKClient returns nil when no credentials are configured
func newSDKClient(cfg *config.Config) *astrologyapi.Client {
	if cfg.SDK.UserID == "" || cfg.SDK.APIKey == "" {
		return nil
	}
	return astrologyapi.NewClient(cfg.SDK.BaseURL, cfg.SDK.UserID, cfg.SDK.APIKey, cfg.SDK.Timeout)
}

// buildChartSource picks the configured chart source and wraps it with rate limiting and caching
func buildChartSource(cfg *config.Config, eph *ephemeris.Ephemeris, client *astrologyapi.Client) datasource.ChartSource {
	var source datasource.ChartSource = eph
	if cfg.ChartSource == config.SourceSDK && client != nil {
		source = client
		if cfg.SDK.RateLimit > 0 {
			source = datasource.NewRateLimitedChartSource(source, cfg.SDK.RateLimit, cfg.SDK.Burst)
			logger.Log.Infof("Applied rate limiting to %s chart source", client.Name())
		}
	}
	if cfg.Cache.ChartTTL > 0 {
		source = cache.NewCachedChartSource(source, cfg.Cache.ChartTTL, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	return source
}

// buildHoroscopeSource returns nil without SDK credentials
func buildHoroscopeSource(cfg *config.Config, client *astrologyapi.Client) datasource.HoroscopeSource {
	if client == nil {
		return nil
	}
	var source datasource.HoroscopeSource = client
	if cfg.SDK.RateLimit > 0 {
		source = datasource.NewRateLimitedHoroscopeSource(source, cfg.SDK.RateLimit, cfg.SDK.Burst)
	}
	if cfg.Cache.HoroscopeTTL > 0 {
		source = cache.NewCachedHoroscopeSource(source, cfg.Cache.HoroscopeTTL, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	return source
}

func newDetector(cfg *config.Config, eph moon.Ephemeris) *moon.Detector {
	return moon.NewDetector(eph, moon.DetectorConfig{
		Step:      cfg.Moon.Step,
		Precision: cfg.Moon.Precision,
	})
}

// openStore connects to Postgres and creates the schema
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if !cfg.DB.Enabled() {
		return nil, fmt.Errorf("no database configured: set db.host or ASTRO_DB_HOST")
	}
	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
