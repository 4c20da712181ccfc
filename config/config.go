package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Chart source kinds
const (
	SourceEphemeris = "ephemeris"
	SourceSDK       = "sdk"
)

// maxMoonStep keeps void-of-course sampling fine enough to see every aspect crossing
const maxMoonStep = 6 * time.Hour

// Config is the service configuration
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	SDK         SDKConfig       `yaml:"sdk"`
	ChartSource string          `yaml:"chart_source"`
	Cache       CacheConfig     `yaml:"cache"`
	Moon        MoonConfig      `yaml:"moon"`
	DB          DBConfig        `yaml:"db"`
	Analytics   AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SDKConfig holds the astrology API credentials and limits
type SDKConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserID    string        `yaml:"user_id"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables
	Burst     int           `yaml:"burst"`
}

// CacheConfig holds TTLs for cached sources
type CacheConfig struct {
	ChartTTL     time.Duration `yaml:"chart_ttl"`
	HoroscopeTTL time.Duration `yaml:"horoscope_ttl"`
	MaxEntries   int           `yaml:"max_entries"`
}

// MoonConfig tunes the void-of-course search
type MoonConfig struct {
	Step         time.Duration `yaml:"step"`
	Precision    time.Duration `yaml:"precision"`
	MaxRangeDays int           `yaml:"max_range_days"`
}

// DBConfig holds Postgres connection settings. An empty host disables the store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database is configured
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// AnalyticsConfig tunes the request counter queue
type AnalyticsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	QueueSize     int           `yaml:"queue_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Default returns a configuration that runs without any external service
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		SDK: SDKConfig{
			BaseURL:   "https://json.astrologyapi.com/v1",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			Burst:     5,
		},
		ChartSource: SourceEphemeris,
		Cache: CacheConfig{
			ChartTTL:     24 * time.Hour,
			HoroscopeTTL: 6 * time.Hour,
			MaxEntries:   10000,
		},
		Moon: MoonConfig{
			Step:         time.Hour,
			Precision:    time.Minute,
			MaxRangeDays: 62,
		},
		DB: DBConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Analytics: AnalyticsConfig{
			QueueSize:     1024,
			FlushInterval: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path on top of the defaults.
// A missing .env file is ignored; a missing config file is an error only when path is set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets and deployment settings from ASTRO_* variables
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("ASTRO_LOG_LEVEL", &cfg.Log.Level)
	setString("ASTRO_CHART_SOURCE", &cfg.ChartSource)
	setString("ASTRO_SDK_BASE_URL", &cfg.SDK.BaseURL)
	setString("ASTRO_SDK_USER_ID", &cfg.SDK.UserID)
	setString("ASTRO_SDK_API_KEY", &cfg.SDK.APIKey)
	setString("ASTRO_DB_HOST", &cfg.DB.Host)
	setString("ASTRO_DB_USER", &cfg.DB.User)
	setString("ASTRO_DB_PASSWORD", &cfg.DB.Password)
	setString("ASTRO_DB_NAME", &cfg.DB.Name)

	for key, dst := range map[string]*int{
		"ASTRO_PORT":    &cfg.Server.Port,
		"ASTRO_DB_PORT": &cfg.DB.Port,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.ChartSource {
	case SourceEphemeris:
	case SourceSDK:
		if c.SDK.UserID == "" || c.SDK.APIKey == "" {
			errs = append(errs, errors.New("chart_source sdk requires sdk.user_id and sdk.api_key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chart_source %q", c.ChartSource))
	}
	if c.SDK.RateLimit < 0 {
		errs = append(errs, errors.New("sdk.rate_limit must not be negative"))
	}
	if c.Moon.Step <= 0 || c.Moon.Precision <= 0 {
		errs = append(errs, errors.New("moon.step and moon.precision must be positive"))
	}
	if c.Moon.Step > maxMoonStep {
		errs = append(errs, fmt.Errorf("moon.step must not exceed %s, got %s", maxMoonStep, c.Moon.Step))
	}
	if c.Moon.Precision > c.Moon.Step {
		errs = append(errs, errors.New("moon.precision must not exceed moon.step"))
	}
	if c.Moon.MaxRangeDays <= 0 {
		errs = append(errs, errors.New("moon.max_range_days must be positive"))
	}
	if c.Analytics.Enabled && c.Analytics.FlushInterval <= 0 {
		errs = append(errs, errors.New("analytics.flush_interval must be positive"))
	}
	return errors.Join(errs...)
}
