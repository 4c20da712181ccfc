package datasource

import (
	"context"
	"errors"
	"fmt"

	"astro-service/models"
)

// ErrUnknownPlanet is returned when a source is asked for, or returns, a body it cannot map
var ErrUnknownPlanet = errors.New("unknown planet")

// ChartSource is an interface for services that can cast planetary positions
type ChartSource interface {
	// FetchPlanets returns the positions of the tracked bodies for a birth moment
	FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error)

	// Name returns the source's name
	Name() string
}

// HoroscopeSource is an interface for services that can fetch daily sun sign predictions
type HoroscopeSource interface {
	// FetchDaily returns the prediction for a sign on a YYYY-MM-DD date
	FetchDaily(ctx context.Context, sign models.ZodiacSign, date string) (models.Horoscope, error)

	// Name returns the source's name
	Name() string
}

// SDKError describes a failed call to the external astrology SDK
type SDKError struct {
	Provider   string
	Op         string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *SDKError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *SDKError) Unwrap() error {
	return e.Err
}
