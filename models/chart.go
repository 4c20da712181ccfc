package models

import (
	"fmt"
	"time"
)

// BirthData identifies the moment and place a chart is cast for
type BirthData struct {
	Time      time.Time `json:"time"` // instant of birth, any zone
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Key returns a stable cache key for the birth data
func (b BirthData) Key() string {
	return fmt.Sprintf("%s@%.4f,%.4f", b.Time.UTC().Format(time.RFC3339), b.Latitude, b.Longitude)
}

// Chart is the set of planetary positions for one person
type Chart struct {
	Person    string           `json:"person"`
	Birth     BirthData        `json:"birth"`
	Positions []PlanetPosition `json:"positions"`
	Source    string           `json:"source"`
}

// Horoscope is a daily sun sign prediction
type Horoscope struct {
	Sign       ZodiacSign `json:"sign"`
	Date       string     `json:"date"` // YYYY-MM-DD
	Prediction string     `json:"prediction"`
	Provider   string     `json:"provider"`
	Updated    time.Time  `json:"updated"`
}
