// Package aspects classifies angular relationships between planetary
// positions and scores synastry between two charts.
package aspects

import (
	"errors"
	"fmt"
	"math"

	"astro-service/models"
)

// ErrInvalidLongitude is returned for longitudes that are not finite values in [0, 360)
var ErrInvalidLongitude = errors.New("longitude out of range")

// Definition is one row of an aspect table
type Definition struct {
	Type   models.AspectType
	Angle  float64 // exact angle, degrees
	MaxOrb float64 // maximum allowed deviation, degrees
}

// MajorAspects is the table used for synastry. Order matters: when two orb
// windows overlap, the earlier row wins.
var MajorAspects = []Definition{
	{Type: models.Conjunction, Angle: 0, MaxOrb: 8},
	{Type: models.Sextile, Angle: 60, MaxOrb: 6},
	{Type: models.Square, Angle: 90, MaxOrb: 7},
	{Type: models.Trine, Angle: 120, MaxOrb: 8},
	{Type: models.Opposition, Angle: 180, MaxOrb: 8},
}

// AllAspects extends MajorAspects with the minor aspects and their tighter orbs
var AllAspects = append(append([]Definition{}, MajorAspects...),
	Definition{Type: models.Semisextile, Angle: 30, MaxOrb: 2},
	Definition{Type: models.Semisquare, Angle: 45, MaxOrb: 2},
	Definition{Type: models.Quintile, Angle: 72, MaxOrb: 2},
	Definition{Type: models.Sesquisquare, Angle: 135, MaxOrb: 2},
	Definition{Type: models.Biquintile, Angle: 144, MaxOrb: 2},
	Definition{Type: models.Quincunx, Angle: 150, MaxOrb: 3},
)

// NormalizeLongitude wraps any finite angle into [0, 360)
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon = 0
	}
	return lon
}

// ValidateLongitude rejects values an ephemeris should never produce
func ValidateLongitude(lon float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < 0 || lon >= 360 {
		return fmt.Errorf("%w: %v", ErrInvalidLongitude, lon)
	}
	return nil
}

// AngleDiff returns the shortest angular separation between two longitudes, 0-180
func AngleDiff(a, b float64) float64 {
	diff := math.Abs(NormalizeLongitude(a) - NormalizeLongitude(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// Classify finds the first aspect in table whose orb window contains diff.
// ok is false when diff is outside every window.
func Classify(diff float64, table []Definition) (def Definition, orb float64, ok bool) {
	for _, d := range table {
		o := math.Abs(diff - d.Angle)
		if o <= d.MaxOrb {
			return d, o, true
		}
	}
	return Definition{}, 0, false
}

// applyingStep is how far ahead positions are projected, in days
const applyingStep = 1.0 / 24

// IsApplying reports whether the separation between p1 and p2 is moving toward
// the exact angle. Bodies without speed information are treated as separating.
func IsApplying(p1, p2 models.PlanetPosition, angle float64) bool {
	if p1.Speed == 0 && p2.Speed == 0 {
		return false
	}
	now := math.Abs(AngleDiff(p1.Longitude, p2.Longitude) - angle)
	later := math.Abs(AngleDiff(p1.Longitude+p1.Speed*applyingStep, p2.Longitude+p2.Speed*applyingStep) - angle)
	return later < now
}

// Between classifies the aspect between two positions, if any
func Between(p1, p2 models.PlanetPosition, table []Definition) (models.Aspect, bool) {
	def, orb, ok := Classify(AngleDiff(p1.Longitude, p2.Longitude), table)
	if !ok {
		return models.Aspect{}, false
	}
	return models.Aspect{
		Planet1:    p1.Name,
		Planet2:    p2.Name,
		Type:       def.Type,
		Orb:        orb,
		IsApplying: IsApplying(p1, p2, def.Angle),
	}, true
}
