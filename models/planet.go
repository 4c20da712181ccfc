package models

import (
	"fmt"
	"math"
	"strings"
)

// Planet identifies one of the ten bodies tracked by the service
type Planet string

const (
	Sun     Planet = "Sun"
	Moon    Planet = "Moon"
	Mercury Planet = "Mercury"
	Venus   Planet = "Venus"
	Mars    Planet = "Mars"
	Jupiter Planet = "Jupiter"
	Saturn  Planet = "Saturn"
	Uranus  Planet = "Uranus"
	Neptune Planet = "Neptune"
	Pluto   Planet = "Pluto"
)

// Planets lists every tracked body in traditional order
var Planets = []Planet{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

var planetNamesUK = map[Planet]string{
	Sun:     "Сонце",
	Moon:    "Місяць",
	Mercury: "Меркурій",
	Venus:   "Венера",
	Mars:    "Марс",
	Jupiter: "Юпітер",
	Saturn:  "Сатурн",
	Uranus:  "Уран",
	Neptune: "Нептун",
	Pluto:   "Плутон",
}

// UkrainianName returns the localized display name of the planet
func (p Planet) UkrainianName() string {
	if name, ok := planetNamesUK[p]; ok {
		return name
	}
	return string(p)
}

// Valid reports whether p is one of the tracked bodies
func (p Planet) Valid() bool {
	_, ok := planetNamesUK[p]
	return ok
}

// ParsePlanet matches a body name case-insensitively
func ParsePlanet(name string) (Planet, bool) {
	for _, p := range Planets {
		if strings.EqualFold(string(p), strings.TrimSpace(name)) {
			return p, true
		}
	}
	return "", false
}

// PlanetPosition is an ecliptic position of a body as produced by an ephemeris
type PlanetPosition struct {
	Name       Planet  `json:"name"`
	Longitude  float64 `json:"longitude"`            // degrees, 0-360
	Speed      float64 `json:"speed,omitempty"`      // degrees per day
	Retrograde bool    `json:"retrograde,omitempty"` // true when speed < 0
}

// Sign returns the zodiac sign the position falls in
func (p PlanetPosition) Sign() ZodiacSign {
	return SignOf(p.Longitude)
}

// ZodiacSign is a 30 degree segment of the ecliptic, Aries = 0
type ZodiacSign int

const (
	Aries ZodiacSign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

var signNamesUK = [12]string{
	"Овен", "Телець", "Близнюки", "Рак", "Лев", "Діва",
	"Терези", "Скорпіон", "Стрілець", "Козеріг", "Водолій", "Риби",
}

// SignOf maps an ecliptic longitude to its zodiac sign
func SignOf(longitude float64) ZodiacSign {
	lon := math.Mod(longitude, 360)
	if lon < 0 {
		lon += 360
	}
	idx := int(lon / 30)
	if idx > 11 {
		idx = 11
	}
	return ZodiacSign(idx)
}

// Next returns the sign that follows s in zodiac order
func (s ZodiacSign) Next() ZodiacSign {
	return (s + 1) % 12
}

// String returns the English sign name
func (s ZodiacSign) String() string {
	if s < 0 || s > 11 {
		return fmt.Sprintf("ZodiacSign(%d)", int(s))
	}
	return signNames[s]
}

// UkrainianName returns the localized sign name
func (s ZodiacSign) UkrainianName() string {
	if s < 0 || s > 11 {
		return s.String()
	}
	return signNamesUK[s]
}

// ParseSign matches an English sign name case-insensitively
func ParseSign(name string) (ZodiacSign, bool) {
	for i, n := range signNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return ZodiacSign(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the sign as its English name
func (s ZodiacSign) MarshalText() ([]byte, error) {
	if s < 0 || s > 11 {
		return nil, fmt.Errorf("invalid zodiac sign %d", int(s))
	}
	return []byte(signNames[s]), nil
}

// UnmarshalText decodes an English sign name
func (s *ZodiacSign) UnmarshalText(text []byte) error {
	sign, ok := ParseSign(string(text))
	if !ok {
		return fmt.Errorf("unknown zodiac sign %q", string(text))
	}
	*s = sign
	return nil
}
