// Package ephemeris computes low-precision geocentric ecliptic longitudes for the
// Sun, Moon and planets. Planets use Keplerian mean elements valid 1800-2050;
// the Moon uses the leading terms of the lunar longitude series. Accuracy is a
// few arcminutes for the Sun and inner planets and a fraction of a degree for
// the Moon and Pluto.
package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"astro-service/datasource"
	"astro-service/models"
)

const (
	j2000       = 2451545.0
	unixEpochJD = 2440587.5
	deg         = math.Pi / 180

	// precessionRate moves J2000 longitudes to the equinox of date, degrees per century
	precessionRate = 1.396971
)

// elements are mean orbital elements at J2000 and their rates per Julian century
type elements struct {
	a, aDot       float64 // semi-major axis, au
	e, eDot       float64 // eccentricity
	i, iDot       float64 // inclination, degrees
	l, lDot       float64 // mean longitude, degrees
	peri, periDot float64 // longitude of perihelion, degrees
	node, nodeDot float64 // longitude of ascending node, degrees
}

var orbits = map[models.Planet]elements{
	models.Mercury: {0.38709927, 0.00000037, 0.20563593, 0.00001906, 7.00497902, -0.00594749, 252.25032350, 149472.67411175, 77.45779628, 0.16047689, 48.33076593, -0.12534081},
	models.Venus:   {0.72333566, 0.00000390, 0.00677672, -0.00004107, 3.39467605, -0.00078890, 181.97909950, 58517.81538729, 131.60246718, 0.00268329, 76.67984255, -0.27769418},
	models.Mars:    {1.52371034, 0.00001847, 0.09339410, 0.00007882, 1.84969142, -0.00813131, -4.55343205, 19140.30268499, -23.94362959, 0.44441088, 49.55953891, -0.29257343},
	models.Jupiter: {5.20288700, -0.00011607, 0.04838624, -0.00013253, 1.30439695, -0.00183714, 34.39644051, 3034.74612775, 14.72847983, 0.21252668, 100.47390909, 0.20469106},
	models.Saturn:  {9.53667594, -0.00125060, 0.05386179, -0.00050991, 2.48599187, 0.00193609, 49.95424423, 1222.49362201, 92.59887831, -0.41897216, 113.66242448, -0.28867794},
	models.Uranus:  {19.18916464, -0.00196176, 0.04725744, -0.00004397, 0.77263783, -0.00242939, 313.23810451, 428.48202785, 170.95427630, 0.40805281, 74.01692503, 0.04240589},
	models.Neptune: {30.06992276, 0.00026291, 0.00859048, 0.00005105, 1.77004347, 0.00035372, -55.12002969, 218.45945325, 44.96476227, -0.32241464, 131.78422574, -0.00508664},
	models.Pluto:   {39.48211675, -0.00031596, 0.24882730, 0.00005170, 17.14001206, 0.00004818, 238.92903833, 145.20780515, 224.06891629, -0.04062942, 110.30393684, -0.01183482},
}

// earth is the Earth-Moon barycenter
var earth = elements{1.00000261, 0.00000562, 0.01671123, -0.00004392, -0.00001531, -0.01294668, 100.46457166, 35999.37244981, 102.93768193, 0.32327364, 0, 0}

// Ephemeris is the embedded, dependency-free position source. The zero value is ready to use.
type Ephemeris struct{}

// New returns an embedded ephemeris
func New() *Ephemeris {
	return &Ephemeris{}
}

// Ensure Ephemeris can stand in for the external chart SDK
var _ datasource.ChartSource = (*Ephemeris)(nil)

// Name returns the source name
func (e *Ephemeris) Name() string {
	return "Embedded ephemeris"
}

// Longitude returns the geocentric ecliptic longitude of body at t, in degrees
func (e *Ephemeris) Longitude(body models.Planet, t time.Time) (float64, error) {
	T := centuries(t)
	switch body {
	case models.Moon:
		return moonLongitude(T), nil
	case models.Sun:
		x, y, _ := heliocentric(earth, T)
		return normalize(math.Atan2(-y, -x)/deg + precessionRate*T), nil
	}

	orbit, ok := orbits[body]
	if !ok {
		return 0, fmt.Errorf("%w: %q", datasource.ErrUnknownPlanet, body)
	}
	px, py, _ := heliocentric(orbit, T)
	ex, ey, _ := heliocentric(earth, T)
	return normalize(math.Atan2(py-ey, px-ex)/deg + precessionRate*T), nil
}

// Position returns longitude, daily speed and retrograde flag for body at t
func (e *Ephemeris) Position(body models.Planet, t time.Time) (models.PlanetPosition, error) {
	lon, err := e.Longitude(body, t)
	if err != nil {
		return models.PlanetPosition{}, err
	}
	before, err := e.Longitude(body, t.Add(-12*time.Hour))
	if err != nil {
		return models.PlanetPosition{}, err
	}
	after, err := e.Longitude(body, t.Add(12*time.Hour))
	if err != nil {
		return models.PlanetPosition{}, err
	}
	speed := after - before
	if speed > 180 {
		speed -= 360
	} else if speed < -180 {
		speed += 360
	}
	return models.PlanetPosition{
		Name:       body,
		Longitude:  lon,
		Speed:      speed,
		Retrograde: speed < 0,
	}, nil
}

// FetchPlanets casts the ten planet positions for the birth moment. Houses are
// not computed, so latitude and longitude are unused.
func (e *Ephemeris) FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	positions := make([]models.PlanetPosition, 0, len(models.Planets))
	for _, p := range models.Planets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, err := e.Position(p, birth.Time)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// JulianDay converts an instant to a Julian day number (UT, ignoring delta T)
func JulianDay(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixNano())/float64(24*time.Hour)
}

func centuries(t time.Time) float64 {
	return (JulianDay(t) - j2000) / 36525
}

func normalize(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// heliocentric returns ecliptic J2000 coordinates in au for an orbit at T centuries
func heliocentric(o elements, T float64) (x, y, z float64) {
	a := o.a + o.aDot*T
	e := o.e + o.eDot*T
	i := (o.i + o.iDot*T) * deg
	l := o.l + o.lDot*T
	peri := o.peri + o.periDot*T
	node := o.node + o.nodeDot*T

	m := normalize(l-peri) * deg
	if m > math.Pi {
		m -= 2 * math.Pi
	}
	ecc := solveKepler(m, e)

	xp := a * (math.Cos(ecc) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ecc)

	w := (peri - node) * deg
	n := node * deg
	cw, sw := math.Cos(w), math.Sin(w)
	cn, sn := math.Cos(n), math.Sin(n)
	ci, si := math.Cos(i), math.Sin(i)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

// solveKepler finds the eccentric anomaly for mean anomaly m (radians)
func solveKepler(m, e float64) float64 {
	E := m + e*math.Sin(m)
	for k := 0; k < 12; k++ {
		dE := (E - e*math.Sin(E) - m) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

// lunarTerm is one periodic term of the Moon's longitude: amplitude in degrees
// and multipliers of D, M, M' and F
type lunarTerm struct {
	amp         float64
	d, m, mp, f float64
}

var lunarTerms = []lunarTerm{
	{6.288774, 0, 0, 1, 0},
	{1.274027, 2, 0, -1, 0},
	{0.658314, 2, 0, 0, 0},
	{0.213618, 0, 0, 2, 0},
	{-0.185116, 0, 1, 0, 0},
	{-0.114332, 0, 0, 0, 2},
	{0.058793, 2, 0, -2, 0},
	{0.057066, 2, -1, -1, 0},
	{0.053322, 2, 0, 1, 0},
	{0.045758, 2, -1, 0, 0},
	{-0.040923, 0, 1, -1, 0},
	{-0.034720, 1, 0, 0, 0},
	{-0.030383, 0, 1, 1, 0},
	{0.015327, 2, 0, 0, -2},
	{-0.012528, 0, 0, 1, 2},
	{0.010980, 0, 0, 1, -2},
	{0.010675, 4, 0, -1, 0},
	{0.010034, 0, 0, 3, 0},
	{0.008548, 4, 0, -2, 0},
}

func moonLongitude(T float64) float64 {
	lp := 218.3164477 + 481267.88123421*T
	d := (297.8501921 + 445267.1114034*T) * deg
	m := (357.5291092 + 35999.0502909*T) * deg
	mp := (134.9633964 + 477198.8675055*T) * deg
	f := (93.2720950 + 483202.0175233*T) * deg

	sum := 0.0
	for _, term := range lunarTerms {
		sum += term.amp * math.Sin(term.d*d+term.m*m+term.mp*mp+term.f*f)
	}
	return normalize(lp + sum)
}
