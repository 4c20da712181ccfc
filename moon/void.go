// Package moon finds lunar void-of-course windows and builds the moon calendar.
//
// Everything here is a pure function of an Ephemeris: no I/O, no shared state,
// safe to call from any number of goroutines.
package moon

import (
	"errors"
	"fmt"
	"math"
	"time"

	"astro-service/aspects"
	"astro-service/models"
)

var (
	// ErrInvalidRange is returned when the requested end is not after start
	ErrInvalidRange = errors.New("end must be after start")
	// ErrNoIngress is returned when the ephemeris never moves the Moon into another sign
	ErrNoIngress = errors.New("no sign ingress found")
)

// Ephemeris supplies geocentric ecliptic longitudes in degrees
type Ephemeris interface {
	Longitude(body models.Planet, t time.Time) (float64, error)
}

// DetectorConfig tunes the void-of-course search. Zero values take defaults.
type DetectorConfig struct {
	Bodies     []models.Planet // bodies the Moon may aspect
	Step       time.Duration   // sampling interval
	Precision  time.Duration   // bisection tolerance for event times
	MaxTransit time.Duration   // longest a sign transit may last
}

// DefaultBodies are the bodies aspected by the Moon in void-of-course work
var DefaultBodies = []models.Planet{
	models.Sun, models.Mercury, models.Venus, models.Mars, models.Jupiter,
	models.Saturn, models.Uranus, models.Neptune, models.Pluto,
}

// MaxStep bounds the sampling interval. The Moon must move well under 90 degrees
// relative to any body between samples or aspect crossings go unseen.
const MaxStep = 6 * time.Hour

const (
	defaultStep       = time.Hour
	defaultPrecision  = time.Minute
	defaultMaxTransit = 4 * 24 * time.Hour
)

// target is an elongation of the Moon from a body at which a major aspect is exact
type target struct {
	angle  float64
	aspect models.AspectType
}

// majorTargets lists both sides of each major aspect as Moon-minus-body elongations
var majorTargets = []target{
	{0, models.Conjunction},
	{60, models.Sextile},
	{90, models.Square},
	{120, models.Trine},
	{180, models.Opposition},
	{240, models.Trine},
	{270, models.Square},
	{300, models.Sextile},
}

// Detector finds the windows in which the Moon forms no further major aspect
// before changing sign
type Detector struct {
	eph        Ephemeris
	bodies     []models.Planet
	step       time.Duration
	precision  time.Duration
	maxTransit time.Duration
}

// NewDetector creates a detector over the given ephemeris
func NewDetector(eph Ephemeris, cfg DetectorConfig) *Detector {
	d := &Detector{
		eph:        eph,
		bodies:     cfg.Bodies,
		step:       cfg.Step,
		precision:  cfg.Precision,
		maxTransit: cfg.MaxTransit,
	}
	if len(d.bodies) == 0 {
		d.bodies = DefaultBodies
	}
	if d.step <= 0 {
		d.step = defaultStep
	}
	if d.step > MaxStep {
		d.step = MaxStep
	}
	if d.precision <= 0 {
		d.precision = defaultPrecision
	}
	if d.maxTransit <= 0 {
		d.maxTransit = defaultMaxTransit
	}
	return d
}

// VoidPeriods returns one VoidPeriod for every Moon sign transit whose ingress
// falls in (start, end], in chronological order. A transit without any major
// aspect is void from sign entry to ingress.
func (d *Detector) VoidPeriods(start, end time.Time) ([]models.VoidPeriod, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	start, end = start.UTC(), end.UTC()

	entry, err := d.previousIngress(start)
	if err != nil {
		return nil, err
	}

	periods := make([]models.VoidPeriod, 0)
	for cursor := entry; ; {
		ingress, err := d.nextIngress(cursor)
		if err != nil {
			return nil, err
		}
		if ingress.After(end) {
			break
		}
		if ingress.After(start) {
			period, err := d.transitVoid(cursor, ingress)
			if err != nil {
				return nil, err
			}
			periods = append(periods, period)
		}
		cursor = ingress
	}
	return periods, nil
}

func (d *Detector) moonSign(t time.Time) (models.ZodiacSign, error) {
	lon, err := d.eph.Longitude(models.Moon, t)
	if err != nil {
		return 0, fmt.Errorf("moon longitude at %s: %w", t.Format(time.RFC3339), err)
	}
	return models.SignOf(lon), nil
}

// nextIngress returns the first instant after from at which the Moon is in a new sign
func (d *Detector) nextIngress(from time.Time) (time.Time, error) {
	sign, err := d.moonSign(from)
	if err != nil {
		return time.Time{}, err
	}
	changed := func(t time.Time) (bool, error) {
		s, err := d.moonSign(t)
		return s != sign, err
	}

	for lo := from; lo.Sub(from) < d.maxTransit; {
		hi := lo.Truncate(d.step).Add(d.step)
		moved, err := changed(hi)
		if err != nil {
			return time.Time{}, err
		}
		if moved {
			return d.bisect(lo, hi, changed)
		}
		lo = hi
	}
	return time.Time{}, fmt.Errorf("%w after %s", ErrNoIngress, from.Format(time.RFC3339))
}

// previousIngress returns the instant at or before at when the Moon entered its
// current sign
func (d *Detector) previousIngress(at time.Time) (time.Time, error) {
	sign, err := d.moonSign(at)
	if err != nil {
		return time.Time{}, err
	}
	inSign := func(t time.Time) (bool, error) {
		s, err := d.moonSign(t)
		return s == sign, err
	}

	for hi := at; at.Sub(hi) < d.maxTransit; {
		lo := hi.Add(-1).Truncate(d.step)
		still, err := inSign(lo)
		if err != nil {
			return time.Time{}, err
		}
		if !still {
			return d.bisect(lo, hi, inSign)
		}
		hi = lo
	}
	return time.Time{}, fmt.Errorf("%w before %s", ErrNoIngress, at.Format(time.RFC3339))
}

// bisect returns the first instant on the precision grid at which pred holds,
// given pred(lo) is false and pred(hi) is true. The grid is anchored to absolute
// time, so the result depends on the predicate and not on the bracket.
func (d *Detector) bisect(lo, hi time.Time, pred func(time.Time) (bool, error)) (time.Time, error) {
	lo, hi = ceilTo(lo, d.precision), ceilTo(hi, d.precision)
	ok, err := pred(lo)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return lo, nil
	}
	for hi.Sub(lo) > d.precision {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(d.precision)
		ok, err := pred(mid)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

// ceilTo rounds t up to a multiple of unit since the zero time
func ceilTo(t time.Time, unit time.Duration) time.Time {
	if floor := t.Truncate(unit); !floor.Equal(t) {
		return floor.Add(unit)
	}
	return t
}

// offset is the Moon's elongation from a body minus the target angle, in (-180, 180]
func offset(moonLon, bodyLon, angle float64) float64 {
	x := aspects.NormalizeLongitude(moonLon-bodyLon-angle)
	if x > 180 {
		x -= 360
	}
	return x
}

// crossed reports a zero crossing of the offset between two samples, ignoring
// the jump at +-180
func crossed(before, after float64) bool {
	if math.Abs(before) > 90 || math.Abs(after) > 90 {
		return false
	}
	return (before < 0 && after >= 0) || (before > 0 && after <= 0)
}

// transitVoid scans the transit [entry, ingress] for the last exact major aspect
func (d *Detector) transitVoid(entry, ingress time.Time) (models.VoidPeriod, error) {
	moonSign, err := d.moonSign(entry)
	if err != nil {
		return models.VoidPeriod{}, err
	}
	nextSign, err := d.moonSign(ingress)
	if err != nil {
		return models.VoidPeriod{}, err
	}

	var last *models.LastAspect
	for _, body := range d.bodies {
		event, err := d.lastAspectTo(body, entry, ingress)
		if err != nil {
			return models.VoidPeriod{}, err
		}
		if event != nil && (last == nil || event.Time.After(last.Time)) {
			last = event
		}
	}

	start := entry
	if last != nil {
		start = last.Time
		last.Time = last.Time.UTC().Truncate(time.Second)
	}
	start = start.UTC().Truncate(time.Second)
	end := ingress.UTC().Truncate(time.Second)

	return models.VoidPeriod{
		Start:           start,
		End:             end,
		LastAspect:      last,
		MoonSign:        moonSign,
		NextSign:        nextSign,
		DurationMinutes: int(math.Round(end.Sub(start).Minutes())),
	}, nil
}

func (d *Detector) lastAspectTo(body models.Planet, from, to time.Time) (*models.LastAspect, error) {
	sample := func(t time.Time) (float64, float64, error) {
		m, err := d.eph.Longitude(models.Moon, t)
		if err != nil {
			return 0, 0, fmt.Errorf("moon longitude: %w", err)
		}
		b, err := d.eph.Longitude(body, t)
		if err != nil {
			return 0, 0, fmt.Errorf("%s longitude: %w", body, err)
		}
		return m, b, nil
	}

	var last *models.LastAspect
	t0 := from
	m0, b0, err := sample(t0)
	if err != nil {
		return nil, err
	}
	for t0.Before(to) {
		t1 := t0.Truncate(d.step).Add(d.step)
		if t1.After(to) {
			t1 = to
		}
		m1, b1, err := sample(t1)
		if err != nil {
			return nil, err
		}

		for _, tg := range majorTargets {
			before, after := offset(m0, b0, tg.angle), offset(m1, b1, tg.angle)
			if !crossed(before, after) {
				continue
			}
			negative := before < 0
			at, err := d.bisect(t0, t1, func(t time.Time) (bool, error) {
				m, b, err := sample(t)
				if err != nil {
					return false, err
				}
				o := offset(m, b, tg.angle)
				if negative {
					return o >= 0, nil
				}
				return o <= 0, nil
			})
			if err != nil {
				return nil, err
			}
			if last == nil || at.After(last.Time) {
				last = &models.LastAspect{Planet: body, Type: tg.aspect, Time: at}
			}
		}
		t0, m0, b0 = t1, m1, b1
	}
	return last, nil
}
