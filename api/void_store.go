package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"astro-service/models"
)

// VoidStore persists computed void periods together with the ranges they cover
type VoidStore interface {
	Covered(ctx context.Context, from, to time.Time) (bool, error)
	VoidPeriodsBetween(ctx context.Context, from, to time.Time) ([]models.VoidPeriod, error)
	SaveVoidPeriods(ctx context.Context, from, to time.Time, periods []models.VoidPeriod) error
}

type timeRange struct {
	from, to time.Time
}

// transitKey identifies one Moon sign transit by its sign and ingress
type transitKey struct {
	sign    models.ZodiacSign
	ingress time.Time
}

func keyOf(p models.VoidPeriod) transitKey {
	return transitKey{sign: p.MoonSign, ingress: p.End.UTC()}
}

// MemoryVoidStore holds computed void periods in memory, one per transit.
// It is used when no database is configured.
type MemoryVoidStore struct {
	periods  map[transitKey]models.VoidPeriod
	coverage []timeRange
	mutex    sync.RWMutex
}

// NewMemoryVoidStore creates a new in-memory void period store
func NewMemoryVoidStore() *MemoryVoidStore {
	return &MemoryVoidStore{
		periods: make(map[transitKey]models.VoidPeriod),
	}
}

// Covered reports whether one saved range contains [from, to]
func (s *MemoryVoidStore) Covered(ctx context.Context, from, to time.Time) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, r := range s.coverage {
		if !r.from.After(from) && !r.to.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

// VoidPeriodsBetween returns periods whose ingress falls in (from, to], ordered by start
func (s *MemoryVoidStore) VoidPeriodsBetween(ctx context.Context, from, to time.Time) ([]models.VoidPeriod, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	periods := []models.VoidPeriod{}
	for _, p := range s.periods {
		if p.End.After(from) && !p.End.After(to) {
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods, nil
}

// SaveVoidPeriods adds or replaces periods and records [from, to] as computed.
// A period for a transit already stored replaces the old one.
func (s *MemoryVoidStore) SaveVoidPeriods(ctx context.Context, from, to time.Time, periods []models.VoidPeriod) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, p := range periods {
		s.periods[keyOf(p)] = p
	}
	s.coverage = append(s.coverage, timeRange{from: from.UTC(), to: to.UTC()})
	return nil
}

// PruneBefore removes periods that ended before cutoff, and the ranges that covered them
func (s *MemoryVoidStore) PruneBefore(cutoff time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prunedCount := 0
	for key, p := range s.periods {
		if p.End.Before(cutoff) {
			delete(s.periods, key)
			prunedCount++
		}
	}

	kept := s.coverage[:0]
	for _, r := range s.coverage {
		if !r.from.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	s.coverage = kept

	return prunedCount
}

// Ensure MemoryVoidStore implements VoidStore
var _ VoidStore = (*MemoryVoidStore)(nil)
