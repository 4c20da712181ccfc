package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"astro-service/models"
)

// SaveVoidPeriods upserts periods and records [from, to] as computed.
// A transit is identified by its moon sign and ingress, so saving overlapping
// ranges never stores it twice. Everything is written in one transaction.
func (s *Store) SaveVoidPeriods(ctx context.Context, from, to time.Time, periods []models.VoidPeriod) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range periods {
		var planet, aspect sql.NullString
		var aspectAt sql.NullTime
		if p.LastAspect != nil {
			planet = sql.NullString{String: string(p.LastAspect.Planet), Valid: true}
			aspect = sql.NullString{String: string(p.LastAspect.Type), Valid: true}
			aspectAt = sql.NullTime{Time: p.LastAspect.Time.UTC(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO moon_void_periods
				(start_at, end_at, moon_sign, next_sign, last_aspect_planet, last_aspect_type, last_aspect_at, duration_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (moon_sign, end_at) DO UPDATE SET
				start_at = EXCLUDED.start_at,
				next_sign = EXCLUDED.next_sign,
				last_aspect_planet = EXCLUDED.last_aspect_planet,
				last_aspect_type = EXCLUDED.last_aspect_type,
				last_aspect_at = EXCLUDED.last_aspect_at,
				duration_minutes = EXCLUDED.duration_minutes`,
			p.Start.UTC(), p.End.UTC(), p.MoonSign.String(), p.NextSign.String(),
			planet, aspect, aspectAt, p.DurationMinutes)
		if err != nil {
			return fmt.Errorf("failed to save void period %s: %w", p.Start.UTC().Format(time.RFC3339), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moon_void_coverage (range_start, range_end)
		VALUES ($1, $2)
		ON CONFLICT (range_start, range_end) DO UPDATE SET computed_at = CURRENT_TIMESTAMP`,
		from.UTC(), to.UTC())
	if err != nil {
		return fmt.Errorf("failed to save coverage: %w", err)
	}

	return tx.Commit()
}

// Covered reports whether a single saved range contains [from, to]
func (s *Store) Covered(ctx context.Context, from, to time.Time) (bool, error) {
	var covered bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM moon_void_coverage WHERE range_start <= $1 AND range_end >= $2
		)`, from.UTC(), to.UTC()).Scan(&covered)
	if err != nil {
		return false, fmt.Errorf("failed to check coverage: %w", err)
	}
	return covered, nil
}

// VoidPeriodsBetween returns saved periods whose ingress falls in (from, to], ordered by start
func (s *Store) VoidPeriodsBetween(ctx context.Context, from, to time.Time) ([]models.VoidPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_at, end_at, moon_sign, next_sign, last_aspect_planet, last_aspect_type, last_aspect_at, duration_minutes
		FROM moon_void_periods
		WHERE end_at > $1 AND end_at <= $2
		ORDER BY start_at`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query void periods: %w", err)
	}
	defer rows.Close()

	periods := []models.VoidPeriod{}
	for rows.Next() {
		var (
			p                  models.VoidPeriod
			moonSign, nextSign string
			planet, aspect     sql.NullString
			aspectAt           sql.NullTime
		)
		if err := rows.Scan(&p.Start, &p.End, &moonSign, &nextSign, &planet, &aspect, &aspectAt, &p.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan void period: %w", err)
		}

		var ok bool
		if p.MoonSign, ok = models.ParseSign(moonSign); !ok {
			return nil, fmt.Errorf("unknown moon sign %q in store", moonSign)
		}
		if p.NextSign, ok = models.ParseSign(nextSign); !ok {
			return nil, fmt.Errorf("unknown next sign %q in store", nextSign)
		}
		p.Start = p.Start.UTC()
		p.End = p.End.UTC()
		if planet.Valid && aspect.Valid && aspectAt.Valid {
			p.LastAspect = &models.LastAspect{
				Planet: models.Planet(planet.String),
				Type:   models.AspectType(aspect.String),
				Time:   aspectAt.Time.UTC(),
			}
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read void periods: %w", err)
	}
	return periods, nil
}
