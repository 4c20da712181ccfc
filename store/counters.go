package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// IncrementCounters adds counts to the per-day totals for day (UTC date)
func (s *Store) IncrementCounters(ctx context.Context, day time.Time, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	date := day.UTC().Format(time.DateOnly)
	for _, name := range names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analytics_counters (name, day, count)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, day) DO UPDATE SET count = analytics_counters.count + EXCLUDED.count`,
			name, date, counts[name])
		if err != nil {
			return fmt.Errorf("failed to increment counter %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Counters returns the totals recorded for day
func (s *Store) Counters(ctx context.Context, day time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, count FROM analytics_counters WHERE day = $1`, day.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		totals[name] = count
	}
	return totals, rows.Err()
}
