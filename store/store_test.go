package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-service/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS moon_void_periods").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS moon_void_periods_end_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS moon_void_coverage").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analytics_counters").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := s.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func samplePeriods() []models.VoidPeriod {
	return []models.VoidPeriod{
		{
			Start:           time.Date(2026, 1, 2, 4, 10, 0, 0, time.UTC),
			End:             time.Date(2026, 1, 2, 7, 16, 0, 0, time.UTC),
			LastAspect:      &models.LastAspect{Planet: models.Mars, Type: models.Trine, Time: time.Date(2026, 1, 2, 4, 10, 0, 0, time.UTC)},
			MoonSign:        models.Aries,
			NextSign:        models.Taurus,
			DurationMinutes: 186,
		},
		{
			Start:           time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC),
			End:             time.Date(2026, 1, 4, 19, 0, 0, 0, time.UTC),
			MoonSign:        models.Taurus,
			NextSign:        models.Gemini,
			DurationMinutes: 2040,
		},
	}
}

func TestSaveVoidPeriods(t *testing.T) {
	s, mock := newMockStore(t)
	periods := samplePeriods()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO moon_void_periods").
		WithArgs(periods[0].Start, periods[0].End, "Aries", "Taurus", "Mars", "Trine", periods[0].LastAspect.Time, 186).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO moon_void_periods").
		WithArgs(periods[1].Start, periods[1].End, "Taurus", "Gemini", nil, nil, nil, 2040).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO moon_void_coverage").
		WithArgs(from, to).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveVoidPeriods(context.Background(), from, to, periods))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveVoidPeriods_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO moon_void_periods").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveVoidPeriods(context.Background(), time.Now(), time.Now(), samplePeriods())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveVoidPeriods_OverlappingRangesUpsertByTransit(t *testing.T) {
	s, mock := newMockStore(t)
	periods := samplePeriods()
	a := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	c := time.Date(2026, 1, 2, 6, 13, 0, 0, time.UTC)
	d := time.Date(2026, 1, 8, 6, 13, 0, 0, time.UTC)

	// the second range shares the Taurus transit and reports it with the same ingress
	later := periods[1]
	later.Start = later.Start.Add(-time.Minute)
	later.DurationMinutes++

	upsert := `INSERT INTO moon_void_periods .* ON CONFLICT \(moon_sign, end_at\) DO UPDATE SET\s+start_at = EXCLUDED.start_at`

	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs(periods[0].Start, periods[0].End, "Aries", "Taurus", "Mars", "Trine", periods[0].LastAspect.Time, 186).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).
		WithArgs(periods[1].Start, periods[1].End, "Taurus", "Gemini", nil, nil, nil, 2040).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO moon_void_coverage").WithArgs(a, b).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs(later.Start, later.End, "Taurus", "Gemini", nil, nil, nil, 2041).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO moon_void_coverage").WithArgs(c, d).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows := sqlmock.NewRows([]string{
		"start_at", "end_at", "moon_sign", "next_sign",
		"last_aspect_planet", "last_aspect_type", "last_aspect_at", "duration_minutes",
	}).AddRow(later.Start, later.End, "Taurus", "Gemini", nil, nil, nil, 2041)
	mock.ExpectQuery(`SELECT start_at, end_at .* WHERE end_at > \$1 AND end_at <= \$2`).
		WithArgs(c, b).
		WillReturnRows(rows)

	ctx := context.Background()
	require.NoError(t, s.SaveVoidPeriods(ctx, a, b, periods))
	require.NoError(t, s.SaveVoidPeriods(ctx, c, d, []models.VoidPeriod{later}))

	got, err := s.VoidPeriodsBetween(ctx, c, b)
	require.NoError(t, err)
	assert.Equal(t, []models.VoidPeriod{later}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCovered(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	covered, err := s.Covered(context.Background(), from, to)
	require.NoError(t, err)
	assert.True(t, covered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoidPeriodsBetween(t *testing.T) {
	s, mock := newMockStore(t)
	want := samplePeriods()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"start_at", "end_at", "moon_sign", "next_sign",
		"last_aspect_planet", "last_aspect_type", "last_aspect_at", "duration_minutes",
	}).
		AddRow(want[0].Start, want[0].End, "Aries", "Taurus", "Mars", "Trine", want[0].LastAspect.Time, 186).
		AddRow(want[1].Start, want[1].End, "Taurus", "Gemini", nil, nil, nil, 2040)
	mock.ExpectQuery("SELECT start_at, end_at").WithArgs(from, to).WillReturnRows(rows)

	got, err := s.VoidPeriodsBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoidPeriodsBetween_Empty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT start_at, end_at").
		WillReturnRows(sqlmock.NewRows([]string{"start_at"}))

	got, err := s.VoidPeriodsBetween(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestVoidPeriodsBetween_BadSign(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"start_at", "end_at", "moon_sign", "next_sign",
		"last_aspect_planet", "last_aspect_type", "last_aspect_at", "duration_minutes",
	}).AddRow(now, now, "Ophiuchus", "Taurus", nil, nil, nil, 0)
	mock.ExpectQuery("SELECT start_at, end_at").WillReturnRows(rows)

	_, err := s.VoidPeriodsBetween(context.Background(), now, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ophiuchus")
}

func TestIncrementCounters(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analytics_counters").
		WithArgs("compatibility", "2026-10-15", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analytics_counters").
		WithArgs("moon_void", "2026-10-15", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.IncrementCounters(context.Background(), day, map[string]int64{"moon_void": 1, "compatibility": 3})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCounters_NothingToDo(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.IncrementCounters(context.Background(), time.Now(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounters(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT name, count FROM analytics_counters").
		WithArgs("2026-10-15").
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).AddRow("compatibility", int64(12)))

	totals, err := s.Counters(context.Background(), time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"compatibility": 12}, totals)
}
