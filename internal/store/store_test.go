package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testReport() *model.Report {
	return &model.Report{
		Sources: []model.SourceReport{
			{Source: "kobo", Matches: []model.MatchStats{{Category: model.CategoryIndividual, Records: 3, Matched: 2}}},
			{Source: "ndoga", Error: "no identifier column"},
		},
		Records:     3,
		Deliberated: 2,
		CrossTab:    model.CrossTab{ValidatedDeliberated: 2, NotValidatedNotDeliberated: 1},
		Warnings:    []model.Warning{{Kind: model.WarnZeroMatches, Source: "kobo", Stage: "validation", Message: "none matched"}},
	}
}

func ptr[T any](v T) *T { return &v }

func testParcels() []model.Parcel {
	return []model.Parcel{
		{
			ID: "P001", Commune: "Bala", Village: "Koar", HasValidationCode: true,
			SurfaceArea: ptr(95.0), UsageTypeIndividual: "Habitation", UsageTypeCollective: model.NotApplicable,
			IsDeliberated: true, DeliberatingAuthority: "Mayor X", ValidationCode: ptr("ab-12"),
			Source: "kobo", Category: model.CategoryIndividual,
		},
		{
			ID: "P001", Commune: "Bala", Village: model.Unspecified,
			UsageTypeIndividual: model.Unspecified, UsageTypeCollective: model.NotApplicable,
			DeliberatingAuthority: model.Unspecified, Source: "kobo", Category: model.CategoryIndividual,
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &model.Run{Sources: []string{"kobo", "ndoga"}, Report: testReport()}
		require.NoError(t, s.SaveRun(ctx, run))
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())
		assert.Equal(t, model.RunStatusPartial, run.Status, "status derived from the report")

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusPartial, got.Status)
		assert.Equal(t, []string{"kobo", "ndoga"}, got.Sources)
		require.NotNil(t, got.Report)
		assert.Equal(t, *run.Report, *got.Report)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(context.Background(), "nonexistent-id")
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrRunNotFound))
	})

	t.Run("SaveRunWithoutReport", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &model.Run{ID: "fixed-id", Status: model.RunStatusFailed}
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "fixed-id")
		require.NoError(t, err)
		assert.Nil(t, got.Report)
		assert.Empty(t, got.Sources)
		assert.Equal(t, model.RunStatusFailed, got.Status)
	})

	t.Run("DuplicateRunID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveRun(ctx, &model.Run{ID: "dup", Status: model.RunStatusComplete}))
		require.Error(t, s.SaveRun(ctx, &model.Run{ID: "dup", Status: model.RunStatusComplete}))
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		for i, st := range []model.RunStatus{model.RunStatusComplete, model.RunStatusPartial, model.RunStatusComplete} {
			run := &model.Run{Status: st, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
			require.NoError(t, s.SaveRun(ctx, run))
		}

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, !all[0].CreatedAt.Before(all[1].CreatedAt), "newest first")

		complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		assert.Len(t, complete, 2)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, all[1].ID, page[0].ID)
	})

	t.Run("SavePublishedParcels", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &model.Run{Status: model.RunStatusComplete}
		require.NoError(t, s.SaveRun(ctx, run))

		n, err := s.SavePublishedParcels(ctx, run.ID, testParcels())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n, "duplicate identifiers are archived as-is")

		n, err = s.SavePublishedParcels(ctx, run.ID, testParcels()[:1])
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, func(t *testing.T) Store { return newTestSQLite(t) })
}

func TestSQLite_ParcelsReplacedPerRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &model.Run{Status: model.RunStatusComplete}
	require.NoError(t, s.SaveRun(ctx, run))
	_, err := s.SavePublishedParcels(ctx, run.ID, testParcels())
	require.NoError(t, err)
	_, err = s.SavePublishedParcels(ctx, run.ID, testParcels()[:1])
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parcels WHERE run_id = ?`, run.ID).Scan(&count))
	assert.Equal(t, 1, count)

	var area *float64
	var code *string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT surface_area, validation_code FROM parcels WHERE run_id = ? AND seq = 0`, run.ID,
	).Scan(&area, &code))
	require.NotNil(t, area)
	assert.InDelta(t, 95.0, *area, 1e-9)
	require.NotNil(t, code)
	assert.Equal(t, "ab-12", *code)
}

func TestSQLite_ParcelsRequireRun(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.SavePublishedParcels(context.Background(), "missing-run", testParcels())
	require.Error(t, err)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverNone, "")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())

	_, err = Open(ctx, DriverSQLite, "")
	assert.Error(t, err)
	_, err = Open(ctx, DriverPostgres, "")
	assert.Error(t, err)
	_, err = Open(ctx, "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
