package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/bricksage/bricksage/internal/catalog"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return &Store{DB: db}, mock, func() { _ = db.Close() }
}

func sampleRecord() catalog.Record {
	return catalog.Normalize("rebrickable", map[string]any{
		"set_num": "75192-1", "name": "Millennium Falcon", "year": float64(2017),
		"theme": "Star Wars", "num_parts": float64(7541),
	})
}

func TestUpsertRecordSQL(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	rec := sampleRecord()
	mock.ExpectExec(`INSERT INTO catalog_records`).
		WithArgs(rec.ID, "rebrickable", "Millennium Falcon", rec.Details, "75192-1",
			int64(2017), "Star Wars", int64(7541), nil, nil, nil, 100).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpsertRecord(context.Background(), rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertRecordValidation(t *testing.T) {
	s, _, closeFn := newMockStore(t)
	defer closeFn()

	if err := s.UpsertRecord(context.Background(), catalog.Record{Source: "x"}); err == nil {
		t.Fatalf("expected id validation error")
	}
	if err := s.UpsertRecord(context.Background(), catalog.Record{ID: "abc"}); err == nil {
		t.Fatalf("expected source validation error")
	}
}

func TestUpsertRecordsContinuesPastFailures(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	good := sampleRecord()
	bad := catalog.Normalize("rebrickable", map[string]any{"set_num": "10294-1", "name": "Titanic"})

	mock.ExpectExec(`INSERT INTO catalog_records`).
		WillReturnError(errors.New("value too long"))
	mock.ExpectExec(`INSERT INTO catalog_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, skipped, err := s.UpsertRecords(context.Background(), []catalog.Record{bad, good})
	if stored != 1 || skipped != 1 {
		t.Fatalf("expected stored=1 skipped=1, got %d/%d", stored, skipped)
	}
	if err == nil {
		t.Fatalf("first failure should be reported")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "source", "name", "details", "set_number", "year", "theme",
		"piece_count", "minifig_count", "price", "rating", "quality_score",
		"created_at", "updated_at",
	})
}

func TestListRecordsFilters(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM catalog_records WHERE theme = \$1 AND year >= \$2 ORDER BY year DESC NULLS LAST, piece_count DESC NULLS LAST LIMIT \$3`).
		WithArgs("Star Wars", 2015, 10).
		WillReturnRows(recordRows().
			AddRow("id1", "rebrickable", "Falcon", "{}", "75192-1", 2017, "Star Wars", 7541, nil, nil, nil, 100, now, now))

	recs, err := s.ListRecords(context.Background(), RecordFilter{Theme: "Star Wars", MinYear: 2015, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Theme == nil || *rec.Theme != "Star Wars" {
		t.Fatalf("theme not scanned: %v", rec.Theme)
	}
	if rec.MinifigCount != nil {
		t.Fatalf("NULL minifig_count should scan to nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecordsNoFilter(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT .+ FROM catalog_records ORDER BY year DESC NULLS LAST, piece_count DESC NULLS LAST`).
		WillReturnRows(recordRows())

	if _, err := s.ListRecords(context.Background(), RecordFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStats(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT source\), COUNT\(DISTINCT theme\), AVG\(piece_count\), MIN\(year\), MAX\(year\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sources", "themes", "avg", "min", "max"}).
			AddRow(42, 3, 7, 1234.5, 2015, 2024))

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRecords != 42 || st.DistinctSources != 3 || st.DistinctThemes != 7 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.AvgPieces == nil || *st.AvgPieces != 1234.5 {
		t.Fatalf("avg pieces: %v", st.AvgPieces)
	}
	if st.MinYear == nil || *st.MinYear != 2015 || st.MaxYear == nil || *st.MaxYear != 2024 {
		t.Fatalf("year span: %v %v", st.MinYear, st.MaxYear)
	}
}

func TestStatsEmptyTable(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT source\), COUNT\(DISTINCT theme\), AVG\(piece_count\), MIN\(year\), MAX\(year\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sources", "themes", "avg", "min", "max"}).
			AddRow(0, 0, 0, nil, nil, nil))

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRecords != 0 {
		t.Fatalf("expected zero records, got %d", st.TotalRecords)
	}
	if st.AvgPieces != nil || st.MinYear != nil || st.MaxYear != nil {
		t.Fatalf("NULL aggregates must stay nil: %+v", st)
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	mock.ExpectExec(`INSERT INTO ingest_runs`).
		WithArgs("run-1", RunStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ingest_runs SET`).
		WithArgs("run-1", RunStatusPartial, 9, 2, 1, 120, 118, 2, 1, "rebrickable: theme fetch failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := s.CreateIngestRun(ctx, "run-1"); err != nil {
		t.Fatalf("create run: %v", err)
	}
	err := s.FinishIngestRun(ctx, IngestRun{
		ID: "run-1", Status: RunStatusPartial,
		SourcesOK: 9, SourcesSkipped: 2, SourcesFailed: 1,
		Fetched: 120, Stored: 118, Skipped: 2, IDCollisions: 1,
		Error: "rebrickable: theme fetch failed",
	})
	if err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentIngestRuns(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	started := time.Now().Add(-time.Hour)
	finished := time.Now()
	mock.ExpectQuery(`FROM ingest_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "status", "started_at", "finished_at", "sources_ok", "sources_skipped",
			"sources_failed", "fetched", "stored", "skipped", "id_collisions", "error",
		}).
			AddRow("run-2", RunStatusSucceeded, started, finished, 11, 2, 0, 40, 40, 0, 0, nil).
			AddRow("run-1", RunStatusRunning, started, nil, 0, 0, 0, 0, 0, 0, 0, nil))

	runs, err := s.RecentIngestRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].FinishedAt == nil {
		t.Fatalf("finished run should carry its finish time")
	}
	if runs[1].FinishedAt != nil {
		t.Fatalf("running run must have nil finish time")
	}
}

func TestCreateUserReturnsID(t *testing.T) {
	s, mock, closeFn := newMockStore(t)
	defer closeFn()

	mock.ExpectQuery(`INSERT INTO users \(email, password_hash\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs("alice@example.com", "hashed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))

	id, err := s.CreateUser(context.Background(), "alice@example.com", "hashed")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("unexpected id %q", id)
	}
}
