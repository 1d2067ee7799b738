// Package store is the Postgres persistence layer for catalog records,
// ingestion runs, and users. Schema lives in migrations/; see the migrate
// command.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/bricksage/bricksage/internal/catalog"
)

type Store struct {
	DB *sql.DB
}

// Ingest run statuses persisted in ingest_runs.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// IngestRun is one persisted ingestion run with its aggregate counters.
type IngestRun struct {
	ID             string
	Status         string
	StartedAt      time.Time
	FinishedAt     *time.Time
	SourcesOK      int
	SourcesSkipped int
	SourcesFailed  int
	Fetched        int
	Stored         int
	Skipped        int
	IDCollisions   int
	Error          string
}

// CatalogStats are the aggregate facts the stats surfaces report. Pointer
// fields are nil on an empty table, where SQL aggregates return NULL.
type CatalogStats struct {
	TotalRecords    int
	DistinctSources int
	DistinctThemes  int
	AvgPieces       *float64
	MinYear         *int
	MaxYear         *int
}

// RecordFilter narrows ListRecords. Zero values mean "no constraint".
type RecordFilter struct {
	Source    string
	Theme     string
	MinYear   int
	MaxYear   int
	MinPieces int
	Limit     int
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// UpsertRecord inserts or replaces one record keyed on its content-derived id.
// Every descriptive field follows the newest write; created_at survives from
// the first insert.
func (s *Store) UpsertRecord(ctx context.Context, rec catalog.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id required")
	}
	if rec.Source == "" {
		return fmt.Errorf("record source required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO catalog_records (
  id, source, name, details, set_number, year, theme, piece_count,
  minifig_count, price, rating, quality_score, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
)
ON CONFLICT (id) DO UPDATE SET
  source = EXCLUDED.source,
  name = EXCLUDED.name,
  details = EXCLUDED.details,
  set_number = EXCLUDED.set_number,
  year = EXCLUDED.year,
  theme = EXCLUDED.theme,
  piece_count = EXCLUDED.piece_count,
  minifig_count = EXCLUDED.minifig_count,
  price = EXCLUDED.price,
  rating = EXCLUDED.rating,
  quality_score = EXCLUDED.quality_score,
  updated_at = NOW();
`,
		rec.ID, rec.Source, rec.Name, rec.Details, nullStr(rec.SetNumber),
		nullInt(rec.Year), nullStr(rec.Theme), nullInt(rec.PieceCount),
		nullInt(rec.MinifigCount), nullFloat(rec.Price), nullFloat(rec.Rating),
		rec.QualityScore,
	)
	return err
}

// UpsertRecords writes a batch with per-record containment: a failing record
// is skipped and the rest still land, each upsert committing on its own. The
// returned error is the first per-record failure and is informational when
// stored > 0.
func (s *Store) UpsertRecords(ctx context.Context, recs []catalog.Record) (stored, skipped int, err error) {
	for _, rec := range recs {
		if ctx.Err() != nil {
			return stored, skipped, ctx.Err()
		}
		if uerr := s.UpsertRecord(ctx, rec); uerr != nil {
			skipped++
			if err == nil {
				err = uerr
			}
			continue
		}
		stored++
	}
	return stored, skipped, err
}

const recordColumns = `id, source, name, details, set_number, year, theme, piece_count, minifig_count, price, rating, quality_score, created_at, updated_at`

// ListRecords returns records matching the filter, newest and biggest first.
// The ordering feeds the index build so freshly released big sets dominate
// truncated builds.
func (s *Store) ListRecords(ctx context.Context, f RecordFilter) ([]catalog.Record, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	if f.Theme != "" {
		add("theme = $%d", f.Theme)
	}
	if f.MinYear > 0 {
		add("year >= $%d", f.MinYear)
	}
	if f.MaxYear > 0 {
		add("year <= $%d", f.MaxYear)
	}
	if f.MinPieces > 0 {
		add("piece_count >= $%d", f.MinPieces)
	}

	query := `SELECT ` + recordColumns + ` FROM catalog_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY year DESC NULLS LAST, piece_count DESC NULLS LAST`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []catalog.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetRecord fetches one record by id.
func (s *Store) GetRecord(ctx context.Context, id string) (catalog.Record, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE id = $1`, id)
	return scanRecord(row)
}

// CountRecords reports how many records the catalog holds.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_records`).Scan(&n)
	return n, err
}

// Stats derives the catalog aggregates in one query.
func (s *Store) Stats(ctx context.Context) (CatalogStats, error) {
	var (
		st       CatalogStats
		avg      sql.NullFloat64
		min, max sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT source), COUNT(DISTINCT theme), AVG(piece_count), MIN(year), MAX(year)
FROM catalog_records`).Scan(&st.TotalRecords, &st.DistinctSources, &st.DistinctThemes, &avg, &min, &max)
	if err != nil {
		return CatalogStats{}, err
	}
	if avg.Valid {
		v := avg.Float64
		st.AvgPieces = &v
	}
	if min.Valid {
		v := int(min.Int64)
		st.MinYear = &v
	}
	if max.Valid {
		v := int(max.Int64)
		st.MaxYear = &v
	}
	return st, nil
}

// Ingest run operations

func (s *Store) CreateIngestRun(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, status, started_at) VALUES ($1, $2, NOW())`,
		id, RunStatusRunning)
	return err
}

// FinishIngestRun records the final status and counters for a run.
func (s *Store) FinishIngestRun(ctx context.Context, run IngestRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.DB.ExecContext(ctx, `
UPDATE ingest_runs SET
  status = $2, finished_at = NOW(), sources_ok = $3, sources_skipped = $4,
  sources_failed = $5, fetched = $6, stored = $7, skipped = $8,
  id_collisions = $9, error = $10
WHERE id = $1`,
		run.ID, run.Status, run.SourcesOK, run.SourcesSkipped, run.SourcesFailed,
		run.Fetched, run.Stored, run.Skipped, run.IDCollisions, nullStrEmpty(run.Error),
	)
	return err
}

// RecentIngestRuns lists the latest runs, newest first.
func (s *Store) RecentIngestRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, status, started_at, finished_at, sources_ok, sources_skipped, sources_failed,
       fetched, stored, skipped, id_collisions, error
FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var (
			run      IngestRun
			finished sql.NullTime
			errText  sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &finished,
			&run.SourcesOK, &run.SourcesSkipped, &run.SourcesFailed,
			&run.Fetched, &run.Stored, &run.Skipped, &run.IDCollisions, &errText); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
		email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (catalog.Record, error) {
	var (
		rec      catalog.Record
		setNum   sql.NullString
		year     sql.NullInt64
		theme    sql.NullString
		pieces   sql.NullInt64
		minifigs sql.NullInt64
		price    sql.NullFloat64
		rating   sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Name, &rec.Details, &setNum,
		&year, &theme, &pieces, &minifigs, &price, &rating,
		&rec.QualityScore, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return catalog.Record{}, err
	}
	if setNum.Valid {
		v := setNum.String
		rec.SetNumber = &v
	}
	if year.Valid {
		v := int(year.Int64)
		rec.Year = &v
	}
	if theme.Valid {
		v := theme.String
		rec.Theme = &v
	}
	if pieces.Valid {
		v := int(pieces.Int64)
		rec.PieceCount = &v
	}
	if minifigs.Valid {
		v := int(minifigs.Int64)
		rec.MinifigCount = &v
	}
	if price.Valid {
		v := price.Float64
		rec.Price = &v
	}
	if rating.Valid {
		v := rating.Float64
		rec.Rating = &v
	}
	return rec, nil
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullStrEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
