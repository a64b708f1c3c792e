package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	snapshotTable = "payload_snapshots"
)

// Snapshot describes one stored payload without its body.
type Snapshot struct {
	ID          string    `json:"id"`
	LastUpdated time.Time `json:"last_updated"`
	Articles    int       `json:"articles"`
	Stories     int       `json:"stories"`
}

// SnapshotRepository keeps a bounded history of payloads in Postgres or SQLite.
type SnapshotRepository struct {
	db      *sql.DB
	driver  string
	retain  int
	builder sq.StatementBuilderType
}

var _ ports.PayloadStore = (*SnapshotRepository)(nil)

// Open connects to dsn with driver ("postgres" or "sqlite") and migrates the
// schema. retain <= 0 keeps every snapshot.
func Open(ctx context.Context, driver, dsn string, retain int) (*SnapshotRepository, error) {
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY on writes.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSnapshotRepository(db, driver, retain)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSnapshotRepository wires an open sql.DB.
func NewSnapshotRepository(db *sql.DB, driver string, retain int) *SnapshotRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SnapshotRepository{
		db:      db,
		driver:  driver,
		retain:  retain,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Close releases the connection pool.
func (r *SnapshotRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Migrate creates the snapshot table when missing.
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	schema := `CREATE TABLE IF NOT EXISTS ` + snapshotTable + ` (
		id            TEXT PRIMARY KEY,
		created_at    BIGINT NOT NULL,
		article_count INTEGER NOT NULL,
		story_count   INTEGER NOT NULL,
		payload       TEXT NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate snapshots: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS payload_snapshots_created_idx ON ` + snapshotTable + ` (created_at)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("migrate snapshot index: %w", err)
	}
	return nil
}

// Save inserts payload as a new snapshot and prunes history beyond retain.
func (r *SnapshotRepository) Save(ctx context.Context, payload domain.Payload) error {
	if r.db == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	records, nested := payload.Count()

	query, args, err := r.builder.
		Insert(snapshotTable).
		Columns("id", "created_at", "article_count", "story_count", "payload").
		Values(uuid.NewString(), payload.LastUpdated.UnixNano(), records, nested, string(raw)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	return r.prune(ctx)
}

func (r *SnapshotRepository) prune(ctx context.Context) error {
	if r.retain <= 0 {
		return nil
	}
	query, args, err := r.builder.
		Delete(snapshotTable).
		Where(sq.Expr("id NOT IN (SELECT id FROM "+snapshotTable+" ORDER BY created_at DESC LIMIT ?)", r.retain)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build prune: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot or domain.ErrNoPayload.
func (r *SnapshotRepository) Latest(ctx context.Context) (domain.Payload, error) {
	if r.db == nil {
		return domain.Payload{}, domain.ErrNoPayload
	}

	query, args, err := r.builder.
		Select("payload").
		From(snapshotTable).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Payload{}, fmt.Errorf("build select: %w", err)
	}

	var raw string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payload{}, domain.ErrNoPayload
	}
	if err != nil {
		return domain.Payload{}, fmt.Errorf("query latest: %w", err)
	}

	var payload domain.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.Payload{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return payload, nil
}

// History lists up to limit snapshots, newest first.
func (r *SnapshotRepository) History(ctx context.Context, limit int) ([]Snapshot, error) {
	if r.db == nil {
		return nil, nil
	}

	builder := r.builder.
		Select("id", "created_at", "article_count", "story_count").
		From(snapshotTable).
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	var result []Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			created int64
		)
		if err := rows.Scan(&s.ID, &created, &s.Articles, &s.Stories); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.LastUpdated = time.Unix(0, created).UTC()
		result = append(result, s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}
