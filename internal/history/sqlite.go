package history

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS demotions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rid TEXT NOT NULL,
	path TEXT NOT NULL,
	reason TEXT NOT NULL,
	last_accessed INTEGER NOT NULL,
	request_count INTEGER NOT NULL,
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_demotions_path ON demotions(path);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
`

// SQLiteRepository persists operational history to an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver, for single-binary
// deployments that don't run a separate Postgres instance.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteRepository opens (creating if absent) a SQLite database at
// path and ensures the schema exists.
func OpenSQLiteRepository(path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) RecordDemotion(ctx context.Context, rec DemotionRecord) error {
	const query = `
		INSERT INTO demotions (rid, path, reason, last_accessed, request_count, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, rec.RID, rec.Path, rec.Reason, rec.LastAccessed.UnixMilli(), rec.RequestCount, rec.At.UnixMilli())
	return err
}

func (r *SQLiteRepository) ListDemotions(ctx context.Context, path string, limit int) ([]DemotionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, rid, path, reason, last_accessed, request_count, at
		FROM demotions
		WHERE (? = '' OR path = ?)
		ORDER BY at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, path, path, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DemotionRecord
	for rows.Next() {
		var rec DemotionRecord
		var lastAccessed, at int64
		if err := rows.Scan(&rec.ID, &rec.RID, &rec.Path, &rec.Reason, &lastAccessed, &rec.RequestCount, &at); err != nil {
			return nil, err
		}
		rec.LastAccessed = millisToTime(lastAccessed)
		rec.At = millisToTime(at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordSnapshot(ctx context.Context, rec SnapshotRecord) error {
	const query = `
		INSERT OR IGNORE INTO snapshots (id, type, path, size_bytes, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.Type, rec.Path, rec.SizeBytes, rec.Timestamp.UnixMilli())
	return err
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, type, path, size_bytes, timestamp
		FROM snapshots
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Path, &rec.SizeBytes, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp = millisToTime(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
