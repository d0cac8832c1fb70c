package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists operational history to PostgreSQL via pgx,
// grounded on the teacher's repository pattern
// (internal/infrastructure/template/repository_versions.go).
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresRepository wraps an already-migrated pgxpool.Pool.
func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{pool: pool, logger: logger}
}

func (r *PostgresRepository) RecordDemotion(ctx context.Context, rec DemotionRecord) error {
	start := time.Now()
	defer func() {
		r.logger.Debug("record demotion", "rid", rec.RID, "duration_ms", time.Since(start).Milliseconds())
	}()

	const query = `
		INSERT INTO demotions (rid, path, reason, last_accessed, request_count, at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query, rec.RID, rec.Path, rec.Reason, rec.LastAccessed, rec.RequestCount, rec.At).Scan(&rec.ID)
}

func (r *PostgresRepository) ListDemotions(ctx context.Context, path string, limit int) ([]DemotionRecord, error) {
	query := `
		SELECT id, rid, path, reason, last_accessed, request_count, at
		FROM demotions
		WHERE ($1 = '' OR path = $1)
		ORDER BY at DESC
		LIMIT $2
	`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, query, path, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DemotionRecord
	for rows.Next() {
		var rec DemotionRecord
		if err := rows.Scan(&rec.ID, &rec.RID, &rec.Path, &rec.Reason, &rec.LastAccessed, &rec.RequestCount, &rec.At); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecordSnapshot(ctx context.Context, rec SnapshotRecord) error {
	const query = `
		INSERT INTO snapshots (id, type, path, size_bytes, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, rec.ID, rec.Type, rec.Path, rec.SizeBytes, rec.Timestamp)
	return err
}

func (r *PostgresRepository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, type, path, size_bytes, timestamp
		FROM snapshots
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Path, &rec.SizeBytes, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}
