// Package history provides repositories (memory, SQLite, Postgres) for an
// operational record of Lifecycle Manager demotions and Snapshot Manager
// runs that survives process restarts. The in-memory core components
// never depend on this package. cmd/timescaped opens the configured
// backend at startup; nothing in this module records to it or reads
// from it.
package history

import (
	"context"
	"time"
)

// DemotionRecord mirrors lifecycle.HistoryEntry for durable storage.
type DemotionRecord struct {
	ID           int64
	RID          string
	Path         string
	Reason       string
	LastAccessed time.Time
	RequestCount uint64
	At           time.Time
}

// SnapshotRecord indexes one snapshot taken by the Snapshot Manager.
type SnapshotRecord struct {
	ID        string
	Type      string
	Path      string
	SizeBytes int64
	Timestamp time.Time
}

// Repository is the persistence boundary for operational history.
// Implementations: in-memory (tests/dev), Postgres (jackc/pgx), and
// embedded SQLite (modernc.org/sqlite) for single-binary deployments.
type Repository interface {
	RecordDemotion(ctx context.Context, rec DemotionRecord) error
	ListDemotions(ctx context.Context, path string, limit int) ([]DemotionRecord, error)

	RecordSnapshot(ctx context.Context, rec SnapshotRecord) error
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)

	Close(ctx context.Context) error
}
