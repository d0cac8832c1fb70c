package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is a process-local Repository, useful for tests and
// single-process deployments that don't need durability across restarts.
type MemoryRepository struct {
	mu        sync.Mutex
	nextID    int64
	demotions []DemotionRecord
	snapshots []SnapshotRecord
}

// NewMemoryRepository builds an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) RecordDemotion(ctx context.Context, rec DemotionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.demotions = append(r.demotions, rec)
	return nil
}

func (r *MemoryRepository) ListDemotions(ctx context.Context, path string, limit int) ([]DemotionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DemotionRecord, 0, len(r.demotions))
	for _, d := range r.demotions {
		if path == "" || d.Path == path {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) RecordSnapshot(ctx context.Context, rec SnapshotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, rec)
	return nil
}

func (r *MemoryRepository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SnapshotRecord, len(r.snapshots))
	copy(out, r.snapshots)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Close(ctx context.Context) error { return nil }
