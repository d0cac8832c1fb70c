package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_DemotionsOrderedNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := DemotionRecord{RID: "tsv:1-a-1", Path: "/users", Reason: "cold", At: time.Now().Add(-time.Hour)}
	newer := DemotionRecord{RID: "tsv:2-a-1", Path: "/users", Reason: "low_usage", At: time.Now()}

	require.NoError(t, repo.RecordDemotion(ctx, older))
	require.NoError(t, repo.RecordDemotion(ctx, newer))

	list, err := repo.ListDemotions(ctx, "/users", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tsv:2-a-1", list[0].RID)
	assert.Equal(t, "tsv:1-a-1", list[1].RID)
}

func TestMemoryRepository_ListDemotionsFiltersByPath(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.RecordDemotion(ctx, DemotionRecord{Path: "/users"}))
	require.NoError(t, repo.RecordDemotion(ctx, DemotionRecord{Path: "/orders"}))

	list, err := repo.ListDemotions(ctx, "/orders", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/orders", list[0].Path)
}

func TestMemoryRepository_ListDemotionsRespectsLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordDemotion(ctx, DemotionRecord{Path: "/users"}))
	}

	list, err := repo.ListDemotions(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryRepository_Snapshots(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.RecordSnapshot(ctx, SnapshotRecord{ID: "snap:1-light-aaaa", Type: "light", Timestamp: time.Now()}))

	list, err := repo.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "snap:1-light-aaaa", list[0].ID)
}
