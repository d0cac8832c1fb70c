package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
)

type fakeRegistry struct {
	paths     []string
	timelines map[string][]*registry.Revision
}

func (f *fakeRegistry) Paths() []string { return f.paths }

func (f *fakeRegistry) Timeline(path string) []*registry.Revision {
	return f.timelines[path]
}

func (f *fakeRegistry) MarkCold(rid timescape.RID) {
	f.UpdateStatus(rid, registry.StatusCold)
}

func (f *fakeRegistry) UpdateStatus(rid timescape.RID, status registry.Status) {
	for _, revs := range f.timelines {
		for _, rev := range revs {
			if rev.RID == rid {
				rev.Status = status
			}
		}
	}
}

func newRevision(rid timescape.RID, path string, status registry.Status, lastAccessed time.Time, requestCount uint64, tags ...string) *registry.Revision {
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}
	return &registry.Revision{
		RID:          rid,
		Path:         path,
		Status:       status,
		LastAccessed: lastAccessed,
		RequestCount: requestCount,
		Tags:         tagSet,
	}
}

func TestCheckNow_DemotesColdRevisionAndRecordsHistory(t *testing.T) {
	rid := timescape.NewRID(100, "users", 1)
	rev := newRevision(rid, "/users", registry.StatusWarm, time.Now().Add(-8*24*time.Hour), 0)
	reg := &fakeRegistry{
		paths:     []string{"/users"},
		timelines: map[string][]*registry.Revision{"/users": {rev}},
	}

	cfg := DefaultConfig()
	cfg.MinRequestCount = 0
	m := New(reg, cfg, nil)

	m.CheckNow()

	assert.Equal(t, registry.StatusCold, rev.Status)
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, ReasonCold, history[0].Reason)

	assert.True(t, m.Reactivate(rev))
	assert.Equal(t, registry.StatusWarm, rev.Status)
	assert.False(t, m.Reactivate(rev), "repeat reactivation of a non-cold revision must fail")
}

func TestCheckNow_ProtectedTagSkipsDemotion(t *testing.T) {
	rid := timescape.NewRID(100, "users", 1)
	rev := newRevision(rid, "/users", registry.StatusWarm, time.Now().Add(-8*24*time.Hour), 0, "stable")
	reg := &fakeRegistry{
		paths:     []string{"/users"},
		timelines: map[string][]*registry.Revision{"/users": {rev}},
	}

	cfg := DefaultConfig()
	cfg.MinRequestCount = 0
	m := New(reg, cfg, nil)
	m.CheckNow()

	assert.Equal(t, registry.StatusWarm, rev.Status)
	assert.Empty(t, m.History())
}

func TestCheckNow_ExcludedHandlerSkipsEntirePath(t *testing.T) {
	rid := timescape.NewRID(100, "users", 1)
	rev := newRevision(rid, "/users", registry.StatusWarm, time.Now().Add(-8*24*time.Hour), 0)
	reg := &fakeRegistry{
		paths:     []string{"/users"},
		timelines: map[string][]*registry.Revision{"/users": {rev}},
	}

	cfg := DefaultConfig()
	cfg.MinRequestCount = 0
	cfg.ExcludedHandlers = map[string]struct{}{"/users": {}}
	m := New(reg, cfg, nil)
	m.CheckNow()

	assert.Equal(t, registry.StatusWarm, rev.Status)
}

func TestCheckNow_OverrideDeactivateForcesManualDemotion(t *testing.T) {
	rid := timescape.NewRID(100, "users", 1)
	rev := newRevision(rid, "/users", registry.StatusHot, time.Now(), 1000)
	reg := &fakeRegistry{
		paths:     []string{"/users"},
		timelines: map[string][]*registry.Revision{"/users": {rev}},
	}

	m := New(reg, DefaultConfig(), nil)
	m.SetOverride(rid, OverrideDeactivate)
	m.CheckNow()

	assert.Equal(t, registry.StatusCold, rev.Status)
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, ReasonManual, history[0].Reason)
}

func TestCheckNow_DryRunLogsButDoesNotMutate(t *testing.T) {
	rid := timescape.NewRID(100, "users", 1)
	rev := newRevision(rid, "/users", registry.StatusWarm, time.Now().Add(-8*24*time.Hour), 0)
	reg := &fakeRegistry{
		paths:     []string{"/users"},
		timelines: map[string][]*registry.Revision{"/users": {rev}},
	}

	cfg := DefaultConfig()
	cfg.MinRequestCount = 0
	cfg.DryRun = true
	m := New(reg, cfg, nil)
	m.CheckNow()

	assert.Equal(t, registry.StatusWarm, rev.Status)
	assert.Empty(t, m.History())
}

func TestStart_AlreadyStartedFails(t *testing.T) {
	reg := &fakeRegistry{timelines: map[string][]*registry.Revision{}}
	cfg := DefaultConfig()
	cfg.CheckInterval = time.Hour
	m := New(reg, cfg, nil)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStart_DisabledIsNoOp(t *testing.T) {
	reg := &fakeRegistry{timelines: map[string][]*registry.Revision{}}
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := New(reg, cfg, nil)

	require.NoError(t, m.Start(context.Background()))
	m.Stop()
}
