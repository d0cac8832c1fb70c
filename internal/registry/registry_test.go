package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnapaul242/gati-sub004"
)

func rid(ts int64, slug string, n int64) timescape.RID {
	return timescape.NewRID(ts, slug, n)
}

func TestRegister_TimelineStaysSorted(t *testing.T) {
	r := New()
	v2 := rid(1732186300, "users", 2)
	v1 := rid(1732186200, "users", 1)
	v3 := rid(1732186400, "users", 3)

	require.NoError(t, r.Register("/api/users", v2, Metadata{}))
	require.NoError(t, r.Register("/api/users", v1, Metadata{}))
	require.NoError(t, r.Register("/api/users", v3, Metadata{}))

	timeline := r.Timeline("/api/users")
	require.Len(t, timeline, 3)
	for i := 1; i < len(timeline); i++ {
		assert.LessOrEqual(t, timeline[i-1].Timestamp, timeline[i].Timestamp)
	}
	assert.Equal(t, v1, timeline[0].RID)
	assert.Equal(t, v2, timeline[1].RID)
	assert.Equal(t, v3, timeline[2].RID)
}

func TestRegister_RejectsMalformedRID(t *testing.T) {
	r := New()
	err := r.Register("/api/users", timescape.RID("not-a-rid"), Metadata{})
	assert.ErrorIs(t, err, ErrMalformedRID)
}

func TestActiveColdSets_AreDisjointAndComplete(t *testing.T) {
	r := New()
	v1 := rid(100, "a", 1)
	v2 := rid(200, "b", 1)
	require.NoError(t, r.Register("/p", v1, Metadata{}))
	require.NoError(t, r.Register("/p", v2, Metadata{Status: StatusCold}))

	active := map[timescape.RID]struct{}{}
	for _, rid := range r.ActiveVersions() {
		active[rid] = struct{}{}
	}
	cold := map[timescape.RID]struct{}{}
	for _, rid := range r.ColdVersions() {
		cold[rid] = struct{}{}
	}

	for rid := range active {
		_, inCold := cold[rid]
		assert.False(t, inCold, "rid %s in both sets", rid)
	}
	assert.Len(t, active, 1)
	assert.Len(t, cold, 1)
	_, ok := active[v1]
	assert.True(t, ok)
	_, ok = cold[v2]
	assert.True(t, ok)
}

func TestTag_Uniqueness_RebindsAway(t *testing.T) {
	r := New()
	v1 := rid(100, "a", 1)
	v2 := rid(200, "b", 1)
	require.NoError(t, r.Register("/p", v1, Metadata{}))
	require.NoError(t, r.Register("/p", v2, Metadata{}))

	r.Tag(v1, "stable", "alice")
	got, ok := r.GetByTag("/p", "stable")
	require.True(t, ok)
	assert.Equal(t, v1, got)

	r.Tag(v2, "stable", "bob")
	got, ok = r.GetByTag("/p", "stable")
	require.True(t, ok)
	assert.Equal(t, v2, got)

	rev1, _ := r.Get(v1)
	_, stillTagged := rev1.Tags["stable"]
	assert.False(t, stillTagged, "old revision should have had the tag removed on rebind")

	rev2, _ := r.Get(v2)
	_, tagged := rev2.Tags["stable"]
	assert.True(t, tagged)
}

func TestGetAt_FloorSemanticsAndMonotonicity(t *testing.T) {
	r := New()
	v1 := rid(1732186200, "users", 1)
	v2 := rid(1732186300, "users", 2)
	v3 := rid(1732186400, "users", 3)
	require.NoError(t, r.Register("/api/users", v1, Metadata{}))
	require.NoError(t, r.Register("/api/users", v2, Metadata{}))
	require.NoError(t, r.Register("/api/users", v3, Metadata{}))

	got, ok := r.GetAt("/api/users", 1732186250)
	require.True(t, ok)
	assert.Equal(t, v1, got)

	got, ok = r.GetAt("/api/users", 1732186400)
	require.True(t, ok)
	assert.Equal(t, v3, got)

	_, ok = r.GetAt("/api/users", 1732186100)
	assert.False(t, ok)

	// Monotonicity: t1 <= t2 => GetAt(t1) index <= GetAt(t2) index.
	ridAt250, _ := r.GetAt("/api/users", 1732186250)
	ridAt350, _ := r.GetAt("/api/users", 1732186350)
	idx := func(id timescape.RID) int {
		for i, rev := range r.Timeline("/api/users") {
			if rev.RID == id {
				return i
			}
		}
		return -1
	}
	assert.LessOrEqual(t, idx(ridAt250), idx(ridAt350))
}

func TestRecordRequest_PromotesColdToWarmAtomically(t *testing.T) {
	r := New(WithClassificationParams(ClassificationParams{
		HotThreshold: 1000, WarmThreshold: 1000, ColdThresholdMs: 1, WindowMs: 1000,
	}))
	v1 := rid(100, "a", 1)
	require.NoError(t, r.Register("/p", v1, Metadata{Status: StatusCold}))

	r.RecordRequest(v1)
	rev, _ := r.Get(v1)
	assert.Equal(t, StatusWarm, rev.Status)
	assert.EqualValues(t, 1, rev.RequestCount)

	found := false
	for _, a := range r.ActiveVersions() {
		if a == v1 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecordRequest_UnknownRIDIsNoOp(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() {
		r.RecordRequest(rid(1, "ghost", 1))
	})
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	r := New(WithClock(clock))
	v1 := rid(100, "a", 1)
	v2 := rid(200, "b", 1)
	require.NoError(t, r.Register("/p", v1, Metadata{Hash: "h1"}))
	require.NoError(t, r.Register("/p", v2, Metadata{Hash: "h2"}))
	r.Tag(v1, "stable", "alice")
	r.RecordRequest(v2)

	doc := r.Serialize()
	r2, err := Deserialize(doc, WithClock(clock))
	require.NoError(t, err)

	doc2 := r2.Serialize()
	assert.Equal(t, doc, doc2)
}

func TestDeserialize_RejectsOverlappingSets(t *testing.T) {
	doc := Document{
		Handlers: map[string]HandlerDocument{
			"/p": {HandlerPath: "/p", Versions: []VersionDocument{
				{TSV: "tsv:100-a-1", Timestamp: 100, Status: "hot"},
			}},
		},
		ActiveVersions: []string{"tsv:100-a-1"},
		ColdVersions:   []string{"tsv:100-a-1"},
	}
	_, err := Deserialize(doc)
	assert.ErrorIs(t, err, ErrOverlappingSets)
}

func TestDeserialize_RejectsUnknownStatus(t *testing.T) {
	doc := Document{
		Handlers: map[string]HandlerDocument{
			"/p": {HandlerPath: "/p", Versions: []VersionDocument{
				{TSV: "tsv:100-a-1", Timestamp: 100, Status: "frozen"},
			}},
		},
	}
	_, err := Deserialize(doc)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUsageStats_GlobalAndScoped(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("/a", rid(1, "x", 1), Metadata{}))
	require.NoError(t, r.Register("/b", rid(2, "y", 1), Metadata{Status: StatusCold}))

	global := r.UsageStats("")
	assert.Equal(t, 2, global.RevisionCount)
	assert.Equal(t, 1, global.Hot)
	assert.Equal(t, 1, global.Cold)

	scoped := r.UsageStats("/a")
	assert.Equal(t, 1, scoped.RevisionCount)
	assert.Equal(t, 1, scoped.Hot)
}
