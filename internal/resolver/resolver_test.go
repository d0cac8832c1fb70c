package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnapaul242/gati-sub004"
)

type fakeRegistry struct {
	generation uint64
	latest     map[string]timescape.RID
	byTag      map[string]timescape.RID
	byTime     map[string]map[int64]timescape.RID
	registered map[timescape.RID]struct{}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		latest:     map[string]timescape.RID{},
		byTag:      map[string]timescape.RID{},
		byTime:     map[string]map[int64]timescape.RID{},
		registered: map[timescape.RID]struct{}{},
	}
}

func (f *fakeRegistry) Generation() uint64 { return f.generation }

func (f *fakeRegistry) Exists(rid timescape.RID) bool {
	_, ok := f.registered[rid]
	return ok
}

func (f *fakeRegistry) GetLatest(path string) (timescape.RID, bool) {
	r, ok := f.latest[path]
	return r, ok
}

func (f *fakeRegistry) GetByTag(path, label string) (timescape.RID, bool) {
	r, ok := f.byTag[label]
	return r, ok
}

func (f *fakeRegistry) GetAt(path string, seconds int64) (timescape.RID, bool) {
	byPath, ok := f.byTime[path]
	if !ok {
		return "", false
	}
	r, ok := byPath[seconds]
	return r, ok
}

func TestResolve_DefaultsToLatestWhenNoPreference(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	reg.latest["/users"] = v1

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
	assert.Equal(t, SourceLatest, res.Source)
}

func TestResolve_DirectRIDViaQuery(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	reg.registered[v1] = struct{}{}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"version": {string(v1)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
	assert.Equal(t, SourceQuery, res.Source)
}

func TestResolve_DirectRIDNotRegisteredIsVersionNotFound(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1) // well-formed but never registered

	r := New(reg)
	_, err := r.Resolve(context.Background(), "/users", map[string][]string{"version": {string(v1)}}, nil)
	assert.ErrorIs(t, err, timescape.ErrVersionNotFound)
}

func TestResolve_QueryWinsOverHeader(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	v2 := timescape.NewRID(200, "users", 1)
	reg.registered[v1] = struct{}{}
	reg.registered[v2] = struct{}{}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users",
		map[string][]string{"version": {string(v1)}},
		map[string][]string{"X-Gati-Version": {string(v2)}},
	)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
}

func TestResolve_FallsBackToHeaderWhenQueryAbsent(t *testing.T) {
	reg := newFakeRegistry()
	v2 := timescape.NewRID(200, "users", 1)
	reg.registered[v2] = struct{}{}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", nil,
		map[string][]string{"x-api-version": {string(v2)}},
	)
	require.NoError(t, err)
	assert.Equal(t, v2, res.RID)
	assert.Equal(t, SourceHeader, res.Source)
}

func TestResolve_TagLabel(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	reg.byTag["stable"] = v1

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"stable"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
	assert.Equal(t, SourceTag, res.Source)
}

func TestResolve_UnixSecondsTimestamp(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	reg.byTime["/users"] = map[int64]timescape.RID{1700000000: v1}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"1700000000"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
	assert.Equal(t, SourceTimestamp, res.Source)
}

func TestResolve_UnixMillisTimestampNormalized(t *testing.T) {
	reg := newFakeRegistry()
	v1 := timescape.NewRID(100, "users", 1)
	reg.byTime["/users"] = map[int64]timescape.RID{1700000000: v1}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"1700000000000"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, res.RID)
}

func TestResolve_UnknownTagIsVersionNotFound(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg)
	_, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"nonexistent"}}, nil)
	assert.ErrorIs(t, err, timescape.ErrVersionNotFound)
}

func TestResolve_MalformedRIDIsInvalidFormat(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg)
	_, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"tsv:not-valid"}}, nil)
	assert.ErrorIs(t, err, timescape.ErrInvalidFormat)
}

func TestResolve_EmptyQueryValueFallsThroughToHeader(t *testing.T) {
	reg := newFakeRegistry()
	v2 := timescape.NewRID(200, "users", 1)
	reg.registered[v2] = struct{}{}

	r := New(reg)
	res, err := r.Resolve(context.Background(), "/users",
		map[string][]string{"version": {"  "}},
		map[string][]string{"x-api-version": {string(v2)}},
	)
	require.NoError(t, err)
	assert.Equal(t, v2, res.RID)
}

func TestResolve_CacheHitAvoidsRegistryLookup(t *testing.T) {
	reg := newFakeRegistry()
	reg.byTag["stable"] = timescape.NewRID(100, "users", 1)

	r := New(reg)
	_, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"stable"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.CacheLen())

	delete(reg.byTag, "stable")
	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"stable"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, timescape.NewRID(100, "users", 1), res.RID)
}

func TestResolve_GenerationBumpInvalidatesCache(t *testing.T) {
	reg := newFakeRegistry()
	reg.byTag["stable"] = timescape.NewRID(100, "users", 1)

	r := New(reg)
	_, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"stable"}}, nil)
	require.NoError(t, err)

	reg.generation++
	reg.byTag["stable"] = timescape.NewRID(200, "users", 1)

	res, err := r.Resolve(context.Background(), "/users", map[string][]string{"v": {"stable"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, timescape.NewRID(200, "users", 1), res.RID)
}

func TestFIFOCache_EvictsOldestFirst(t *testing.T) {
	c := newFIFOCache(2)
	c.Put(cacheKey{path: "/a"}, Resolution{RID: "1"})
	c.Put(cacheKey{path: "/b"}, Resolution{RID: "2"})
	c.Put(cacheKey{path: "/c"}, Resolution{RID: "3"})

	_, ok := c.Get(cacheKey{path: "/a"})
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get(cacheKey{path: "/b"})
	assert.True(t, ok)
	_, ok = c.Get(cacheKey{path: "/c"})
	assert.True(t, ok)
}
