package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/krishnapaul242/gati-sub004"
)

// getAtKey is the memoization key for the bounded GetAt cache (spec §4.1:
// "A bounded internal cache keyed by (path, seconds) may memoize results").
type getAtKey struct {
	path    string
	seconds int64
}

// getAtCacheSize is the capacity of the internal GetAt memoization cache.
// golang-lru/v2 gives true LRU eviction here, which fits this cache's
// access pattern (repeated queries cluster around recent timestamps) —
// the teacher uses the same package for its template L1 cache
// (internal/infrastructure/template/cache.go).
const getAtCacheSize = 4096

// Registry owns every revision record, tag binding, and the active/cold
// membership sets across all handler paths (spec §4.1).
//
// Concurrency: a single RWMutex guards all mutable state, per spec §5
// ("A single per-registry mutex suffices"). Mutating operations
// (Register, Tag, Untag, MarkCold, UpdateStatus, RecordRequest,
// ReclassifyAll) take the write lock; everything else takes the read lock,
// except GetAt, which briefly takes the write lock to memoize its result.
type Registry struct {
	mu sync.RWMutex

	logger *slog.Logger
	clock  func() time.Time
	params ClassificationParams

	timelines map[string][]*Revision // path -> revisions, sorted ascending by Timestamp
	byRID     map[timescape.RID]*Revision
	tags      map[string]*tagBinding // label -> binding, globally unique
	active    map[timescape.RID]struct{}
	cold      map[timescape.RID]struct{}

	// generation increments on every mutation; the Resolver compares
	// against this to invalidate its cache without a full walk
	// (spec §9 "Resolver cache invalidation").
	generation uint64

	getAtCache *lru.Cache[getAtKey, timescape.RID]
}

// Option configures a new Registry.
type Option func(*Registry)

// WithClock overrides time.Now, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithClassificationParams overrides the default classification thresholds.
func WithClassificationParams(p ClassificationParams) Option {
	return func(r *Registry) { r.params = p }
}

// WithLogger attaches a logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	cache, err := lru.New[getAtKey, timescape.RID](getAtCacheSize)
	if err != nil {
		// Only fails for non-positive size, which getAtCacheSize never is.
		panic(fmt.Sprintf("registry: failed to allocate GetAt cache: %v", err))
	}

	r := &Registry{
		logger:     slog.Default(),
		clock:      time.Now,
		params:     DefaultClassificationParams(),
		timelines:  make(map[string][]*Revision),
		byRID:      make(map[timescape.RID]*Revision),
		tags:       make(map[string]*tagBinding),
		active:     make(map[timescape.RID]struct{}),
		cold:       make(map[timescape.RID]struct{}),
		getAtCache: cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generation returns the current mutation counter, for cache invalidation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Register inserts rid into path's timeline at its chronological position.
// Returns ErrMalformedRID if rid does not parse; an unknown path creates a
// new timeline. Defaults:
// status=hot, requestCount=0, lastAccessed=now, tags=empty.
func (r *Registry) Register(path string, rid timescape.RID, meta Metadata) error {
	seconds, _, _, ok := timescape.ParseRID(string(rid))
	if !ok {
		return ErrMalformedRID
	}

	status := meta.Status
	if status == "" {
		status = StatusHot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rev := &Revision{
		RID:           rid,
		Path:          path,
		Timestamp:     seconds,
		Hash:          meta.Hash,
		Status:        status,
		RequestCount:  0,
		LastAccessed:  r.clock(),
		Tags:          make(map[string]struct{}),
		SchemaVersion: meta.SchemaVersion,
	}

	timeline := r.timelines[path]
	pos := sort.Search(len(timeline), func(i int) bool {
		return timeline[i].Timestamp >= seconds
	})
	timeline = append(timeline, nil)
	copy(timeline[pos+1:], timeline[pos:])
	timeline[pos] = rev
	r.timelines[path] = timeline

	r.byRID[rid] = rev
	r.setMembership(rid, status)
	r.bumpGeneration()

	r.logger.Info("revision registered", "path", path, "rid", string(rid), "status", string(status))
	return nil
}

// setMembership places rid into exactly one of active/cold per status.
// Caller must hold the write lock.
func (r *Registry) setMembership(rid timescape.RID, status Status) {
	if status == StatusCold {
		delete(r.active, rid)
		r.cold[rid] = struct{}{}
	} else {
		delete(r.cold, rid)
		r.active[rid] = struct{}{}
	}
}

// bumpGeneration increments the mutation counter and invalidates the
// GetAt memoization cache. Caller must hold the write lock.
func (r *Registry) bumpGeneration() {
	r.generation++
	r.getAtCache.Purge()
}

// GetAt returns the RID of the latest revision on path whose embedded
// timestamp is <= seconds, or ("", false) if none qualifies.
func (r *Registry) GetAt(path string, seconds int64) (timescape.RID, bool) {
	key := getAtKey{path: path, seconds: seconds}

	r.mu.RLock()
	if rid, ok := r.getAtCache.Get(key); ok {
		r.mu.RUnlock()
		if rid == "" {
			return "", false
		}
		return rid, true
	}

	timeline := r.timelines[path]
	rid, ok := floorByTimestamp(timeline, seconds)
	generation := r.generation
	r.mu.RUnlock()

	// A Register/Tag/UpdateStatus call may land between the RUnlock above
	// and the Lock below; it purges the cache specifically to invalidate
	// stale entries (bumpGeneration). Only memoize this result if the
	// generation is still what it was when rid/ok were computed, else this
	// write would resurrect a value the purge just discarded.
	r.mu.Lock()
	if r.generation == generation {
		r.getAtCache.Add(key, rid)
	}
	r.mu.Unlock()

	return rid, ok
}

// floorByTimestamp binary-searches timeline (sorted ascending) for the
// last entry whose Timestamp <= seconds.
func floorByTimestamp(timeline []*Revision, seconds int64) (timescape.RID, bool) {
	idx := sort.Search(len(timeline), func(i int) bool {
		return timeline[i].Timestamp > seconds
	})
	if idx == 0 {
		return "", false
	}
	return timeline[idx-1].RID, true
}

// GetLatest returns the last element of path's timeline.
func (r *Registry) GetLatest(path string) (timescape.RID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timeline := r.timelines[path]
	if len(timeline) == 0 {
		return "", false
	}
	return timeline[len(timeline)-1].RID, true
}

// GetByTag looks up label's RID and confirms it belongs to path's timeline.
func (r *Registry) GetByTag(path string, label string) (timescape.RID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.tags[label]
	if !ok {
		return "", false
	}
	rev, ok := r.byRID[binding.rid]
	if !ok || rev.Path != path {
		return "", false
	}
	return binding.rid, true
}

// Tag binds label to rid globally. If label was previously bound to a
// different revision, it is re-bound: removed from the old revision's tag
// set first (spec §4.1 "Tag", and the Open Question in §9 — resolved as
// "yes, remove the prior binding").
func (r *Registry) Tag(rid timescape.RID, label string, actor string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, ok := r.byRID[rid]
	if !ok {
		return
	}

	if prev, bound := r.tags[label]; bound && prev.rid != rid {
		if prevRev, ok := r.byRID[prev.rid]; ok {
			delete(prevRev.Tags, label)
		}
	}

	r.tags[label] = &tagBinding{rid: rid, createdAt: r.clock(), createdBy: actor}
	rev.Tags[label] = struct{}{}
	r.bumpGeneration()

	r.logger.Info("tag bound", "rid", string(rid), "label", label, "actor", actor)
}

// Untag removes label's binding and the label from its revision's tag set.
func (r *Registry) Untag(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.tags[label]
	if !ok {
		return
	}
	if rev, ok := r.byRID[binding.rid]; ok {
		delete(rev.Tags, label)
	}
	delete(r.tags, label)
	r.bumpGeneration()
}

// RecordRequest increments rid's request count, updates lastAccessed, and
// — if rid was cold — atomically promotes it to warm (spec §5 "cold→warm
// promotion on record-request must be atomic with the increment"). A
// request against an unknown RID is a silent no-op (spec §4.1/§7).
func (r *Registry) RecordRequest(rid timescape.RID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, ok := r.byRID[rid]
	if !ok {
		return
	}

	rev.RequestCount++
	rev.LastAccessed = r.clock()

	wasCold := rev.Status == StatusCold
	newStatus := classify(r.params, rev.RequestCount, rev.LastAccessed, r.clock())
	if wasCold && newStatus == StatusCold {
		newStatus = StatusWarm
	}
	rev.Status = newStatus
	r.setMembership(rid, newStatus)
	r.bumpGeneration()
}

// MarkCold forces rid's status to cold.
func (r *Registry) MarkCold(rid timescape.RID) {
	r.UpdateStatus(rid, StatusCold)
}

// UpdateStatus sets rid's status and rebalances active/cold membership.
// A request against an unknown RID is a silent no-op.
func (r *Registry) UpdateStatus(rid timescape.RID, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, ok := r.byRID[rid]
	if !ok {
		return
	}
	rev.Status = status
	r.setMembership(rid, status)
	r.bumpGeneration()
}

// ReclassifyAll recomputes status for every revision from
// {cumulativeRequestCount, lastAccessed, now} and rebalances membership.
func (r *Registry) ReclassifyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	for rid, rev := range r.byRID {
		rev.Status = classify(r.params, rev.RequestCount, rev.LastAccessed, now)
		r.setMembership(rid, rev.Status)
	}
	r.bumpGeneration()
}

// UsageStats returns counts by status and the sum of request counts,
// scoped to path if non-empty, or globally otherwise.
func (r *Registry) UsageStats(path string) UsageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats UsageStats
	visit := func(rev *Revision) {
		stats.RevisionCount++
		stats.TotalRequests += rev.RequestCount
		switch rev.Status {
		case StatusHot:
			stats.Hot++
		case StatusWarm:
			stats.Warm++
		case StatusCold:
			stats.Cold++
		}
	}

	if path != "" {
		for _, rev := range r.timelines[path] {
			visit(rev)
		}
		return stats
	}
	for _, rev := range r.byRID {
		visit(rev)
	}
	return stats
}

// Get returns a defensive copy of rid's revision record.
func (r *Registry) Get(rid timescape.RID) (*Revision, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rev, ok := r.byRID[rid]
	if !ok {
		return nil, false
	}
	return rev.snapshot(), true
}

// Exists reports whether rid is a registered revision, regardless of path.
// Used by the Resolver to confirm a direct RID actually names a revision
// before treating it as resolved (spec §4.3 step 1 "confirm the revision
// exists").
func (r *Registry) Exists(rid timescape.RID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRID[rid]
	return ok
}

// Timeline returns a defensive copy of path's timeline, sorted ascending.
func (r *Registry) Timeline(path string) []*Revision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timeline := r.timelines[path]
	out := make([]*Revision, len(timeline))
	for i, rev := range timeline {
		out[i] = rev.snapshot()
	}
	return out
}

// ActiveVersions returns a copy of the active RID set.
func (r *Registry) ActiveVersions() []timescape.RID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]timescape.RID, 0, len(r.active))
	for rid := range r.active {
		out = append(out, rid)
	}
	return out
}

// ColdVersions returns a copy of the cold RID set.
func (r *Registry) ColdVersions() []timescape.RID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]timescape.RID, 0, len(r.cold))
	for rid := range r.cold {
		out = append(out, rid)
	}
	return out
}

// Paths returns every handler path with a registered timeline.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.timelines))
	for p := range r.timelines {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clear wipes every timeline, tag, and membership set. Used by snapshot
// restore (spec §9: restore replaces, it does not merge).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timelines = make(map[string][]*Revision)
	r.byRID = make(map[timescape.RID]*Revision)
	r.tags = make(map[string]*tagBinding)
	r.active = make(map[timescape.RID]struct{})
	r.cold = make(map[timescape.RID]struct{})
	r.bumpGeneration()
}

// ReplaceFrom rebuilds r in place from doc, discarding all prior content
// (spec §9: snapshot restore replaces, it does not merge). Used by the
// Snapshot Manager instead of constructing a fresh Registry, since callers
// hold a long-lived pointer to r.
func (r *Registry) ReplaceFrom(doc Document) error {
	fresh, err := Deserialize(doc, WithClock(r.clock), WithClassificationParams(r.params), WithLogger(r.logger))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.timelines = fresh.timelines
	r.byRID = fresh.byRID
	r.tags = fresh.tags
	r.active = fresh.active
	r.cold = fresh.cold
	r.getAtCache.Purge()
	r.bumpGeneration()
	return nil
}
