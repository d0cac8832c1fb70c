// Package registry implements the Version Registry (spec §4.1): the
// single source of truth for which revisions exist on each handler path,
// their tags, status, and usage.
package registry

import (
	"sort"
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

// Status is the closed usage-status enum (spec §9 "Status enum discipline").
type Status string

const (
	StatusHot  Status = "hot"
	StatusWarm Status = "warm"
	StatusCold Status = "cold"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusHot, StatusWarm, StatusCold:
		return true
	}
	return false
}

// Revision is one registered revision record.
type Revision struct {
	RID           timescape.RID
	Path          string
	Timestamp     int64 // embedded seconds timestamp, defines ordering
	Hash          string
	Status        Status
	RequestCount  uint64
	LastAccessed  time.Time
	Tags          map[string]struct{}
	SchemaVersion string // empty means "none"
}

// snapshot returns a deep copy safe to hand to callers outside the lock.
func (r *Revision) snapshot() *Revision {
	cp := *r
	cp.Tags = make(map[string]struct{}, len(r.Tags))
	for t := range r.Tags {
		cp.Tags[t] = struct{}{}
	}
	return &cp
}

// TagLabels returns the revision's tags as a sorted slice, useful for
// serialization and deterministic test assertions.
func (r *Revision) TagLabels() []string {
	out := make([]string, 0, len(r.Tags))
	for t := range r.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Metadata is the optional partial metadata a caller may supply on Register.
type Metadata struct {
	Hash          string
	Status        Status // defaults to StatusHot if empty
	SchemaVersion string
}

// tagBinding is the internal record behind a tag label: which revision it
// points at, and when/by whom it was (re)bound.
type tagBinding struct {
	rid       timescape.RID
	createdAt time.Time
	createdBy string
}

// UsageStats is the result of UsageStats(path?).
type UsageStats struct {
	Hot              int
	Warm             int
	Cold             int
	TotalRequests    uint64
	RevisionCount    int
}
