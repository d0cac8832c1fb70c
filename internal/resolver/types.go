// Package resolver implements the Version Resolver (spec §4.3): it
// translates an incoming request's version preference into a concrete
// RID, backed by a bounded resolution cache.
package resolver

import "github.com/krishnapaul242/gati-sub004"

// Source names where a resolution came from.
type Source string

const (
	SourceQuery     Source = "query"
	SourceHeader    Source = "header"
	SourceTimestamp Source = "timestamp"
	SourceTag       Source = "tag"
	SourceLatest    Source = "latest"
)

// Resolution is a successful outcome of Resolve.
type Resolution struct {
	RID    timescape.RID
	Source Source
}

// registryView is the slice of Registry that the Resolver depends on.
// Kept as an interface so this package has no import-cycle dependency on
// internal/registry, and so tests can fake it cheaply.
type registryView interface {
	GetAt(path string, seconds int64) (timescape.RID, bool)
	GetLatest(path string) (timescape.RID, bool)
	GetByTag(path string, label string) (timescape.RID, bool)
	Exists(rid timescape.RID) bool
	Generation() uint64
}
