// Package lifecycle implements the Lifecycle Manager (spec §4.4): a
// background loop that demotes revisions meeting demotion criteria while
// respecting protected tags, excluded handlers, and manual overrides.
package lifecycle

import (
	"time"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
)

// Reason names why a revision was demoted.
type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonCold     Reason = "cold"
	ReasonLowUsage Reason = "low_usage"
)

// Override pins a manual decision for a single RID, bypassing the
// threshold-based rule.
type Override string

const (
	OverrideKeep       Override = "keep"
	OverrideDeactivate Override = "deactivate"
)

// HistoryEntry records one demotion decision.
type HistoryEntry struct {
	RID          timescape.RID
	Path         string
	Reason       Reason
	LastAccessed time.Time
	RequestCount uint64
	At           time.Time
}

// Decision is the read-only equivalent of a demotion call, for the
// eligibility query (spec §4.4 "Eligibility query").
type Decision struct {
	ShouldDemote bool
	Reason       Reason
	Skipped      bool
}

// registryView is the slice of *registry.Registry the Manager depends on.
type registryView interface {
	Paths() []string
	Timeline(path string) []*registry.Revision
	MarkCold(rid timescape.RID)
	UpdateStatus(rid timescape.RID, status registry.Status)
}
