package lifecycle

import "time"

// Config configures a Manager. New uses it as given, zero-value fields
// included; DefaultConfig returns the default values.
type Config struct {
	Enabled bool

	// CheckInterval is how often the background loop scans the registry.
	CheckInterval time.Duration
	// ColdThreshold is the last-access age past which a revision demotes
	// for reason "cold".
	ColdThreshold time.Duration
	// MinRequestCount is the cumulative request-count floor below which a
	// revision demotes for reason "low_usage".
	MinRequestCount uint64

	// ProtectedTags names tags that exempt a revision from demotion.
	ProtectedTags map[string]struct{}
	// ExcludedHandlers names paths the loop never scans.
	ExcludedHandlers map[string]struct{}

	DryRun bool

	// OnDemote fires after a (non-dry-run) demotion is recorded.
	OnDemote func(HistoryEntry)
}

// DefaultConfig returns the spec's default configuration (spec §4.4).
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		CheckInterval:   time.Hour,
		ColdThreshold:   7 * 24 * time.Hour,
		MinRequestCount: 10,
		ProtectedTags: map[string]struct{}{
			"stable":     {},
			"production": {},
			"latest":     {},
		},
		ExcludedHandlers: map[string]struct{}{},
	}
}
