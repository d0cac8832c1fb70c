// Package snapshot implements the Snapshot Manager (spec §4.6): periodic,
// compressed, typed registry dumps with retention pruning, restore,
// import/export, and byte-size statistics.
package snapshot

import (
	"time"

	"github.com/krishnapaul242/gati-sub004/internal/registry"
)

// Type distinguishes a light dump (registry state only) from a heavy one
// (registry state plus artifact payloads).
type Type string

const (
	TypeLight Type = "light"
	TypeHeavy Type = "heavy"
)

// Document is the on-disk snapshot format (spec §6 "Snapshot on-disk format").
type Document struct {
	ID            string            `json:"id"`
	Timestamp     int64             `json:"timestamp"` // epoch millis
	Type          Type              `json:"type"`
	RegistryState registry.Document `json:"registryState"`
	Artifacts     map[string][]byte `json:"artifacts,omitempty"`
}

// Info is the metadata returned by List, without the (possibly large)
// registry/artifact payload.
type Info struct {
	ID        string
	Timestamp time.Time
	Type      Type
	Path      string
	SizeBytes int64
}

// Stats summarizes the manager's on-disk footprint, rendered as YAML by
// StatsReport (spec §4.6 implies operational reporting; grounded on the
// teacher's yaml-based config rendering).
type Stats struct {
	Count      int   `yaml:"count"`
	TotalBytes int64 `yaml:"totalBytes"`
	LightCount int   `yaml:"lightCount"`
	HeavyCount int   `yaml:"heavyCount"`
}
