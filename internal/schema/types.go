// Package schema implements the DB Schema Manager (spec §4.5):
// coordinates database migrations in lockstep with revision activation,
// guaranteeing a schema is applied at most once while any live revision
// references it and rolled back exactly when the last reference departs.
package schema

import (
	"context"
	"time"
)

// Status is the per-schema-version state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApplied    Status = "applied"
	StatusRolledBack Status = "rolled_back"
	StatusFailed     Status = "failed"
)

// Script is one migration or rollback step, opaque to the Manager and
// handed verbatim to the injected executor.
type Script struct {
	Name string
	Body string
}

// MigrationExecutor runs one migration script. The Manager does not
// cancel it on timeout (spec §4.5 "Concurrency" hazard) — a returned
// error or a false success both count as failure.
type MigrationExecutor func(ctx context.Context, script Script) (bool, error)

// RollbackExecutor runs one rollback script, same contract as
// MigrationExecutor.
type RollbackExecutor func(ctx context.Context, script Script) (bool, error)

// Metadata is caller-supplied context for register/apply/rollback calls.
type Metadata struct {
	CompatibleWith []string
}

// Record is the per-schema-version bookkeeping state (spec §3 "Schema record").
type Record struct {
	Version      string
	References   map[string]struct{} // RIDs (as strings) currently referencing this schema
	Status       Status
	RegisteredAt time.Time
	AppliedAt    time.Time
	RolledBackAt time.Time
	LastError    error
	Metadata     Metadata
}

func (r *Record) snapshot() Record {
	cp := *r
	cp.References = make(map[string]struct{}, len(r.References))
	for k := range r.References {
		cp.References[k] = struct{}{}
	}
	return cp
}
