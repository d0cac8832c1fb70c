package schema

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

const defaultTimeout = 30 * time.Second

// Manager coordinates migrate/rollback in lockstep with revision
// activation (spec §4.5). Apply/rollback for the same schema-version are
// serialized via a per-version mutex; distinct versions proceed in
// parallel.
type Manager struct {
	logger   *slog.Logger
	timeout  time.Duration
	migrate  MigrationExecutor
	rollback RollbackExecutor

	mu      sync.Mutex // guards records and locks map membership
	records map[string]*Record
	locks   map[string]*sync.Mutex

	onApplied    func(Record)
	onRolledBack func(Record)
}

// Option configures a Manager.
type Option func(*Manager)

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithAppliedCallback(fn func(Record)) Option {
	return func(m *Manager) { m.onApplied = fn }
}

func WithRolledBackCallback(fn func(Record)) Option {
	return func(m *Manager) { m.onRolledBack = fn }
}

// New builds a Manager. migrate and rollback are the injected async
// executor callbacks (spec §6 "DB executor contract").
func New(migrate MigrationExecutor, rollback RollbackExecutor, opts ...Option) *Manager {
	m := &Manager{
		logger:   slog.Default(),
		timeout:  defaultTimeout,
		migrate:  migrate,
		rollback: rollback,
		records:  make(map[string]*Record),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockFor(version string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[version]
	if !ok {
		l = &sync.Mutex{}
		m.locks[version] = l
	}
	return l
}

// RegisterSchema inserts rid into schemaVersion's reference set, creating
// a pending record if new.
func (m *Manager) RegisterSchema(rid timescape.RID, schemaVersion string, meta Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[schemaVersion]
	if !ok {
		rec = &Record{
			Version:      schemaVersion,
			References:   make(map[string]struct{}),
			Status:       StatusPending,
			RegisteredAt: time.Now(),
			Metadata:     meta,
		}
		m.records[schemaVersion] = rec
	}
	rec.References[string(rid)] = struct{}{}
}

// Get returns a defensive copy of schemaVersion's record.
func (m *Manager) Get(schemaVersion string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[schemaVersion]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// Apply runs migrations for schemaVersion, serialized against concurrent
// Apply/Rollback calls for the same version. Already-applied is success
// with zero migrations executed (spec §4.5 "idempotent apply").
func (m *Manager) Apply(ctx context.Context, schemaVersion string, scripts []Script) error {
	lock := m.lockFor(schemaVersion)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	rec, ok := m.records[schemaVersion]
	m.mu.Unlock()
	if !ok {
		return ErrNotRegistered
	}
	if rec.Status == StatusApplied {
		return nil
	}

	for _, script := range scripts {
		ok, err := m.runWithTimeout(ctx, script, m.migrate)
		if err != nil {
			m.mu.Lock()
			rec.Status = StatusFailed
			rec.LastError = err
			m.mu.Unlock()
			return err
		}
		if !ok {
			m.mu.Lock()
			rec.Status = StatusFailed
			rec.LastError = ErrMigrationFailed
			m.mu.Unlock()
			return ErrMigrationFailed
		}
	}

	m.mu.Lock()
	rec.Status = StatusApplied
	rec.AppliedAt = time.Now()
	rec.LastError = nil
	snap := rec.snapshot()
	m.mu.Unlock()

	m.logger.Info("schema applied", "schema_version", schemaVersion, "migrations", len(scripts))
	if m.onApplied != nil {
		m.onApplied(snap)
	}
	return nil
}

// Rollback runs rollback scripts in reverse order. Not-applied is success
// with zero rollbacks executed.
func (m *Manager) Rollback(ctx context.Context, schemaVersion string, scripts []Script) error {
	lock := m.lockFor(schemaVersion)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	rec, ok := m.records[schemaVersion]
	m.mu.Unlock()
	if !ok {
		return ErrNotRegistered
	}
	if rec.Status != StatusApplied {
		return nil
	}

	for i := len(scripts) - 1; i >= 0; i-- {
		ok, err := m.runWithTimeout(ctx, scripts[i], m.rollback)
		if err != nil {
			m.mu.Lock()
			rec.Status = StatusFailed
			rec.LastError = err
			m.mu.Unlock()
			return err
		}
		if !ok {
			m.mu.Lock()
			rec.Status = StatusFailed
			rec.LastError = ErrRollbackFailed
			m.mu.Unlock()
			return ErrRollbackFailed
		}
	}

	m.mu.Lock()
	rec.Status = StatusRolledBack
	rec.RolledBackAt = time.Now()
	rec.LastError = nil
	snap := rec.snapshot()
	m.mu.Unlock()

	m.logger.Info("schema rolled back", "schema_version", schemaVersion, "scripts", len(scripts))
	if m.onRolledBack != nil {
		m.onRolledBack(snap)
	}
	return nil
}

// runWithTimeout races executor against m.timeout. On timer fire, the
// call returns ErrMigrationTimeout but the executor goroutine is not
// cancelled — the manager does not know its eventual outcome (spec §4.5
// "the manager does not cancel the underlying executor").
func (m *Manager) runWithTimeout(ctx context.Context, script Script, exec func(context.Context, Script) (bool, error)) (bool, error) {
	if m.timeout <= 0 {
		return exec(ctx, script)
	}

	stepCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ok, err := exec(stepCtx, script)
		done <- outcome{ok, err}
	}()

	select {
	case o := <-done:
		return o.ok, o.err
	case <-stepCtx.Done():
		return false, ErrMigrationTimeout
	}
}

// ActivateVersion registers rid against schemaVersion and applies it if
// not already active.
func (m *Manager) ActivateVersion(ctx context.Context, rid timescape.RID, schemaVersion string, scripts []Script, meta Metadata) error {
	m.RegisterSchema(rid, schemaVersion, meta)
	return m.Apply(ctx, schemaVersion, scripts)
}

// DeactivateVersion removes rid from schemaVersion's reference set; if the
// set is now empty, rolls back, else performs no migration activity.
func (m *Manager) DeactivateVersion(ctx context.Context, rid timescape.RID, schemaVersion string, scripts []Script) error {
	m.mu.Lock()
	rec, ok := m.records[schemaVersion]
	if !ok {
		m.mu.Unlock()
		return ErrNotRegistered
	}
	delete(rec.References, string(rid))
	empty := len(rec.References) == 0
	m.mu.Unlock()

	if !empty {
		return nil
	}
	return m.Rollback(ctx, schemaVersion, scripts)
}

// Compatible reports whether a and b are compatible: identical, or meta's
// CompatibleWith lists a or b.
func (m *Manager) Compatible(a, b string, meta Metadata) bool {
	if a == b {
		return true
	}
	for _, v := range meta.CompatibleWith {
		if v == a || v == b {
			return true
		}
	}
	return false
}
