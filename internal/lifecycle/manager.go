package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
)

// Manager runs the periodic demotion loop against a Registry, grounded on
// the teacher's ticker-based GC worker (gc_worker.go): a single goroutine,
// a stop channel, and a done channel for graceful shutdown.
type Manager struct {
	reg    registryView
	logger *slog.Logger

	mu        sync.Mutex
	cfg       Config
	overrides map[timescape.RID]Override
	history   []HistoryEntry

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Manager backed by reg. Pass DefaultConfig() or a
// customized Config.
func New(reg registryView, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		reg:       reg,
		logger:    logger,
		cfg:       cfg,
		overrides: make(map[timescape.RID]Override),
	}
}

// SetOverride pins a manual decision for rid, consulted ahead of the
// threshold rule on the next scan.
func (m *Manager) SetOverride(rid timescape.RID, o Override) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[rid] = o
}

// ClearOverride removes any pinned decision for rid.
func (m *Manager) ClearOverride(rid timescape.RID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, rid)
}

// History returns a copy of every demotion recorded so far.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Start runs one immediate scan, then schedules further scans every
// CheckInterval. Starting an already-running Manager fails with
// ALREADY_STARTED; starting a disabled Manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if !m.cfg.Enabled {
		m.mu.Unlock()
		return nil
	}
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.run(ctx)
	m.logger.Info("lifecycle manager started", "check_interval", m.cfg.CheckInterval)
	return nil
}

// Stop cancels the schedule and waits for any in-flight scan to finish. A
// pending scan runs to completion before Stop returns (spec §5
// "Cancellation / timeouts").
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stopCh := m.stopCh
	doneCh := m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	m.CheckNow()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.CheckNow()
		}
	}
}

// CheckNow runs one scan synchronously over every non-excluded path.
func (m *Manager) CheckNow() {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	for _, path := range m.reg.Paths() {
		if _, excluded := cfg.ExcludedHandlers[path]; excluded {
			continue
		}
		for _, rev := range m.reg.Timeline(path) {
			m.evaluate(rev, cfg)
		}
	}
}

// decide applies the per-revision decision order in spec §4.4.
func (m *Manager) decide(rev *registry.Revision, cfg Config, now time.Time) Decision {
	m.mu.Lock()
	override, hasOverride := m.overrides[rev.RID]
	m.mu.Unlock()

	if hasOverride {
		switch override {
		case OverrideKeep:
			return Decision{Skipped: true}
		case OverrideDeactivate:
			return Decision{ShouldDemote: true, Reason: ReasonManual}
		}
	}

	for _, tag := range rev.TagLabels() {
		if _, protected := cfg.ProtectedTags[tag]; protected {
			return Decision{Skipped: true}
		}
	}

	if now.Sub(rev.LastAccessed) > cfg.ColdThreshold {
		return Decision{ShouldDemote: true, Reason: ReasonCold}
	}
	if rev.RequestCount < cfg.MinRequestCount {
		return Decision{ShouldDemote: true, Reason: ReasonLowUsage}
	}

	return Decision{Skipped: true}
}

// Eligible runs the decision for rid read-only, without demoting it.
func (m *Manager) Eligible(rev *registry.Revision) Decision {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()
	return m.decide(rev, cfg, time.Now())
}

func (m *Manager) evaluate(rev *registry.Revision, cfg Config) {
	now := time.Now()
	d := m.decide(rev, cfg, now)
	if d.Skipped || !d.ShouldDemote {
		return
	}
	m.demote(rev, d.Reason, cfg, now)
}

// demote applies a demotion decision. Already-cold revisions are a no-op.
func (m *Manager) demote(rev *registry.Revision, reason Reason, cfg Config, now time.Time) {
	if rev.Status == registry.StatusCold {
		return
	}

	entry := HistoryEntry{
		RID:          rev.RID,
		Path:         rev.Path,
		Reason:       reason,
		LastAccessed: rev.LastAccessed,
		RequestCount: rev.RequestCount,
		At:           now,
	}

	if cfg.DryRun {
		m.logger.Info("lifecycle dry-run demotion", "rid", rev.RID, "path", rev.Path, "reason", reason)
		return
	}

	m.reg.MarkCold(rev.RID)

	m.mu.Lock()
	m.history = append(m.history, entry)
	callback := m.cfg.OnDemote
	m.mu.Unlock()

	m.logger.Info("lifecycle demoted revision", "rid", rev.RID, "path", rev.Path, "reason", reason)
	if callback != nil {
		callback(entry)
	}
}

// Reactivate promotes a cold revision back to warm and clears any pinned
// override. Only valid when the revision is currently cold; returns false
// otherwise (e.g. already warm/hot, or repeat reactivation).
func (m *Manager) Reactivate(rev *registry.Revision) bool {
	if rev.Status != registry.StatusCold {
		return false
	}
	m.reg.UpdateStatus(rev.RID, registry.StatusWarm)
	m.ClearOverride(rev.RID)
	return true
}
