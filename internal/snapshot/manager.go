package snapshot

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/krishnapaul242/gati-sub004/internal/registry"
)

// Config configures a Manager.
type Config struct {
	Dir                   string
	Compress              bool
	LightSnapshotInterval uint64
	HeavySnapshotInterval uint64
	RetentionPeriod       time.Duration
	// HeavyRateLimit limits the rate of heavy snapshot/export operations,
	// which are the I/O-heaviest (spec §5 "Snapshot save/load ... are
	// I/O-bound"); grounded on the teacher's x/time/rate usage pattern
	// for outbound-call throttling.
	HeavyRateLimit rate.Limit
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		Dir:                   "snapshots",
		Compress:              true,
		LightSnapshotInterval: 1,
		HeavySnapshotInterval: 10,
		RetentionPeriod:       30 * 24 * time.Hour,
		HeavyRateLimit:        rate.Limit(2),
	}
}

// Manager periodically dumps a *registry.Registry to disk and supports
// list/restore/retention/import/export (spec §4.6).
type Manager struct {
	cfg    Config
	reg    *registry.Registry
	logger *slog.Logger
	clock  func() time.Time

	counter uint64 // auto-snapshot tick counter

	heavyLimiter *rate.Limiter

	artifactsMu sync.Mutex
	artifacts   map[string][]byte
}

// New builds a Manager over reg, writing to cfg.Dir (created if absent).
func New(reg *registry.Registry, cfg Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	return &Manager{
		cfg:          cfg,
		reg:          reg,
		logger:       logger,
		clock:        time.Now,
		heavyLimiter: rate.NewLimiter(cfg.HeavyRateLimit, 1),
		artifacts:    make(map[string][]byte),
	}, nil
}

// SetArtifact stores a named artifact payload, included in heavy snapshots.
func (m *Manager) SetArtifact(name string, data []byte) {
	m.artifactsMu.Lock()
	defer m.artifactsMu.Unlock()
	m.artifacts[name] = data
}

// Tick advances the auto-snapshot counter and takes a snapshot if due.
// Heavy takes precedence over light when both intervals would fire (spec
// §4.6 "Auto-snapshot counter").
func (m *Manager) Tick(ctx context.Context) (*Info, error) {
	n := atomic.AddUint64(&m.counter, 1)

	switch {
	case m.cfg.HeavySnapshotInterval > 0 && n%m.cfg.HeavySnapshotInterval == 0:
		return m.Take(ctx, TypeHeavy)
	case m.cfg.LightSnapshotInterval > 0 && n%m.cfg.LightSnapshotInterval == 0:
		return m.Take(ctx, TypeLight)
	default:
		return nil, nil
	}
}

// Take writes a new snapshot of kind t.
func (m *Manager) Take(ctx context.Context, t Type) (*Info, error) {
	if t == TypeHeavy {
		if err := m.heavyLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	doc := m.reg.Serialize()
	ms := m.clock().UnixMilli()
	hash := stateHash(doc)
	id := fmt.Sprintf("snap:%d-%s-%s", ms, t, hash)

	snapDoc := Document{ID: id, Timestamp: ms, Type: t, RegistryState: doc}
	if t == TypeHeavy {
		m.artifactsMu.Lock()
		snapDoc.Artifacts = make(map[string][]byte, len(m.artifacts))
		for k, v := range m.artifacts {
			snapDoc.Artifacts[k] = v
		}
		m.artifactsMu.Unlock()
	}

	path, size, err := m.writeFile(id, snapDoc, m.cfg.Compress)
	if err != nil {
		return nil, err
	}

	m.logger.Info("snapshot taken", "id", id, "type", t, "bytes", size)
	return &Info{ID: id, Timestamp: time.UnixMilli(ms), Type: t, Path: path, SizeBytes: size}, nil
}

// stateHash returns an 8-hex-digit fingerprint of the registry document,
// used only to disambiguate same-millisecond snapshot IDs (spec's
// "8-hex-state-hash" is not specified as a particular algorithm).
func stateHash(doc registry.Document) string {
	raw, _ := json.Marshal(doc)
	h := fnv.New32a()
	h.Write(raw)
	return fmt.Sprintf("%08x", h.Sum32())
}

// fileName turns a snapshot ID into its on-disk name: colons become
// underscores, and the extension reflects compression (spec §6 "Snapshot
// file name").
func fileName(id string, compress bool) string {
	name := strings.ReplaceAll(id, ":", "_")
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

func (m *Manager) writeFile(id string, doc Document, compress bool) (string, int64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(m.cfg.Dir, fileName(id, compress))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if _, err := w.Write(raw); err != nil {
		return "", 0, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", 0, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}

// List enumerates every snapshot file in the manager's directory.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(m.cfg.Dir, e.Name())
		doc, err := m.readFile(path)
		if err != nil {
			m.logger.Warn("snapshot: skipping unreadable file", "path", path, "error", err)
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			ID:        doc.ID,
			Timestamp: time.UnixMilli(doc.Timestamp),
			Type:      doc.Type,
			Path:      path,
			SizeBytes: fi.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Manager) readFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// findPath locates the on-disk file for a snapshot ID, trying both
// compressed and uncompressed extensions.
func (m *Manager) findPath(id string) (string, error) {
	base := filepath.Join(m.cfg.Dir, strings.ReplaceAll(id, ":", "_"))
	for _, ext := range []string{".json.gz", ".json"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, nil
		}
	}
	return "", ErrNotFound
}

// Restore rebuilds the registry from the named snapshot, replacing all
// existing content (spec §9: "specification says replace"). Returns
// ErrNotFound if the snapshot cannot be located or parsed.
func (m *Manager) Restore(id string) error {
	path, err := m.findPath(id)
	if err != nil {
		return err
	}
	doc, err := m.readFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if err := m.reg.ReplaceFrom(doc.RegistryState); err != nil {
		return err
	}

	if doc.Type == TypeHeavy && doc.Artifacts != nil {
		m.artifactsMu.Lock()
		m.artifacts = make(map[string][]byte, len(doc.Artifacts))
		for k, v := range doc.Artifacts {
			m.artifacts[k] = v
		}
		m.artifactsMu.Unlock()
	}

	return nil
}

// Prune removes every snapshot older than now-RetentionPeriod, returning
// the count pruned.
func (m *Manager) Prune() (int, error) {
	infos, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := m.clock().Add(-m.cfg.RetentionPeriod)
	pruned := 0
	for _, info := range infos {
		if info.Timestamp.Before(cutoff) {
			if err := os.Remove(info.Path); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

// Delete removes a single snapshot by ID.
func (m *Manager) Delete(id string) error {
	path, err := m.findPath(id)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Export writes an uncompressed JSON dump of the named snapshot to an
// arbitrary path.
func (m *Manager) Export(ctx context.Context, id, destPath string) error {
	if err := m.heavyLimiter.Wait(ctx); err != nil {
		return err
	}
	path, err := m.findPath(id)
	if err != nil {
		return err
	}
	doc, err := m.readFile(path)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, raw, 0o644)
}

// Import reads an exported JSON dump and saves it under the manager's
// storage directory, validating required fields.
func (m *Manager) Import(srcPath string) (*Info, error) {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.ID == "" || doc.Timestamp == 0 || doc.Type == "" || doc.RegistryState.Handlers == nil {
		return nil, fmt.Errorf("%w: missing required field(s)", ErrInvalidDocument)
	}
	if doc.Type != TypeLight && doc.Type != TypeHeavy {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidDocument, doc.Type)
	}

	path, size, err := m.writeFile(doc.ID, doc, m.cfg.Compress)
	if err != nil {
		return nil, err
	}
	return &Info{ID: doc.ID, Timestamp: time.UnixMilli(doc.Timestamp), Type: doc.Type, Path: path, SizeBytes: size}, nil
}

// Stats summarizes the manager's on-disk footprint.
func (m *Manager) Stats() (Stats, error) {
	infos, err := m.List()
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, info := range infos {
		s.Count++
		s.TotalBytes += info.SizeBytes
		if info.Type == TypeLight {
			s.LightCount++
		} else {
			s.HeavyCount++
		}
	}
	return s, nil
}

// StatsReport renders Stats as YAML, grounded on the teacher's use of
// gopkg.in/yaml.v3 for human-facing config/report rendering.
func (m *Manager) StatsReport() ([]byte, error) {
	stats, err := m.Stats()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(stats)
}
