package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/krishnapaul242/gati-sub004"
)

// Document is the self-describing serialization format for a Registry
// (spec §4.1 "Serialization", §6 "Snapshot on-disk format" —
// registryState has this exact shape).
type Document struct {
	Handlers       map[string]HandlerDocument `json:"handlers"`
	Tags           map[string]TagDocument     `json:"tags"`
	ActiveVersions []string                   `json:"activeVersions"`
	ColdVersions   []string                   `json:"coldVersions"`
}

// HandlerDocument is one path's serialized timeline.
type HandlerDocument struct {
	HandlerPath string             `json:"handlerPath"`
	Versions    []VersionDocument  `json:"versions"`
}

// VersionDocument is one serialized revision record.
type VersionDocument struct {
	TSV             string   `json:"tsv" validate:"required"`
	Timestamp       int64    `json:"timestamp"`
	Hash            string   `json:"hash"`
	Status          string   `json:"status" validate:"required"`
	RequestCount    uint64   `json:"requestCount"`
	LastAccessed    int64    `json:"lastAccessed"` // epoch millis
	Tags            []string `json:"tags"`
	DBSchemaVersion string   `json:"dbSchemaVersion,omitempty"`
}

// TagDocument is one serialized tag binding.
type TagDocument struct {
	Label     string `json:"label"`
	TSV       string `json:"tsv"`
	CreatedAt int64  `json:"createdAt"` // epoch millis
	CreatedBy string `json:"createdBy"`
}

var docValidator = validator.New(validator.WithRequiredStructEnabled())

// Serialize emits a self-describing document of the full registry state.
// Re-serializing a deserialized copy yields the same document modulo
// iteration order (spec §8 "Serialize/deserialize round-trip").
func (r *Registry) Serialize() Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := Document{
		Handlers:       make(map[string]HandlerDocument, len(r.timelines)),
		Tags:           make(map[string]TagDocument, len(r.tags)),
		ActiveVersions: make([]string, 0, len(r.active)),
		ColdVersions:   make([]string, 0, len(r.cold)),
	}

	for path, timeline := range r.timelines {
		versions := make([]VersionDocument, 0, len(timeline))
		for _, rev := range timeline {
			versions = append(versions, VersionDocument{
				TSV:             string(rev.RID),
				Timestamp:       rev.Timestamp,
				Hash:            rev.Hash,
				Status:          string(rev.Status),
				RequestCount:    rev.RequestCount,
				LastAccessed:    rev.LastAccessed.UnixMilli(),
				Tags:            rev.TagLabels(),
				DBSchemaVersion: rev.SchemaVersion,
			})
		}
		doc.Handlers[path] = HandlerDocument{HandlerPath: path, Versions: versions}
	}

	for label, binding := range r.tags {
		doc.Tags[label] = TagDocument{
			Label:     label,
			TSV:       string(binding.rid),
			CreatedAt: binding.createdAt.UnixMilli(),
			CreatedBy: binding.createdBy,
		}
	}

	for rid := range r.active {
		doc.ActiveVersions = append(doc.ActiveVersions, string(rid))
	}
	for rid := range r.cold {
		doc.ColdVersions = append(doc.ColdVersions, string(rid))
	}
	sort.Strings(doc.ActiveVersions)
	sort.Strings(doc.ColdVersions)

	return doc
}

// Deserialize rebuilds a Registry from doc, replacing any existing state
// (spec §9: restore replaces, it does not merge). Rejects documents with
// malformed RIDs, unknown statuses, or overlapping active/cold sets.
func Deserialize(doc Document, opts ...Option) (*Registry, error) {
	active := make(map[string]struct{}, len(doc.ActiveVersions))
	for _, s := range doc.ActiveVersions {
		active[s] = struct{}{}
	}
	for _, s := range doc.ColdVersions {
		if _, ok := active[s]; ok {
			return nil, fmt.Errorf("%w: %s", ErrOverlappingSets, s)
		}
	}

	r := New(opts...)

	for path, hdoc := range doc.Handlers {
		for _, vdoc := range hdoc.Versions {
			if err := docValidator.Struct(vdoc); err != nil {
				return nil, fmt.Errorf("registry: invalid version document for %s: %w", path, err)
			}
			if !timescape.ValidRID(vdoc.TSV) {
				return nil, fmt.Errorf("%w: %s", ErrMalformedRID, vdoc.TSV)
			}
			if !ValidStatus(vdoc.Status) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, vdoc.Status)
			}

			rid := timescape.RID(vdoc.TSV)
			if err := r.Register(path, rid, Metadata{
				Hash:          vdoc.Hash,
				Status:        Status(vdoc.Status),
				SchemaVersion: vdoc.DBSchemaVersion,
			}); err != nil {
				return nil, err
			}

			rev := r.byRID[rid]
			rev.RequestCount = vdoc.RequestCount
			rev.LastAccessed = time.UnixMilli(vdoc.LastAccessed)
			for _, label := range vdoc.Tags {
				rev.Tags[label] = struct{}{}
			}
		}
	}

	for label, tdoc := range doc.Tags {
		if !timescape.ValidRID(tdoc.TSV) {
			return nil, fmt.Errorf("%w: %s", ErrMalformedRID, tdoc.TSV)
		}
		r.tags[label] = &tagBinding{
			rid:       timescape.RID(tdoc.TSV),
			createdAt: time.UnixMilli(tdoc.CreatedAt),
			createdBy: tdoc.CreatedBy,
		}
	}

	// Re-derive status-driven membership and reconcile it against the
	// document's explicit sets: the document is authoritative for
	// membership (status alone cannot distinguish a cold revision that
	// was cold-by-override from one cold-by-classification, but both
	// land in the cold set either way, so this is a no-op in practice
	// and exists to catch a corrupt document where they'd disagree).
	for _, s := range doc.ActiveVersions {
		rid := timescape.RID(s)
		if rev, ok := r.byRID[rid]; ok {
			r.setMembership(rid, rev.Status)
		}
	}
	for _, s := range doc.ColdVersions {
		rid := timescape.RID(s)
		if rev, ok := r.byRID[rid]; ok {
			rev.Status = StatusCold
			r.setMembership(rid, StatusCold)
		}
	}

	r.bumpGeneration()
	return r, nil
}
