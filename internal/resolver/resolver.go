package resolver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishnapaul242/gati-sub004"
)

const defaultCacheSize = 2048

// Resolver implements version resolution (spec §4.3): given a request's
// path plus its query/header preferences, it produces a concrete RID.
type Resolver struct {
	registry registryView
	cache    *fifoCache
	l2       *l2Cache
	logger   *slog.Logger
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithCacheSize overrides the default L1 FIFO cache capacity.
func WithCacheSize(n int) Option {
	return func(r *Resolver) { r.cache = newFIFOCache(n) }
}

// WithRedis attaches an optional L2 cache tier.
func WithRedis(client *redis.Client, keyPrefix string, ttl time.Duration) Option {
	return func(r *Resolver) { r.l2 = newL2Cache(client, keyPrefix, ttl) }
}

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New builds a Resolver backed by reg.
func New(reg registryView, opts ...Option) *Resolver {
	r := &Resolver{
		registry: reg,
		cache:    newFIFOCache(defaultCacheSize),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps query/header preferences for path into a concrete RID.
// query and headers are raw multi-valued maps as taken straight off an
// *http.Request (r.URL.Query() and r.Header); header keys need not be
// pre-lowercased.
func (r *Resolver) Resolve(ctx context.Context, path string, query map[string][]string, headers map[string][]string) (Resolution, error) {
	queryVal, headerVal := Extract(query, NormalizeHeaders(headers))
	generation := r.registry.Generation()
	key := cacheKey{path: path, queryVal: queryVal, headerVal: headerVal, generation: generation}

	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}
	if res, ok := r.l2.Get(ctx, key); ok {
		r.cache.Put(key, res)
		return res, nil
	}

	res, err := r.resolveUncached(path, queryVal, headerVal)
	if err != nil {
		return Resolution{}, err
	}

	r.cache.Put(key, res)
	r.l2.Put(ctx, key, res)
	return res, nil
}

func (r *Resolver) resolveUncached(path, queryVal, headerVal string) (Resolution, error) {
	raw, channel := queryVal, SourceQuery
	if raw == "" {
		raw, channel = headerVal, SourceHeader
	}

	if raw == "" {
		rid, ok := r.registry.GetLatest(path)
		if !ok {
			return Resolution{}, timescape.ErrVersionNotFound
		}
		return Resolution{RID: rid, Source: SourceLatest}, nil
	}

	k, rid, seconds, err := classify(raw)
	if err != nil {
		return Resolution{}, err
	}

	switch k {
	case kindRID:
		if !r.registry.Exists(rid) {
			return Resolution{}, timescape.ErrVersionNotFound
		}
		return Resolution{RID: rid, Source: channel}, nil

	case kindTimestamp:
		found, ok := r.registry.GetAt(path, seconds)
		if !ok {
			return Resolution{}, timescape.ErrVersionNotFound
		}
		return Resolution{RID: found, Source: SourceTimestamp}, nil

	default: // kindTag
		found, ok := r.registry.GetByTag(path, strings.TrimSpace(raw))
		if !ok {
			return Resolution{}, timescape.ErrVersionNotFound
		}
		return Resolution{RID: found, Source: SourceTag}, nil
	}
}

// CacheLen reports the current L1 entry count, for diagnostics/tests.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}
