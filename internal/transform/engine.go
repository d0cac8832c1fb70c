package transform

import (
	"log/slog"
	"sync"

	"github.com/krishnapaul242/gati-sub004"
)

// pairKey is the unordered-pair fingerprint (min, max) used to store each
// transformer once regardless of registration order (spec §9 "Adjacency
// index").
type pairKey struct {
	a, b timescape.RID
}

func keyFor(from, to timescape.RID) pairKey {
	if from <= to {
		return pairKey{a: from, b: to}
	}
	return pairKey{a: to, b: from}
}

// Engine holds the immutable adjacent-transformer table and the
// configured chain-length ceiling (spec §4.2, §5 "maxChainLength").
type Engine struct {
	mu     sync.RWMutex
	pairs  map[pairKey]*Pair
	logger *slog.Logger

	maxChainLength int
}

// Option configures a new Engine.
type Option func(*Engine)

// WithMaxChainLength sets the chain-too-long ceiling; default 32.
func WithMaxChainLength(n int) Option {
	return func(e *Engine) { e.maxChainLength = n }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		pairs:          make(map[pairKey]*Pair),
		logger:         slog.Default(),
		maxChainLength: 32,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register inserts a copy of pair into the table, stored once under its
// unordered endpoint key so lookup is O(1) in either direction. Fails with
// ErrImmutableRequired if pair.Immutable is false, or ErrAlreadyRegistered
// if a pair already exists for this unordered endpoint set — transformers
// are inserted once and never replaced (spec §3 "Transformer pair").
func (e *Engine) Register(pair Pair) error {
	if !pair.Immutable {
		return ErrImmutableRequired
	}

	key := keyFor(pair.From, pair.To)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pairs[key]; exists {
		return ErrAlreadyRegistered
	}

	cp := pair
	e.pairs[key] = &cp
	e.logger.Info("transformer registered", "from", string(pair.From), "to", string(pair.To), "by", pair.CreatedBy)
	return nil
}

// Has reports whether a transformer is registered for the (unordered)
// from/to pair.
func (e *Engine) Has(from, to timescape.RID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pairs[keyFor(from, to)]
	return ok
}

// Get returns the transformer registered for the (unordered) from/to pair.
func (e *Engine) Get(from, to timescape.RID) (*Pair, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pairs[keyFor(from, to)]
	return p, ok
}

// Count returns the number of registered transformer pairs.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pairs)
}
