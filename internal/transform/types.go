// Package transform implements the Transformer Engine (spec §4.2): an
// immutable table of adjacent-revision transformers and the chain
// builder/executor that walks a timeline through them.
package transform

import (
	"context"
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

// Func transforms a request or response payload moving from one revision
// to an adjacent one. A nil Func means identity (pass-through).
type Func func(ctx context.Context, data []byte) ([]byte, error)

// Pair is an immutable adjacent-transformer record keyed by the unordered
// pair (From, To) (spec §4.2, §9 "Immutable registration" / "Adjacency
// index"). Construct with NewPair; once handed to Engine.Register, it
// must not be mutated — callers should treat the value as moved.
type Pair struct {
	From, To timescape.RID

	ForwardRequest   Func // From -> To, request body
	ForwardResponse  Func // From -> To, response body
	BackwardRequest  Func // To -> From, request body
	BackwardResponse Func // To -> From, response body

	Immutable bool
	CreatedAt time.Time
	CreatedBy string
}

// NewPair builds a Pair with Immutable set, ready for Engine.Register.
func NewPair(from, to timescape.RID, createdBy string) Pair {
	return Pair{
		From:      from,
		To:        to,
		Immutable: true,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}
}

// Flavor selects which of the four transform functions a call wants.
type Flavor int

const (
	FlavorRequest Flavor = iota
	FlavorResponse
)

// Options controls chain execution.
type Options struct {
	// Timeout bounds each individual step, if non-zero.
	Timeout time.Duration
	// FallbackOnError returns the original input data (with Err set)
	// instead of failing outright.
	FallbackOnError bool
}

// Result is the outcome of a chain execution, carrying partial progress
// even on failure (spec §7 "Transformer and migration errors are
// returned as result records carrying both the partial progress... and
// an error").
type Result struct {
	Data    []byte
	Visited []timescape.RID
	Err     error
}
