package transform

import "github.com/krishnapaul242/gati-sub004"

// Re-exported for convenience so callers of this package don't also need
// to import the root package just to compare codes.
var (
	ErrImmutableRequired  = timescape.ErrImmutableRequired
	ErrAlreadyRegistered  = timescape.ErrAlreadyRegistered
	ErrChainTooLong       = timescape.ErrChainTooLong
	ErrNoTransformer      = timescape.ErrNoTransformer
	ErrTransformerTimeout = timescape.ErrTransformerTimeout
	ErrTransformerFailed  = timescape.ErrTransformerFailed
)
