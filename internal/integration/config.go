package integration

import (
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

// HandlerVersionFunc reports the RID the host's in-process handler code
// for path currently runs as. The facade transforms only when a
// resolution disagrees with this value. A nil-returning (false) handler
// is treated as "path not served" (spec §4.7: "no handler").
type HandlerVersionFunc func(path string) (timescape.RID, bool)

// Config configures a Facade.
type Config struct {
	// TransformsEnabled toggles step 4 of the pipeline (spec §4.7). When
	// false, resolved bodies are passed through to the handler untouched
	// regardless of version mismatch.
	TransformsEnabled bool
	// MaxChainLength backstops the engine's own ceiling with an earlier,
	// cheap rejection computed straight from timeline position (spec §5
	// "Backpressure": "may refuse ... before invoking the engine").
	MaxChainLength int
	// TransformTimeout bounds each transformer step; see transform.Options.
	TransformTimeout time.Duration
}

// DefaultConfig returns the facade defaults.
func DefaultConfig() Config {
	return Config{
		TransformsEnabled: true,
		MaxChainLength:    32,
		TransformTimeout:  5 * time.Second,
	}
}
