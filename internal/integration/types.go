// Package integration implements the Integration facade (spec §4.7): the
// stateless glue between an inbound request, the Version Resolver, the
// Registry, the Transformer Engine, and the metrics sink. It does not run
// the host's handler itself — the host calls Facade.Serve with its own
// handler callback sandwiched between transform-request and
// transform-response, the way the teacher's HTTP layer wraps a handler
// with its template-resolution middleware.
package integration

import (
	"context"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/resolver"
)

// Handler is the host's request handler, sandwiched between
// transform-request and transform-response. ctx carries the resolution
// metadata (see ResolutionFromContext).
type Handler func(ctx context.Context, body []byte) ([]byte, error)

// ResolutionInfo is the resolution metadata attached to the per-request
// context (spec §4.7, step 7).
type ResolutionInfo struct {
	Path           string
	Resolved       timescape.RID
	HandlerVersion timescape.RID
	Source         resolver.Source
	Transformed    bool
}

type contextKey struct{}

// WithResolution returns a context carrying info under the well-known key.
func WithResolution(ctx context.Context, info ResolutionInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// ResolutionFromContext retrieves resolution metadata previously attached
// by WithResolution.
func ResolutionFromContext(ctx context.Context) (ResolutionInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(ResolutionInfo)
	return info, ok
}

// Request is the facade-level request envelope; Query/Headers mirror
// http.Request's raw multi-valued maps (url.Values / http.Header).
type Request struct {
	Path    string
	Query   map[string][]string
	Headers map[string][]string
	Body    []byte
}

// Response is the outcome of Facade.Serve.
type Response struct {
	Body       []byte
	Resolution ResolutionInfo
}
