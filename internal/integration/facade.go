package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
	"github.com/krishnapaul242/gati-sub004/internal/resolver"
	"github.com/krishnapaul242/gati-sub004/internal/transform"
	"github.com/krishnapaul242/gati-sub004/pkg/metrics"
)

// Facade wires the Resolver, Registry, Transformer Engine, and metrics
// sink into the single-request pipeline described in spec §4.7. It holds
// no per-request state, mirroring the teacher's stateless HTTP
// middleware (pkg/history/metrics/middleware.go): every field set at
// construction is read-only thereafter.
type Facade struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	engine   *transform.Engine
	metrics  metrics.Sink
	logger   *slog.Logger
	cfg      Config

	handlerVersion HandlerVersionFunc

	requestsTotal     metrics.Counter
	requestDuration   metrics.Histogram
	versionStatus     metrics.Gauge
	transformerTotal  metrics.Counter
	transformerTiming metrics.Histogram
	activeVersions    metrics.Gauge
	coldVersions      metrics.Gauge
}

// Option configures a Facade at construction time.
type Option func(*Facade)

// WithConfig overrides the default Config.
func WithConfig(cfg Config) Option {
	return func(f *Facade) { f.cfg = cfg }
}

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// WithMetrics attaches a metrics.Sink; defaults to metrics.Noop().
func WithMetrics(sink metrics.Sink) Option {
	return func(f *Facade) { f.metrics = sink }
}

// WithHandlerVersionFunc overrides how the facade learns which RID the
// host's in-process handler for a path currently serves. Defaults to the
// registry's latest registered revision for that path.
func WithHandlerVersionFunc(fn HandlerVersionFunc) Option {
	return func(f *Facade) { f.handlerVersion = fn }
}

// New builds a Facade over reg, res, and eng.
func New(reg *registry.Registry, res *resolver.Resolver, eng *transform.Engine, opts ...Option) *Facade {
	f := &Facade{
		registry: reg,
		resolver: res,
		engine:   eng,
		metrics:  metrics.Noop(),
		logger:   slog.Default(),
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.handlerVersion == nil {
		f.handlerVersion = func(path string) (timescape.RID, bool) { return f.registry.GetLatest(path) }
	}

	f.requestsTotal = f.metrics.Counter(metrics.MetricVersionRequestsTotal, "version resolution requests by outcome", []string{"path", "status"})
	f.requestDuration = f.metrics.Histogram(metrics.MetricVersionRequestDuration, "version resolution duration", []string{"path"}, nil)
	f.versionStatus = f.metrics.Gauge(metrics.MetricVersionStatusGauge, "revision count by status", []string{"path", "status"})
	f.transformerTotal = f.metrics.Counter(metrics.MetricTransformerExecTotal, "transformer chain executions by outcome", []string{"path", "success"})
	f.transformerTiming = f.metrics.Histogram(metrics.MetricTransformerDuration, "transformer chain duration", []string{"path"}, nil)
	f.activeVersions = f.metrics.Gauge(metrics.MetricActiveVersionsGauge, "revisions currently active (hot or warm)", nil)
	f.coldVersions = f.metrics.Gauge(metrics.MetricColdVersionsGauge, "revisions currently cold", nil)

	return f
}

// Serve runs the full per-request pipeline (spec §4.7): resolve,
// record-request, metrics, transform-request, handler, transform-response,
// context attachment.
func (f *Facade) Serve(ctx context.Context, req Request, handler Handler) (Response, error) {
	start := time.Now()

	res, err := f.resolver.Resolve(ctx, req.Path, req.Query, req.Headers)
	if err != nil {
		f.recordRequestMetric(req.Path, errStatusLabel(err), start)
		return Response{}, err
	}

	f.registry.RecordRequest(res.RID)
	f.recordRequestMetric(req.Path, "ok", start)
	f.emitStatusGauges(req.Path)

	handlerRID, ok := f.handlerVersion(req.Path)
	if !ok {
		return Response{}, ErrNoHandler
	}

	body := req.Body
	transformed := false
	if f.cfg.TransformsEnabled && res.RID != handlerRID {
		body, err = f.transformRequest(ctx, req.Path, body, res.RID, handlerRID)
		if err != nil {
			return Response{}, err
		}
		transformed = true
	}

	info := ResolutionInfo{
		Path:           req.Path,
		Resolved:       res.RID,
		HandlerVersion: handlerRID,
		Source:         res.Source,
		Transformed:    transformed,
	}
	handlerCtx := WithResolution(ctx, info)

	respBody, err := handler(handlerCtx, body)
	if err != nil {
		return Response{}, err
	}

	if transformed {
		respBody, err = f.transformResponse(ctx, req.Path, respBody, handlerRID, res.RID)
		if err != nil {
			return Response{}, err
		}
	}

	return Response{Body: respBody, Resolution: info}, nil
}

// transformRequest runs the forward transform-request step, after a cheap
// timeline-position backpressure check (spec §5 "Backpressure").
func (f *Facade) transformRequest(ctx context.Context, path string, body []byte, from, to timescape.RID) ([]byte, error) {
	versions := f.pathVersions(path)
	if err := f.checkChainLength(versions, from, to); err != nil {
		return nil, err
	}

	tstart := time.Now()
	result := f.engine.TransformRequest(ctx, body, from, to, versions, transform.Options{Timeout: f.cfg.TransformTimeout})
	f.recordTransformerMetric(path, result.Err, tstart)
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Data, nil
}

// transformResponse is the reverse-direction counterpart invoked after the
// handler returns.
func (f *Facade) transformResponse(ctx context.Context, path string, body []byte, from, to timescape.RID) ([]byte, error) {
	versions := f.pathVersions(path)

	tstart := time.Now()
	result := f.engine.TransformResponse(ctx, body, from, to, versions, transform.Options{Timeout: f.cfg.TransformTimeout})
	f.recordTransformerMetric(path, result.Err, tstart)
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Data, nil
}

func (f *Facade) pathVersions(path string) []timescape.RID {
	timeline := f.registry.Timeline(path)
	out := make([]timescape.RID, len(timeline))
	for i, rev := range timeline {
		out[i] = rev.RID
	}
	return out
}

// checkChainLength rejects obviously-too-long chains before the engine
// builds one, using the revision's position in the already-sorted
// timeline as a cheap proxy for chain length.
func (f *Facade) checkChainLength(versions []timescape.RID, from, to timescape.RID) error {
	max := f.cfg.MaxChainLength
	if max <= 0 {
		return nil
	}
	i, j := indexOf(versions, from), indexOf(versions, to)
	if i < 0 || j < 0 {
		return nil // let the engine produce the precise VERSION_NOT_FOUND-flavored error
	}
	diff := i - j
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return timescape.ErrChainTooLong
	}
	return nil
}

func indexOf(versions []timescape.RID, target timescape.RID) int {
	for i, v := range versions {
		if v == target {
			return i
		}
	}
	return -1
}

func (f *Facade) recordRequestMetric(path, status string, start time.Time) {
	f.requestsTotal.Inc(metrics.Labels{"path": path, "status": status})
	f.requestDuration.Observe(metrics.Labels{"path": path}, time.Since(start).Seconds())
}

func (f *Facade) recordTransformerMetric(path string, err error, start time.Time) {
	success := "true"
	if err != nil {
		success = "false"
	}
	f.transformerTotal.Inc(metrics.Labels{"path": path, "success": success})
	f.transformerTiming.Observe(metrics.Labels{"path": path}, time.Since(start).Seconds())
}

// emitStatusGauges reports the per-status revision counts for path and
// rolls them into a "_global" series, per spec §6's status-gauge set.
func (f *Facade) emitStatusGauges(path string) {
	stats := f.registry.UsageStats(path)
	f.versionStatus.Set(metrics.Labels{"path": path, "status": "hot"}, float64(stats.Hot))
	f.versionStatus.Set(metrics.Labels{"path": path, "status": "warm"}, float64(stats.Warm))
	f.versionStatus.Set(metrics.Labels{"path": path, "status": "cold"}, float64(stats.Cold))

	global := f.registry.UsageStats("")
	f.versionStatus.Set(metrics.Labels{"path": "_global", "status": "hot"}, float64(global.Hot))
	f.versionStatus.Set(metrics.Labels{"path": "_global", "status": "warm"}, float64(global.Warm))
	f.versionStatus.Set(metrics.Labels{"path": "_global", "status": "cold"}, float64(global.Cold))

	f.activeVersions.Set(metrics.Labels{}, float64(global.Hot+global.Warm))
	f.coldVersions.Set(metrics.Labels{}, float64(global.Cold))
}

func errStatusLabel(err error) string {
	if code, ok := timescape.CodeOf(err); ok {
		return string(code)
	}
	return "error"
}
