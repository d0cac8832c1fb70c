package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink on top of github.com/prometheus/client_golang,
// the way the teacher's pkg/metrics.NewHTTPMetricsWithNamespace wires
// CounterVec/HistogramVec/GaugeVec against a namespace.
type PrometheusSink struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusSink creates a Sink registered against its own
// *prometheus.Registry (so tests and multiple Facade instances don't
// collide on the global DefaultRegisterer).
func NewPrometheusSink(namespace string) *PrometheusSink {
	if namespace == "" {
		namespace = "timescape"
	}
	return &PrometheusSink{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying *prometheus.Registry so callers can
// mount promhttp.HandlerFor against it.
func (s *PrometheusSink) Registry() *prometheus.Registry { return s.registry }

func (s *PrometheusSink) Counter(name, help string, labelNames []string) Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cv, ok := s.counters[name]; ok {
		return promCounter{cv}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Name:      name,
		Help:      help,
	}, labelNames)
	s.registry.MustRegister(cv)
	s.counters[name] = cv
	return promCounter{cv}
}

func (s *PrometheusSink) Gauge(name, help string, labelNames []string) Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gv, ok := s.gauges[name]; ok {
		return promGauge{gv}
	}
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      name,
		Help:      help,
	}, labelNames)
	s.registry.MustRegister(gv)
	s.gauges[name] = gv
	return promGauge{gv}
}

func (s *PrometheusSink) Histogram(name, help string, labelNames []string, buckets []float64) Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hv, ok := s.histograms[name]; ok {
		return promHistogram{hv}
	}
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labelNames)
	s.registry.MustRegister(hv)
	s.histograms[name] = hv
	return promHistogram{hv}
}

type promCounter struct{ cv *prometheus.CounterVec }

func (c promCounter) Inc(labels Labels)          { c.cv.With(toPromLabels(labels)).Inc() }
func (c promCounter) Add(labels Labels, v float64) { c.cv.With(toPromLabels(labels)).Add(v) }

type promGauge struct{ gv *prometheus.GaugeVec }

func (g promGauge) Set(labels Labels, v float64) { g.gv.With(toPromLabels(labels)).Set(v) }

type promHistogram struct{ hv *prometheus.HistogramVec }

func (h promHistogram) Observe(labels Labels, v float64) { h.hv.With(toPromLabels(labels)).Observe(v) }

func toPromLabels(labels Labels) prometheus.Labels {
	out := make(prometheus.Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
