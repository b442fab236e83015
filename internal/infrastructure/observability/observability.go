package observability

import (
	"github.com/Zhima-Mochi/orderpay/internal/observability"
)

// provider is the Observability handed to use cases and handlers.
type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

// instruments resolves keys registered up front; anything else is a no-op.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(name observability.MetricKey) observability.Counter {
	if c := m.counters[name]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h := m.histograms[name]; h != nil {
		return h
	}
	return observability.NopHistogram()
}

// New assembles an Observability from a tracer, a logger and keyed metric
// instruments. Missing parts fall back to no-op implementations.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if len(counters) == 0 && len(histograms) == 0 {
		return &provider{tracer: tracer, logger: logger, metrics: observability.NopMetrics()}
	}

	m := instruments{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		m.counters[k] = v
	}
	for k, v := range histograms {
		m.histograms[k] = v
	}
	return &provider{tracer: tracer, logger: logger, metrics: m}
}
