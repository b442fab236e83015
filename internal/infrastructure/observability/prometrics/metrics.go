package prometrics

import (
	"errors"
	"sync"

	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates Prometheus vectors on demand and hands them out as
// observability instruments. Asking twice for the same name returns the
// same vector.
type Registry struct {
	reg        prometheus.Registerer
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
	namespace  string
	mu         sync.Mutex
}

// New registers on reg, or on prometheus.DefaultRegisterer when reg is nil.
func New(reg prometheus.Registerer, namespace string) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Registry{reg: reg, namespace: namespace}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

func (r *Registry) Counter(name, help string, labelKeys ...string) (observability.Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.counters.Load(name); ok {
		return &counter{v: v.(*prometheus.CounterVec)}, nil
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Name: name, Help: help,
	}, labelKeys)
	if err := r.reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		cv = existing
	}
	r.counters.Store(name, cv)
	return &counter{v: cv}, nil
}

// Histogram uses prometheus.DefBuckets when buckets is empty.
func (r *Registry) Histogram(name, help string, buckets []float64, labelKeys ...string) (observability.Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.histograms.Load(name); ok {
		return &histogram{v: v.(*prometheus.HistogramVec)}, nil
	}
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	if err := r.reg.Register(hv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		hv = existing
	}
	r.histograms.Store(name, hv)
	return &histogram{v: hv}, nil
}

// Register creates every instrument described by the specs and returns them
// keyed for the observability provider.
func (r *Registry) Register(
	counterSpecs, histogramSpecs []observability.MetricSpec,
) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram, error) {
	counters := make(map[observability.MetricKey]observability.Counter, len(counterSpecs))
	for _, s := range counterSpecs {
		c, err := r.Counter(string(s.Key), s.Help, s.Labels...)
		if err != nil {
			return nil, nil, err
		}
		counters[s.Key] = c
	}
	histograms := make(map[observability.MetricKey]observability.Histogram, len(histogramSpecs))
	for _, s := range histogramSpecs {
		h, err := r.Histogram(string(s.Key), s.Help, nil, s.Labels...)
		if err != nil {
			return nil, nil, err
		}
		histograms[s.Key] = h
	}
	return counters, histograms, nil
}
