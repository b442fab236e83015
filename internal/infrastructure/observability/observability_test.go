package observability

import (
	"testing"

	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/stretchr/testify/assert"
)

type countingCounter struct{ total float64 }

func (c *countingCounter) Add(d float64, _ ...observability.Label) { c.total += d }

func TestNew_FallsBackToNop(t *testing.T) {
	tel := New(nil, nil, nil, nil)

	assert.NotNil(t, tel.Tracer())
	assert.NotNil(t, tel.Logger())
	assert.Equal(t, observability.NopCounter(), tel.Metrics().Counter(observability.MUsecaseRequests))
	assert.Equal(t, observability.NopHistogram(), tel.Metrics().Histogram(observability.MUsecaseDuration))
}

func TestNew_ResolvesRegisteredInstruments(t *testing.T) {
	c := &countingCounter{}
	tel := New(nil, nil,
		map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: c,
			observability.MHTTPRequests:    nil,
		},
		nil,
	)

	tel.Metrics().Counter(observability.MUsecaseRequests).Add(2)

	assert.Equal(t, 2.0, c.total)
	assert.Equal(t, observability.NopCounter(), tel.Metrics().Counter(observability.MHTTPRequests))
	assert.Equal(t, observability.NopHistogram(), tel.Metrics().Histogram(observability.MUsecaseDuration))
}
