package observability

type MetricKey string

// Metrics resolves instruments by key. Unknown keys yield no-op instruments.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

// Label is one metric label. Keep values low-cardinality.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)

// MetricSpec describes how a metric key is exposed.
type MetricSpec struct {
	Key    MetricKey
	Help   string
	Labels []string
}

// CounterSpecs and HistogramSpecs enumerate every instrument the service registers.
var (
	CounterSpecs = []MetricSpec{
		{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
		{Key: MHTTPRequests, Help: "Total number of HTTP requests.", Labels: []string{"method", "route", "status"}},
		{Key: MExternalRequests, Help: "Total number of calls to external collaborators.", Labels: []string{"peer", "endpoint", "outcome"}},
	}
	HistogramSpecs = []MetricSpec{
		{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
		{Key: MHTTPRequestDuration, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
		{Key: MExternalRequestDuration, Help: "Duration of calls to external collaborators in seconds.", Labels: []string{"peer", "endpoint"}},
	}
)
